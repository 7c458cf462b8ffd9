package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jonboulle/clockwork"
)

// Provider fetches a station's historical daily series for an inclusive date
// range. A provider with no data returns an empty table and no error;
// transport failures wrap ErrDataSourceUnavailable.
type Provider interface {
	Fetch(ctx context.Context, station int, start, end civil.Date) (Station, *Table, error)
}

// SingleSeasonRequest describes one season-window weather file.
type SingleSeasonRequest struct {
	Name     string
	Station  int
	Start    civil.Date
	End      civil.Date
	Observed *Table
}

// LongTermRequest describes a set of per-year weather files aligned on one
// season.
type LongTermRequest struct {
	Name        string
	Station     int
	SeasonStart civil.Date
	SeasonEnd   civil.Date
	Now         civil.Date
	Observed    *Table
	Years       int
}

// LongTermResult holds the per-year files and the decile table computed from
// the same history.
type LongTermResult struct {
	Files   []File
	Deciles *DecileTable
}

// Memo remembers long-term results by base file name. A Memo is owned by one
// caller and is not safe for concurrent use.
type Memo struct {
	results map[string]*LongTermResult
}

// NewMemo returns an empty memo.
func NewMemo() *Memo {
	return &Memo{results: make(map[string]*LongTermResult)}
}

// Synthesizer produces calendar-aligned weather files from provider history
// and paddock observations.
type Synthesizer struct {
	provider Provider
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil clock uses real time.
func NewSynthesizer(provider Provider, clock clockwork.Clock, logger *slog.Logger) *Synthesizer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Synthesizer{provider: provider, clock: clock, logger: logger}
}

func (s *Synthesizer) today() civil.Date {
	return civil.DateOf(s.clock.Now().UTC())
}

// FetchBaseline fetches [start, end] for a station and tags every row with src.
// An empty answer for a range starting before today fails with
// ErrEmptyHistoricalSeries; an empty answer for a future range is returned as is.
func (s *Synthesizer) FetchBaseline(ctx context.Context, station int, start, end civil.Date, src Source) (Station, *Table, error) {
	st, table, err := s.provider.Fetch(ctx, station, start, end)
	if err != nil {
		return Station{}, nil, fmt.Errorf("fetch station %d: %w", station, err)
	}
	if table == nil {
		table = &Table{}
	}
	if table.Len() == 0 {
		if start.Before(s.today()) {
			return st, table, fmt.Errorf("station %d %s..%s: %w", station, start, end, ErrEmptyHistoricalSeries)
		}
		return st, table, nil
	}
	if err := table.Validate(); err != nil {
		return Station{}, nil, fmt.Errorf("station %d: %w", station, err)
	}
	if table.Len() < end.DaysSince(start)+1 {
		s.logger.Warn("weather series shorter than requested",
			"station", station,
			"start", start.String(),
			"end", end.String(),
			"rows", table.Len(),
		)
	}
	TagAll(table, src)
	return st, table, nil
}

// CreateSingleSeason builds one file covering [Start, End] with observed data
// laid over the provider series. When the provider has no data the result is
// empty rather than an error, so report generation can degrade.
func (s *Synthesizer) CreateSingleSeason(ctx context.Context, req SingleSeasonRequest) ([]File, error) {
	st, table, err := s.FetchBaseline(ctx, req.Station, req.Start, req.End, Synthetic)
	if errors.Is(err, ErrEmptyHistoricalSeries) {
		s.logger.Warn("no weather data for single season file", "name", req.Name, "station", req.Station, "error", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, nil
	}
	if req.Observed != nil {
		if err := Overlay(table, req.Observed); err != nil {
			return nil, fmt.Errorf("single season %s: %w", req.Name, err)
		}
	}
	st.Number = req.Station
	return []File{{Name: req.Name + ".met", Station: st, Table: table}}, nil
}

// CreateLongTerm builds one file per prior year. Each file re-dates a slice of
// that year's history onto the season calendar and reapplies the same patch:
// this season's history from SeasonStart to Now with observed data laid over
// it. Passing a memo returns the earlier result for a repeated base name;
// passing nil always recomputes.
func (s *Synthesizer) CreateLongTerm(ctx context.Context, req LongTermRequest, memo *Memo) (*LongTermResult, error) {
	if memo != nil {
		if res, ok := memo.results[req.Name]; ok {
			return res, nil
		}
	}
	if req.Years <= 0 {
		return nil, fmt.Errorf("long term %s: years must be positive, got %d", req.Name, req.Years)
	}

	histStart := civil.Date{Year: req.SeasonStart.Year - req.Years, Month: time.January, Day: 1}
	st, hist, err := s.FetchBaseline(ctx, req.Station, histStart, s.today(), Historical)
	if errors.Is(err, ErrEmptyHistoricalSeries) {
		s.logger.Warn("no weather history for long term files", "name", req.Name, "station", req.Station, "error", err)
		return &LongTermResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	st.Number = req.Station

	res := &LongTermResult{Deciles: ComputeDeciles(hist, req.SeasonStart)}

	patch, err := s.buildPatch(hist, req)
	if err != nil {
		return nil, err
	}

	days := req.SeasonEnd.DaysSince(req.SeasonStart) + 1
	for k := 1; k <= req.Years; k++ {
		year := req.SeasonStart.Year - k
		from, err := hist.IndexOf(sameDayInYear(req.SeasonStart, year))
		if err != nil {
			return nil, fmt.Errorf("long term %s year %d: %w", req.Name, year, err)
		}
		if from < 0 {
			s.logger.Warn("history does not cover year", "name", req.Name, "year", year)
			continue
		}
		slice := hist.Slice(from, days)
		for i := range slice.Rows {
			slice.Rows[i].Date = req.SeasonStart.AddDays(i)
		}
		if err := Overlay(slice, patch); err != nil {
			return nil, fmt.Errorf("long term %s year %d: %w", req.Name, year, err)
		}
		res.Files = append(res.Files, File{
			Name:    fmt.Sprintf("%s%d.met", req.Name, year),
			Station: st,
			Table:   slice,
		})
	}

	if memo != nil {
		memo.results[req.Name] = res
	}
	return res, nil
}

// buildPatch cuts [SeasonStart, Now] out of this season's history, lays the
// observed rows over it and marks the result as current-season data.
func (s *Synthesizer) buildPatch(hist *Table, req LongTermRequest) (*Table, error) {
	if req.Now.Before(req.SeasonStart) {
		return &Table{}, nil
	}
	patch := hist.Window(req.SeasonStart, req.Now)
	if req.Observed != nil {
		observed := req.Observed.Window(req.SeasonStart, req.Now)
		if patch.Len() == 0 {
			patch = observed
		} else if err := Overlay(patch, observed); err != nil {
			return nil, fmt.Errorf("patch %s: %w", req.Name, err)
		}
	}
	MarkCurrentSeason(patch)
	return patch, nil
}

// sameDayInYear moves d into year, folding 29 February onto the 28th.
func sameDayInYear(d civil.Date, year int) civil.Date {
	out := civil.Date{Year: year, Month: d.Month, Day: d.Day}
	if !out.IsValid() {
		out.Day = 28
	}
	return out
}
