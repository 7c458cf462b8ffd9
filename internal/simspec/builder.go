package simspec

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// SimulationDays is the span of every yearly-output variant: End is
// Start+SimulationDays and both days are simulated.
const SimulationDays = 300

// DefaultLongTermYears is the number of historical years synthesized per
// long-term weather set.
const DefaultLongTermYears = 30

// WeatherSource synthesizes the weather files a variant runs on.
type WeatherSource interface {
	CreateSingleSeason(ctx context.Context, req weather.SingleSeasonRequest) ([]weather.File, error)
	CreateLongTerm(ctx context.Context, req weather.LongTermRequest, memo *weather.Memo) (*weather.LongTermResult, error)
}

// Request carries one Build call's state to an expander.
type Request struct {
	Paddock  domain.Paddock
	Base     *domain.SimulationSpec
	Observed *weather.Table
	Memo     *weather.Memo
}

// ExpandFunc turns a base simulation into the report's variants.
type ExpandFunc func(ctx context.Context, b *Builder, req Request) ([]*domain.SimulationSpec, error)

// Builder expands paddocks into simulation specs.
type Builder struct {
	weather   WeatherSource
	rules     *Rules
	years     int
	expanders map[domain.ReportType]ExpandFunc
	logger    *slog.Logger
}

// NewBuilder creates a Builder with the crop and sowing-opportunity reports
// registered. years <= 0 uses DefaultLongTermYears.
func NewBuilder(ws WeatherSource, rules *Rules, years int, logger *slog.Logger) *Builder {
	if years <= 0 {
		years = DefaultLongTermYears
	}
	b := &Builder{
		weather:   ws,
		rules:     rules,
		years:     years,
		expanders: make(map[domain.ReportType]ExpandFunc),
		logger:    logger,
	}
	b.Register(domain.ReportCrop, ExpandCrop)
	b.Register(domain.ReportSowingOpportunity, ExpandSowingOpportunity)
	return b
}

// Register sets the expander for a report type, replacing any earlier one.
func (b *Builder) Register(report domain.ReportType, fn ExpandFunc) {
	b.expanders[report] = fn
}

// Build expands one paddock into the simulation specs its report needs. Long
// term weather is synthesized once per distinct season window within a call.
func (b *Builder) Build(ctx context.Context, p domain.Paddock) ([]*domain.SimulationSpec, error) {
	expand, ok := b.expanders[p.Report]
	if !ok {
		return nil, fmt.Errorf("report %q: %w", p.Report, ErrUnknownReport)
	}

	base, err := b.CreateBaseSimulation(p)
	if err != nil {
		return nil, err
	}

	observed := p.ObservedTable()
	specs, err := expand(ctx, b, Request{
		Paddock:  p,
		Base:     base,
		Observed: observed,
		Memo:     weather.NewMemo(),
	})
	if err != nil {
		return nil, fmt.Errorf("expand %s report: %w", p.Report, err)
	}

	now := domain.Now()
	for _, s := range specs {
		s.ID = domain.SpecID(s.JobID, s.Variant)
		s.CreatedAt = now
		FillCalculatedFields(p, observed, s)
		if domain.IsSet(p.Sample.WaterDate) && p.Sample.WaterDate.Before(s.Start) {
			b.logger.Debug("rainfall since sample counted from simulation start",
				"job_id", s.JobID,
				"variant", s.Variant,
				"water_date", p.Sample.WaterDate.String(),
				"start", s.Start.String(),
			)
		}
		if len(s.Weather) == 0 {
			b.logger.Warn("simulation has no weather files",
				"job_id", s.JobID,
				"variant", s.Variant,
				"station", s.Station,
			)
		}
	}

	b.logger.Debug("built simulations", "job_id", p.JobID, "report", p.Report, "count", len(specs))
	return specs, nil
}

// CreateBaseSimulation seeds a simulation from the paddock. It starts on
// 1 April of the season, or at sowing when that is earlier, and ends at the
// now date. Soil corrections are applied and reset events inserted.
func (b *Builder) CreateBaseSimulation(p domain.Paddock) (*domain.SimulationSpec, error) {
	now := p.NowDate()
	start := p.SeasonStart()
	if sow, idx := p.Management.Sowing(); idx >= 0 && sow.Date.Before(start) {
		start = sow.Date
	}

	spec := &domain.SimulationSpec{
		JobID:      p.JobID,
		Paddock:    p.Name,
		Report:     p.Report,
		Station:    p.Station,
		Start:      start,
		End:        now,
		Now:        now,
		Output:     domain.OutputDaily,
		Soil:       p.Soil,
		Sample:     p.Sample.Clone(),
		Stubble:    p.Stubble,
		Management: p.Management.Clone(),
	}

	if b.rules != nil {
		if err := b.rules.Apply(&spec.Soil, &spec.Sample); err != nil {
			return nil, fmt.Errorf("paddock %q soil: %w", p.Name, err)
		}
	}
	if err := InsertResetEvents(p, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// singleSeason resolves a spec's weather to one file over [Start, End].
func (b *Builder) singleSeason(ctx context.Context, req Request, spec *domain.SimulationSpec) error {
	files, err := b.weather.CreateSingleSeason(ctx, weather.SingleSeasonRequest{
		Name:     fileBase(req.Paddock) + "_" + spec.Variant,
		Station:  spec.Station,
		Start:    spec.Start,
		End:      spec.End,
		Observed: req.Observed,
	})
	if err != nil {
		return fmt.Errorf("%s weather: %w", spec.Variant, err)
	}
	spec.Weather = files
	return nil
}

// longTerm resolves a spec's weather to the per-year long term set for its
// season window, sharing results through the request's memo.
func (b *Builder) longTerm(ctx context.Context, req Request, spec *domain.SimulationSpec) error {
	res, err := b.weather.CreateLongTerm(ctx, weather.LongTermRequest{
		Name:        fmt.Sprintf("%s_%s_", fileBase(req.Paddock), spec.Start),
		Station:     spec.Station,
		SeasonStart: spec.Start,
		SeasonEnd:   spec.End,
		Now:         spec.Now,
		Observed:    req.Observed,
		Years:       b.years,
	}, req.Memo)
	if err != nil {
		return fmt.Errorf("%s weather: %w", spec.Variant, err)
	}
	spec.Weather = res.Files
	spec.Deciles = res.Deciles
	return nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9]+`)

// fileBase names a paddock's weather files.
func fileBase(p domain.Paddock) string {
	name := unsafeName.ReplaceAllString(p.Name, "_")
	if name == "" || name == "_" {
		name = unsafeName.ReplaceAllString(p.JobID, "_")
	}
	return name
}
