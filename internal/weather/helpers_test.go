package weather

import (
	"context"
	"io"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

// series builds a contiguous table with fixed radn/maxt/mint and rain from fn.
func series(start, end civil.Date, rain func(civil.Date) float64) *Table {
	t := &Table{}
	for d := start; !d.After(end); d = d.AddDays(1) {
		r := NewRow(d)
		r.Set(Radn, 15)
		r.Set(MaxT, 20)
		r.Set(MinT, 5)
		r.Set(Rain, rain(d))
		t.Rows = append(t.Rows, r)
	}
	return t
}

func constRain(v float64) func(civil.Date) float64 {
	return func(civil.Date) float64 { return v }
}

// stubProvider serves generated history, optionally clipped to a last date.
type stubProvider struct {
	station Station
	rain    func(civil.Date) float64
	last    civil.Date
	err     error
	empty   bool
	calls   int
}

func (p *stubProvider) Fetch(_ context.Context, _ int, start, end civil.Date) (Station, *Table, error) {
	p.calls++
	if p.err != nil {
		return Station{}, nil, p.err
	}
	if p.empty {
		return p.station, &Table{}, nil
	}
	if p.last != (civil.Date{}) && end.After(p.last) {
		end = p.last
	}
	rain := p.rain
	if rain == nil {
		rain = constRain(1)
	}
	return p.station, series(start, end, rain), nil
}

func observedRain(values map[civil.Date]float64) *Table {
	t := &Table{}
	for d, v := range values {
		r := NewRow(d)
		r.Set(Rain, v)
		t.Rows = append(t.Rows, r)
	}
	TagAll(t, Observed)
	return t
}
