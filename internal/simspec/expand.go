package simspec

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
)

// Crop report variants. ThisYear runs to the now date on this season's
// weather; the others differ only by the variant name the engine reads as a
// scenario flag.
const (
	VariantThisYear            = "ThisYear"
	VariantBase                = "Base"
	VariantNUnlimited          = "NUnlimited"
	VariantNUnlimitedFromToday = "NUnlimitedFromToday"
	VariantNext10DaysDry       = "Next10DaysDry"
)

var cropScenarios = []string{
	VariantBase,
	VariantNUnlimited,
	VariantNUnlimitedFromToday,
	VariantNext10DaysDry,
}

// Sowing opportunity window and step, within the season year.
var (
	sowingFirst = civil.Date{Month: time.March, Day: 15}
	sowingLast  = civil.Date{Month: time.July, Day: 5}
)

const sowingStepDays = 5

// ExpandCrop emits the five crop report variants.
func ExpandCrop(ctx context.Context, b *Builder, req Request) ([]*domain.SimulationSpec, error) {
	specs := make([]*domain.SimulationSpec, 0, 1+len(cropScenarios))

	thisYear := req.Base.Clone()
	thisYear.Variant = VariantThisYear
	thisYear.Output = domain.OutputDaily
	thisYear.DepthFile = true
	if err := b.singleSeason(ctx, req, thisYear); err != nil {
		return nil, err
	}
	specs = append(specs, thisYear)

	for _, name := range cropScenarios {
		s := req.Base.Clone()
		s.Variant = name
		s.Output = domain.OutputYearly
		s.End = s.Start.AddDays(SimulationDays)
		if err := b.longTerm(ctx, req, s); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// ExpandSowingOpportunity emits one variant per candidate sowing date, every
// five days from 15 March to 5 July of the season year. Each variant is
// rebuilt from the paddock with its sow event moved, so start date and reset
// events follow the candidate date.
func ExpandSowingOpportunity(ctx context.Context, b *Builder, req Request) ([]*domain.SimulationSpec, error) {
	sow, idx := req.Paddock.Management.Sowing()
	if idx < 0 {
		return nil, fmt.Errorf("paddock %q: %w", req.Paddock.Name, ErrNoSowing)
	}

	year := req.Paddock.SeasonYear()
	first := civil.Date{Year: year, Month: sowingFirst.Month, Day: sowingFirst.Day}
	last := civil.Date{Year: year, Month: sowingLast.Month, Day: sowingLast.Day}

	var specs []*domain.SimulationSpec
	for date := first; !date.After(last); date = date.AddDays(sowingStepDays) {
		p := req.Paddock
		p.Management = req.Paddock.Management.Clone()
		moved := sow
		moved.Date = date
		p.Management[idx] = moved

		s, err := b.CreateBaseSimulation(p)
		if err != nil {
			return nil, fmt.Errorf("sowing %s: %w", date, err)
		}
		s.Variant = sowingVariant(date)
		s.Output = domain.OutputYearly
		s.End = s.Start.AddDays(SimulationDays)
		if err := b.longTerm(ctx, req, s); err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// sowingVariant names a sowing opportunity variant, e.g. "Sow15Mar".
func sowingVariant(d civil.Date) string {
	return fmt.Sprintf("Sow%02d%s", d.Day, d.Month.String()[:3])
}
