package simspec

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// FillCalculatedFields derives the spec's calculated fields:
//
//   - stubble incorporated percent: mean of the tillage events' disturbance
//     percentages, left unset when there is no recognised tillage
//   - date of last rainfall entry: the date of the last observed row
//   - rainfall since sample: rain in the first resolved weather file from the
//     water sample date up to the spec's now date. The file starts at the
//     simulation start, so rain before it is not counted.
func FillCalculatedFields(p domain.Paddock, observed *weather.Table, spec *domain.SimulationSpec) {
	var calc domain.CalculatedFields

	var percents []float64
	for _, t := range spec.Management.Tillages() {
		if v, ok := t.Disturbance.IncorporatedPercent(); ok {
			percents = append(percents, v)
		}
	}
	if len(percents) > 0 {
		mean := stat.Mean(percents, nil)
		calc.StubbleIncorporatedPercent = &mean
	}

	if observed.Len() > 0 {
		calc.DateOfLastRainfallEntry = observed.Last()
	}

	if len(spec.Weather) > 0 && domain.IsSet(p.Sample.WaterDate) {
		to := spec.Now
		if !domain.IsSet(to) || to.After(spec.End) {
			to = spec.End
		}
		window := spec.Weather[0].Table.Window(p.Sample.WaterDate, to)
		calc.RainfallSinceSample = floats.Sum(window.Values(weather.Rain))
	}

	spec.Calculated = calc
}
