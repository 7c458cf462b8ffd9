package simspec

import (
	"fmt"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
)

// InsertResetEvents adds the soil-state reset events for the paddock's sample
// dates to spec's management list. The sowing date is read from spec, so a
// variant that moved its sowing gets resets for the moved date.
//
// Resets are generated in this order and then merged by date, resets first
// on a shared date:
//
//   - water and surface organic matter at sowing, when water was sampled after sowing
//   - water and surface organic matter at the water sample date
//   - nitrogen at the nitrogen sample date (defaulting to the water date)
//   - nitrogen at sowing, when nitrogen was sampled after sowing
//
// Any resets already in the list are replaced.
func InsertResetEvents(p domain.Paddock, spec *domain.SimulationSpec) error {
	water := p.Sample.WaterDate
	if !domain.IsSet(water) {
		return fmt.Errorf("paddock %q: %w", p.Name, ErrMissingSampleDate)
	}
	nitrogen := p.Sample.NitrogenDate
	if !domain.IsSet(nitrogen) {
		nitrogen = water
	}
	spec.Sample.NitrogenDate = nitrogen

	events := make(domain.Management, 0, len(spec.Management))
	for _, e := range spec.Management {
		if !domain.IsReset(e) {
			events = append(events, e)
		}
	}

	sow, idx := events.Sowing()
	sown := idx >= 0

	resets := make(domain.Management, 0, 6)
	if sown && water.After(sow.Date) {
		resets = append(resets,
			domain.ResetWater{Date: sow.Date},
			domain.ResetSurfaceOrganicMatter{Date: sow.Date},
		)
	}
	resets = append(resets,
		domain.ResetWater{Date: water},
		domain.ResetSurfaceOrganicMatter{Date: water},
		domain.ResetNitrogen{Date: nitrogen},
	)
	if sown && nitrogen.After(sow.Date) {
		resets = append(resets, domain.ResetNitrogen{Date: sow.Date})
	}

	merged := append(resets, events...)
	merged.SortByDate()
	spec.Management = merged
	return nil
}
