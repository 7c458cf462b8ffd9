package simspec

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
)

//go:embed rules.toml
var defaultRules []byte

// Rule holds the correction constants for one soil region.
type Rule struct {
	Name         string  `toml:"name"`
	SoilPattern  string  `toml:"soil_pattern"`
	BulkDensity  float64 `toml:"bulk_density"`   // g/cm3
	MaxRootDepth float64 `toml:"max_root_depth"` // mm
	ECThreshold  float64 `toml:"ec_threshold"`   // dS/m, 0 disables
	ClThreshold  float64 `toml:"cl_threshold"`   // mg/kg, 0 disables

	pattern *regexp.Regexp
}

// Rules is a parsed rule set.
type Rules struct {
	Defaults Rule   `toml:"defaults"`
	Regions  []Rule `toml:"region"`
}

// DefaultRules returns the rule set compiled into the binary.
func DefaultRules() (*Rules, error) {
	return ParseRules(string(defaultRules))
}

// LoadRules reads a rule file, or returns the built-in rules when path is empty.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read soil rules: %w", err)
	}
	return ParseRules(string(data))
}

// ParseRules decodes TOML rules and compiles the soil patterns.
func ParseRules(doc string) (*Rules, error) {
	var r Rules
	if _, err := toml.Decode(doc, &r); err != nil {
		return nil, fmt.Errorf("decode soil rules: %w", err)
	}
	if r.Defaults.BulkDensity <= 0 {
		return nil, fmt.Errorf("decode soil rules: defaults.bulk_density must be positive")
	}
	for i := range r.Regions {
		if r.Regions[i].SoilPattern == "" {
			continue
		}
		re, err := regexp.Compile(r.Regions[i].SoilPattern)
		if err != nil {
			return nil, fmt.Errorf("region %q soil_pattern: %w", r.Regions[i].Name, err)
		}
		r.Regions[i].pattern = re
	}
	return &r, nil
}

// Match returns the rule for a soil with unset values filled from the defaults.
func (r *Rules) Match(soil domain.Soil) Rule {
	for _, reg := range r.Regions {
		if soil.Region != "" && strings.EqualFold(reg.Name, soil.Region) {
			return r.withDefaults(reg)
		}
	}
	for _, reg := range r.Regions {
		if reg.pattern != nil && reg.pattern.MatchString(soil.Name) {
			return r.withDefaults(reg)
		}
	}
	return r.Defaults
}

func (r *Rules) withDefaults(reg Rule) Rule {
	if reg.BulkDensity <= 0 {
		reg.BulkDensity = r.Defaults.BulkDensity
	}
	if reg.MaxRootDepth <= 0 {
		reg.MaxRootDepth = r.Defaults.MaxRootDepth
	}
	if reg.ECThreshold <= 0 {
		reg.ECThreshold = r.Defaults.ECThreshold
	}
	if reg.ClThreshold <= 0 {
		reg.ClThreshold = r.Defaults.ClThreshold
	}
	return reg
}

// Apply converts the sample to volumetric water, kg/ha nitrogen and pH in
// water, and sets the soil's maximum root depth. Rooting stops at the top of
// the first layer whose EC or Cl exceeds the region's threshold.
func (r *Rules) Apply(soil *domain.Soil, sample *domain.Sample) error {
	rule := r.Match(*soil)

	convertWater := false
	switch sample.WaterUnit {
	case "", domain.WaterVolumetric:
	case domain.WaterGravimetric:
		convertWater = true
	default:
		return fmt.Errorf("water unit %q: %w", sample.WaterUnit, ErrUnsupportedUnit)
	}
	convertN := false
	switch sample.NitrogenUnit {
	case "", domain.NitrogenKgPerHa:
	case domain.NitrogenPPM:
		convertN = true
	default:
		return fmt.Errorf("nitrogen unit %q: %w", sample.NitrogenUnit, ErrUnsupportedUnit)
	}
	convertPH := false
	switch {
	case sample.PHUnit == "", strings.EqualFold(sample.PHUnit, domain.PHWater):
	case strings.EqualFold(sample.PHUnit, domain.PHCaCl2):
		convertPH = true
	default:
		return fmt.Errorf("pH unit %q: %w", sample.PHUnit, ErrUnsupportedUnit)
	}

	rootDepth := rule.MaxRootDepth
	var depth float64
	constrained := false
	for i := range sample.Layers {
		l := &sample.Layers[i]
		if convertWater {
			l.SW *= rule.BulkDensity
		}
		if convertN {
			l.NO3 = ppmToKgPerHa(l.NO3, rule.BulkDensity, l.Thickness)
			l.NH4 = ppmToKgPerHa(l.NH4, rule.BulkDensity, l.Thickness)
		}
		if convertPH && l.PH != 0 {
			l.PH = CaCl2ToWater(l.PH)
		}
		if !constrained && (exceeds(l.EC, rule.ECThreshold) || exceeds(l.Cl, rule.ClThreshold)) {
			constrained = true
			if depth < rootDepth {
				rootDepth = depth
			}
		}
		depth += l.Thickness
	}

	if convertWater {
		sample.WaterUnit = domain.WaterVolumetric
	}
	if convertN {
		sample.NitrogenUnit = domain.NitrogenKgPerHa
	}
	if convertPH {
		sample.PHUnit = domain.PHWater
	}
	soil.MaxRootDepth = rootDepth
	return nil
}

// CaCl2ToWater converts pH measured in CaCl2 to pH in water.
func CaCl2ToWater(ph float64) float64 {
	return 1.1045*ph + 0.1375
}

// ppmToKgPerHa converts a mineral N concentration in a layer of thickness mm
// to an areal amount.
func ppmToKgPerHa(ppm, bulkDensity, thickness float64) float64 {
	return ppm * bulkDensity * thickness / 100
}

func exceeds(v, threshold float64) bool {
	return threshold > 0 && v > threshold
}
