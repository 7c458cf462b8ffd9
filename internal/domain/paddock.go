package domain

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// ReportType selects how a paddock expands into simulations.
type ReportType string

const (
	ReportCrop              ReportType = "crop"
	ReportSowingOpportunity ReportType = "sowing-opportunity"
)

// Water sample units.
const (
	WaterGravimetric = "gravimetric"
	WaterVolumetric  = "volumetric"
)

// Nitrogen sample units.
const (
	NitrogenPPM     = "ppm"
	NitrogenKgPerHa = "kg/ha"
)

// pH sample units.
const (
	PHWater = "water"
	PHCaCl2 = "CaCl2"
)

// Paddock is one job's immutable input.
type Paddock struct {
	JobID      string        `json:"job_id" yaml:"job_id"`
	Name       string        `json:"name" yaml:"name"`
	Station    int           `json:"station" yaml:"station"`
	Season     int           `json:"season,omitempty" yaml:"season,omitempty"`
	Now        civil.Date    `json:"now,omitzero" yaml:"now,omitempty"`
	Report     ReportType    `json:"report" yaml:"report"`
	Soil       Soil          `json:"soil" yaml:"soil"`
	Sample     Sample        `json:"sample" yaml:"sample"`
	Stubble    Stubble       `json:"stubble" yaml:"stubble"`
	Management Management    `json:"management" yaml:"management"`
	Observed   []ObservedDay `json:"observed,omitempty" yaml:"observed,omitempty"`
}

// Soil identifies the soil profile the engine loads and the region whose
// correction rules apply to it.
type Soil struct {
	Name         string  `json:"name" yaml:"name"`
	Path         string  `json:"path,omitempty" yaml:"path,omitempty"`
	Region       string  `json:"region,omitempty" yaml:"region,omitempty"`
	MaxRootDepth float64 `json:"max_root_depth,omitempty" yaml:"max_root_depth,omitempty"` // mm, set by the builder
}

// Sample is the layered soil sample with its declared units.
type Sample struct {
	WaterDate    civil.Date `json:"water_date" yaml:"water_date"`
	NitrogenDate civil.Date `json:"nitrogen_date,omitzero" yaml:"nitrogen_date,omitempty"`
	WaterUnit    string     `json:"water_unit,omitempty" yaml:"water_unit,omitempty"`
	NitrogenUnit string     `json:"nitrogen_unit,omitempty" yaml:"nitrogen_unit,omitempty"`
	PHUnit       string     `json:"ph_unit,omitempty" yaml:"ph_unit,omitempty"`
	Layers       []Layer    `json:"layers" yaml:"layers"`
}

// Layer is one sampled depth interval.
type Layer struct {
	Thickness float64 `json:"thickness" yaml:"thickness"` // mm
	SW        float64 `json:"sw,omitempty" yaml:"sw,omitempty"`
	NO3       float64 `json:"no3,omitempty" yaml:"no3,omitempty"`
	NH4       float64 `json:"nh4,omitempty" yaml:"nh4,omitempty"`
	PH        float64 `json:"ph,omitempty" yaml:"ph,omitempty"`
	EC        float64 `json:"ec,omitempty" yaml:"ec,omitempty"` // dS/m
	Cl        float64 `json:"cl,omitempty" yaml:"cl,omitempty"` // mg/kg
}

// Clone returns a copy of the sample with its own layer slice.
func (s Sample) Clone() Sample {
	s.Layers = append([]Layer(nil), s.Layers...)
	return s
}

// Stubble describes surface residue at the start of the simulation.
type Stubble struct {
	Type string  `json:"type,omitempty" yaml:"type,omitempty"`
	Mass float64 `json:"mass,omitempty" yaml:"mass,omitempty"` // kg/ha
}

// ObservedDay is one day of paddock weather recorded by the grower. Unset
// fields leave the provider's values in place.
type ObservedDay struct {
	Date civil.Date `json:"date" yaml:"date"`
	Rain *float64   `json:"rain,omitempty" yaml:"rain,omitempty"`
	MaxT *float64   `json:"maxt,omitempty" yaml:"maxt,omitempty"`
	MinT *float64   `json:"mint,omitempty" yaml:"mint,omitempty"`
	Radn *float64   `json:"radn,omitempty" yaml:"radn,omitempty"`
}

// SeasonYear returns the paddock's season, defaulting to the now date's year.
func (p Paddock) SeasonYear() int {
	if p.Season != 0 {
		return p.Season
	}
	return p.NowDate().Year
}

// NowDate returns the paddock's now date, defaulting to today.
func (p Paddock) NowDate() civil.Date {
	if IsSet(p.Now) {
		return p.Now
	}
	return Today()
}

// SeasonStart is 1 April of the season year.
func (p Paddock) SeasonStart() civil.Date {
	return civil.Date{Year: p.SeasonYear(), Month: time.April, Day: 1}
}

// ObservedTable converts the observed days into a date-ordered weather table
// with every set field coded as observed.
func (p Paddock) ObservedTable() *weather.Table {
	days := append([]ObservedDay(nil), p.Observed...)
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	t := &weather.Table{Rows: make([]weather.Row, 0, len(days))}
	for _, d := range days {
		row := weather.NewRow(d.Date)
		setIf(&row, weather.Radn, d.Radn)
		setIf(&row, weather.MaxT, d.MaxT)
		setIf(&row, weather.MinT, d.MinT)
		setIf(&row, weather.Rain, d.Rain)
		t.Rows = append(t.Rows, row)
	}
	weather.TagAll(t, weather.Observed)
	return t
}

func setIf(row *weather.Row, f weather.Field, v *float64) {
	if v != nil {
		row.Set(f, *v)
	}
}
