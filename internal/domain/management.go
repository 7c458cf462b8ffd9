package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"
)

// EventKind is the "type" discriminator of a management event.
type EventKind string

const (
	KindSow                       EventKind = "sow"
	KindFertilise                 EventKind = "fertilise"
	KindIrrigate                  EventKind = "irrigate"
	KindTillage                   EventKind = "tillage"
	KindStubbleRemoved            EventKind = "stubble-removed"
	KindResetWater                EventKind = "reset-water"
	KindResetNitrogen             EventKind = "reset-nitrogen"
	KindResetSurfaceOrganicMatter EventKind = "reset-surface-organic-matter"
)

// Event is one dated management action.
type Event interface {
	Kind() EventKind
	EventDate() civil.Date
}

// Sow plants a crop.
type Sow struct {
	Date       civil.Date
	Crop       string
	Cultivar   string
	Density    float64 // plants/m2
	Depth      float64 // mm
	RowSpacing float64 // mm
}

// Fertilise applies fertiliser.
type Fertilise struct {
	Date       civil.Date
	Fertiliser string
	Amount     float64 // kg/ha
}

// Irrigate applies water.
type Irrigate struct {
	Date       civil.Date
	Amount     float64 // mm
	Efficiency float64
}

// Disturbance is the tillage intensity class.
type Disturbance string

const (
	DisturbanceLow    Disturbance = "low"
	DisturbanceMedium Disturbance = "medium"
	DisturbanceHigh   Disturbance = "high"
)

// IncorporatedPercent maps the disturbance class to the share of surface
// stubble it incorporates.
func (d Disturbance) IncorporatedPercent() (float64, bool) {
	switch Disturbance(strings.ToLower(string(d))) {
	case DisturbanceLow:
		return 20, true
	case DisturbanceMedium:
		return 50, true
	case DisturbanceHigh:
		return 80, true
	default:
		return 0, false
	}
}

// Tillage disturbs the soil surface.
type Tillage struct {
	Date        civil.Date
	Disturbance Disturbance
}

// StubbleRemoved removes a share of surface residue.
type StubbleRemoved struct {
	Date    civil.Date
	Percent float64
}

// ResetWater reinitialises soil water to the sampled profile.
type ResetWater struct{ Date civil.Date }

// ResetNitrogen reinitialises mineral nitrogen to the sampled profile.
type ResetNitrogen struct{ Date civil.Date }

// ResetSurfaceOrganicMatter reinitialises surface residue.
type ResetSurfaceOrganicMatter struct{ Date civil.Date }

func (e Sow) Kind() EventKind                       { return KindSow }
func (e Fertilise) Kind() EventKind                 { return KindFertilise }
func (e Irrigate) Kind() EventKind                  { return KindIrrigate }
func (e Tillage) Kind() EventKind                   { return KindTillage }
func (e StubbleRemoved) Kind() EventKind            { return KindStubbleRemoved }
func (e ResetWater) Kind() EventKind                { return KindResetWater }
func (e ResetNitrogen) Kind() EventKind             { return KindResetNitrogen }
func (e ResetSurfaceOrganicMatter) Kind() EventKind { return KindResetSurfaceOrganicMatter }

func (e Sow) EventDate() civil.Date                       { return e.Date }
func (e Fertilise) EventDate() civil.Date                 { return e.Date }
func (e Irrigate) EventDate() civil.Date                  { return e.Date }
func (e Tillage) EventDate() civil.Date                   { return e.Date }
func (e StubbleRemoved) EventDate() civil.Date            { return e.Date }
func (e ResetWater) EventDate() civil.Date                { return e.Date }
func (e ResetNitrogen) EventDate() civil.Date             { return e.Date }
func (e ResetSurfaceOrganicMatter) EventDate() civil.Date { return e.Date }

// IsReset reports whether e is one of the builder-inserted reset events.
func IsReset(e Event) bool {
	switch e.Kind() {
	case KindResetWater, KindResetNitrogen, KindResetSurfaceOrganicMatter:
		return true
	}
	return false
}

// Management is an event list that encodes as tagged JSON or YAML objects.
type Management []Event

// Clone returns a copy of the list. Events are values, so the copy is deep.
func (m Management) Clone() Management {
	if m == nil {
		return nil
	}
	out := make(Management, len(m))
	copy(out, m)
	return out
}

// Sowing returns the first sow event and its index, or -1.
func (m Management) Sowing() (Sow, int) {
	for i, e := range m {
		if s, ok := e.(Sow); ok {
			return s, i
		}
	}
	return Sow{}, -1
}

// Tillages returns every tillage event in list order.
func (m Management) Tillages() []Tillage {
	var out []Tillage
	for _, e := range m {
		if t, ok := e.(Tillage); ok {
			out = append(out, t)
		}
	}
	return out
}

// SortByDate orders events by date, keeping the existing order for events on
// the same date.
func (m Management) SortByDate() {
	sort.SliceStable(m, func(i, j int) bool {
		return m[i].EventDate().Before(m[j].EventDate())
	})
}

// eventWire is the flat encoding shared by every event kind.
type eventWire struct {
	Type        EventKind   `json:"type" yaml:"type"`
	Date        civil.Date  `json:"date" yaml:"date"`
	Crop        string      `json:"crop,omitempty" yaml:"crop,omitempty"`
	Cultivar    string      `json:"cultivar,omitempty" yaml:"cultivar,omitempty"`
	Density     float64     `json:"density,omitempty" yaml:"density,omitempty"`
	Depth       float64     `json:"depth,omitempty" yaml:"depth,omitempty"`
	RowSpacing  float64     `json:"row_spacing,omitempty" yaml:"row_spacing,omitempty"`
	Fertiliser  string      `json:"fertiliser,omitempty" yaml:"fertiliser,omitempty"`
	Amount      float64     `json:"amount,omitempty" yaml:"amount,omitempty"`
	Efficiency  float64     `json:"efficiency,omitempty" yaml:"efficiency,omitempty"`
	Disturbance Disturbance `json:"disturbance,omitempty" yaml:"disturbance,omitempty"`
	Percent     float64     `json:"percent,omitempty" yaml:"percent,omitempty"`
}

func toWire(e Event) eventWire {
	w := eventWire{Type: e.Kind(), Date: e.EventDate()}
	switch v := e.(type) {
	case Sow:
		w.Crop, w.Cultivar, w.Density, w.Depth, w.RowSpacing = v.Crop, v.Cultivar, v.Density, v.Depth, v.RowSpacing
	case Fertilise:
		w.Fertiliser, w.Amount = v.Fertiliser, v.Amount
	case Irrigate:
		w.Amount, w.Efficiency = v.Amount, v.Efficiency
	case Tillage:
		w.Disturbance = v.Disturbance
	case StubbleRemoved:
		w.Percent = v.Percent
	}
	return w
}

func (w eventWire) event() (Event, error) {
	if !IsSet(w.Date) {
		return nil, fmt.Errorf("%s event has no date: %w", w.Type, ErrInvalidJob)
	}
	switch w.Type {
	case KindSow:
		return Sow{Date: w.Date, Crop: w.Crop, Cultivar: w.Cultivar, Density: w.Density, Depth: w.Depth, RowSpacing: w.RowSpacing}, nil
	case KindFertilise:
		return Fertilise{Date: w.Date, Fertiliser: w.Fertiliser, Amount: w.Amount}, nil
	case KindIrrigate:
		return Irrigate{Date: w.Date, Amount: w.Amount, Efficiency: w.Efficiency}, nil
	case KindTillage:
		return Tillage{Date: w.Date, Disturbance: w.Disturbance}, nil
	case KindStubbleRemoved:
		return StubbleRemoved{Date: w.Date, Percent: w.Percent}, nil
	case KindResetWater:
		return ResetWater{Date: w.Date}, nil
	case KindResetNitrogen:
		return ResetNitrogen{Date: w.Date}, nil
	case KindResetSurfaceOrganicMatter:
		return ResetSurfaceOrganicMatter{Date: w.Date}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q: %w", w.Type, ErrInvalidJob)
	}
}

func (m Management) wires() []eventWire {
	out := make([]eventWire, len(m))
	for i, e := range m {
		out[i] = toWire(e)
	}
	return out
}

func fromWires(wires []eventWire) (Management, error) {
	out := make(Management, 0, len(wires))
	for i, w := range wires {
		e, err := w.event()
		if err != nil {
			return nil, fmt.Errorf("management[%d]: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

// MarshalJSON encodes each event as a tagged object.
func (m Management) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.wires())
}

// UnmarshalJSON decodes tagged event objects.
func (m *Management) UnmarshalJSON(data []byte) error {
	var wires []eventWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}
	out, err := fromWires(wires)
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// MarshalYAML encodes each event as a tagged mapping.
func (m Management) MarshalYAML() (any, error) {
	return m.wires(), nil
}

// UnmarshalYAML decodes tagged event mappings.
func (m *Management) UnmarshalYAML(value *yaml.Node) error {
	var wires []eventWire
	if err := value.Decode(&wires); err != nil {
		return err
	}
	out, err := fromWires(wires)
	if err != nil {
		return err
	}
	*m = out
	return nil
}
