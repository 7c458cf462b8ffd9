package domain

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

// OutputFrequency is how often the engine reports simulation state.
type OutputFrequency string

const (
	OutputDaily  OutputFrequency = "daily"
	OutputYearly OutputFrequency = "yearly"
)

// specNamespace scopes name-based simulation IDs.
var specNamespace = uuid.MustParse("6f1c2a7e-52d4-4a51-9a0c-3f5d7c1e9b20")

// SpecID derives a stable simulation ID from the job and variant.
func SpecID(jobID, variant string) uuid.UUID {
	return uuid.NewSHA1(specNamespace, []byte(jobID+"|"+variant))
}

// CalculatedFields are values derived from the paddock and its resolved
// weather rather than supplied by the grower.
type CalculatedFields struct {
	StubbleIncorporatedPercent *float64   `json:"stubble_incorporated_percent,omitempty"`
	DateOfLastRainfallEntry    civil.Date `json:"date_of_last_rainfall_entry,omitzero"`
	RainfallSinceSample        float64    `json:"rainfall_since_sample"`
}

// SimulationSpec is one run of the external engine. It is built fresh for
// each request and handed off whole.
type SimulationSpec struct {
	ID         uuid.UUID        `json:"id"`
	JobID      string           `json:"job_id"`
	Paddock    string           `json:"paddock"`
	Variant    string           `json:"variant"`
	Report     ReportType       `json:"report"`
	Station    int              `json:"station"`
	Start      civil.Date       `json:"start"`
	End        civil.Date       `json:"end"`
	Now        civil.Date       `json:"now"`
	Output     OutputFrequency  `json:"output"`
	DepthFile  bool             `json:"depth_file,omitempty"`
	Soil       Soil             `json:"soil"`
	Sample     Sample           `json:"sample"`
	Stubble    Stubble          `json:"stubble"`
	Management Management       `json:"management"`
	Calculated CalculatedFields `json:"calculated"`

	// WeatherFiles and DecileFile hold archive locations once the files are stored.
	WeatherFiles []string `json:"weather_files,omitempty"`
	DecileFile   string   `json:"decile_file,omitempty"`

	Weather []weather.File       `json:"-"`
	Deciles *weather.DecileTable `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Clone copies the spec so a variant can change dates, management and sample
// without touching its base. Weather files are shared.
func (s *SimulationSpec) Clone() *SimulationSpec {
	out := *s
	out.Sample = s.Sample.Clone()
	out.Management = s.Management.Clone()
	out.WeatherFiles = append([]string(nil), s.WeatherFiles...)
	out.Weather = append([]weather.File(nil), s.Weather...)
	return &out
}
