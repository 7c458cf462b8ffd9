package weather

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Field identifies one tracked weather variable. The numeric value is the
// field's position in a row's code string.
type Field int

const (
	Radn Field = iota
	MaxT
	MinT
	Rain
)

// NumFields is the number of tracked fields and the length of every code string.
const NumFields = 4

// Fields lists the tracked fields in code-string order.
var Fields = []Field{Radn, MaxT, MinT, Rain}

var fieldNames = [NumFields]string{"radn", "maxt", "mint", "rain"}

func (f Field) String() string {
	if f < 0 || int(f) >= NumFields {
		return fmt.Sprintf("field(%d)", int(f))
	}
	return fieldNames[f]
}

// ParseField resolves a column name (case-insensitive) to a tracked field.
func ParseField(name string) (Field, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range fieldNames {
		if n == name {
			return Field(i), true
		}
	}
	return 0, false
}

// Station holds the provider's header constants for a weather station.
type Station struct {
	Number    int
	Latitude  float64
	Longitude float64
	TAV       float64 // annual average ambient temperature
	AMP       float64 // annual amplitude in mean monthly temperature
}

// Row is one day of weather. Fields are nullable so sparse observed data can
// share the type with complete provider series.
type Row struct {
	Date  civil.Date
	Codes string

	values  [NumFields]float64
	present uint8
}

// NewRow returns an empty row for date.
func NewRow(date civil.Date) Row {
	return Row{Date: date}
}

// Value returns the field's value and whether it is set.
func (r Row) Value(f Field) (float64, bool) {
	if r.present&(1<<uint(f)) == 0 {
		return 0, false
	}
	return r.values[f], true
}

// Set assigns a value to a field.
func (r *Row) Set(f Field, v float64) {
	r.values[f] = v
	r.present |= 1 << uint(f)
}

// Unset clears a field.
func (r *Row) Unset(f Field) {
	r.values[f] = 0
	r.present &^= 1 << uint(f)
}

// Code returns the provenance character for a field, or 0 when the row has no
// well-formed code string.
func (r Row) Code(f Field) byte {
	if len(r.Codes) != NumFields {
		return 0
	}
	return r.Codes[f]
}

func (r *Row) setCode(f Field, c byte) {
	b := []byte(r.Codes)
	if len(b) != NumFields {
		b = []byte(strings.Repeat(string(Synthetic), NumFields))
	}
	b[f] = c
	r.Codes = string(b)
}

// Table is an ordered series of daily rows.
type Table struct {
	Rows []Row
}

// Len returns the number of rows; a nil table has none.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// First returns the first row's date.
func (t *Table) First() civil.Date { return t.Rows[0].Date }

// Last returns the last row's date.
func (t *Table) Last() civil.Date { return t.Rows[len(t.Rows)-1].Date }

// Validate checks that dates increase by exactly one day per row.
func (t *Table) Validate() error {
	for i := 1; i < t.Len(); i++ {
		want := t.Rows[i-1].Date.AddDays(1)
		if t.Rows[i].Date != want {
			return fmt.Errorf("row %d: got %s, want %s: %w", i, t.Rows[i].Date, want, ErrNonConsecutiveDate)
		}
	}
	return nil
}

// IndexOf returns the position of date in a contiguous table, or -1 when the
// date falls outside the table's range.
func (t *Table) IndexOf(date civil.Date) (int, error) {
	if t.Len() == 0 {
		return -1, nil
	}
	i := date.DaysSince(t.First())
	if i < 0 || i >= len(t.Rows) {
		return -1, nil
	}
	if t.Rows[i].Date != date {
		return -1, fmt.Errorf("lookup %s: found %s at offset %d: %w", date, t.Rows[i].Date, i, ErrNonConsecutiveDate)
	}
	return i, nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	rows := make([]Row, len(t.Rows))
	copy(rows, t.Rows)
	return &Table{Rows: rows}
}

// Slice copies up to n rows starting at index from. Fewer rows are returned
// when the table is shorter.
func (t *Table) Slice(from, n int) *Table {
	if from < 0 || from >= t.Len() || n <= 0 {
		return &Table{}
	}
	end := from + n
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	rows := make([]Row, end-from)
	copy(rows, t.Rows[from:end])
	return &Table{Rows: rows}
}

// Window copies the rows dated within [from, to]. It does not require the
// table to be contiguous.
func (t *Table) Window(from, to civil.Date) *Table {
	out := &Table{}
	for i := 0; i < t.Len(); i++ {
		d := t.Rows[i].Date
		if d.Before(from) || d.After(to) {
			continue
		}
		out.Rows = append(out.Rows, t.Rows[i])
	}
	return out
}

// Values returns a field's values in row order, skipping unset entries.
func (t *Table) Values(f Field) []float64 {
	out := make([]float64, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if v, ok := t.Rows[i].Value(f); ok {
			out = append(out, v)
		}
	}
	return out
}
