package weather

import (
	"fmt"
	"strings"
	"unicode"
)

// Source is the single character provenance code for a value.
type Source byte

const (
	Synthetic  Source = 'S'
	Historical Source = 'H'
	Observed   Source = 'O'
	Forecast   Source = 'P'
)

// CurrentSeason returns the lowercase marker used when current-season data is
// pasted into another year's slice.
func (s Source) CurrentSeason() Source {
	return Source(unicode.ToLower(rune(s)))
}

// TagAll sets every row's code string to src repeated once per tracked field.
func TagAll(t *Table, src Source) {
	codes := strings.Repeat(string(src), NumFields)
	for i := 0; i < t.Len(); i++ {
		t.Rows[i].Codes = codes
	}
}

// MarkCurrentSeason lowercases every code in the table.
func MarkCurrentSeason(t *Table) {
	for i := 0; i < t.Len(); i++ {
		t.Rows[i].Codes = strings.ToLower(t.Rows[i].Codes)
	}
}

// OverlayRow copies each present field of from into into and records from's
// code for that field. Fields absent in from are left untouched.
func OverlayRow(from Row, into *Row, fields []Field) {
	for _, f := range fields {
		v, ok := from.Value(f)
		if !ok {
			continue
		}
		into.Set(f, v)
		code := from.Code(f)
		if code == 0 {
			code = byte(Observed)
		}
		into.setCode(f, code)
	}
}

// Overlay applies every row of over onto the matching date of base. Rows of
// over dated outside base are skipped. base must be contiguous.
func Overlay(base, over *Table) error {
	for i := 0; i < over.Len(); i++ {
		idx, err := base.IndexOf(over.Rows[i].Date)
		if err != nil {
			return fmt.Errorf("overlay: %w", err)
		}
		if idx < 0 {
			continue
		}
		OverlayRow(over.Rows[i], &base.Rows[idx], Fields)
	}
	return nil
}
