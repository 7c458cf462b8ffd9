package weather

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

const codesLegend = "! codes (radn,maxt,mint,rain): S=SILO H=historical O=observed P=forecast, lowercase=current season"

// File is a named weather series ready to be written for the simulation engine.
type File struct {
	Name    string
	Station Station
	Table   *Table
}

// WriteTo writes the file in the engine's fixed-column met format.
func (f File) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Latitude = %g\n", f.Station.Latitude)
	fmt.Fprintf(&buf, "Longitude = %g\n", f.Station.Longitude)
	fmt.Fprintf(&buf, "TAV = %g\n", f.Station.TAV)
	fmt.Fprintf(&buf, "AMP = %g\n", f.Station.AMP)
	buf.WriteString(codesLegend + "\n")
	fmt.Fprintf(&buf, "%10s%8s%8s%8s%8s %5s\n", "date", "radn", "maxt", "mint", "rain", "codes")
	fmt.Fprintf(&buf, "%10s%8s%8s%8s%8s %5s\n", "()", "(MJ/m2)", "(oC)", "(oC)", "(mm)", "()")
	for i := 0; i < f.Table.Len(); i++ {
		r := f.Table.Rows[i]
		radn, _ := r.Value(Radn)
		maxt, _ := r.Value(MaxT)
		mint, _ := r.Value(MinT)
		rain, _ := r.Value(Rain)
		fmt.Fprintf(&buf, "%10s%8.1f%8.1f%8.1f%8.1f %5s\n", r.Date, radn, maxt, mint, rain, r.Codes)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Bytes renders the file into memory.
func (f File) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = f.WriteTo(&buf)
	return buf.Bytes()
}

// ParseFile reads a daily weather text file: either a file written by
// [File.WriteTo] or the provider's format. Header lines are "key = value",
// lines starting with "!" are comments, the first other line names the
// columns and an optional line of parenthesised units follows it.
//
// Rows are identified by a "date" column (yyyy-mm-dd or dd/mm/yyyy) or by
// "year" and "day" (day of year) columns. A file with a header and no rows
// yields an empty table, not an error.
func ParseFile(r io.Reader) (Station, *Table, error) {
	var (
		st      Station
		columns []string
		table   = &Table{}
		lineNo  int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "!") || strings.HasPrefix(line, "[") {
			continue
		}
		if columns == nil {
			if key, value, ok := strings.Cut(line, "="); ok {
				if err := parseHeader(&st, key, value); err != nil {
					return Station{}, nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				continue
			}
			columns = strings.Fields(strings.ToLower(line))
			continue
		}
		if strings.HasPrefix(line, "(") {
			continue
		}
		row, err := parseRow(columns, strings.Fields(line))
		if err != nil {
			return Station{}, nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		table.Rows = append(table.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return Station{}, nil, fmt.Errorf("read weather file: %w", err)
	}
	return st, table, nil
}

func parseHeader(st *Station, key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return nil
	}
	switch key {
	case "latitude", "longitude", "tav", "amp":
	case "station", "station_number":
		n, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		st.Number = n
		return nil
	default:
		return nil
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	switch key {
	case "latitude":
		st.Latitude = v
	case "longitude":
		st.Longitude = v
	case "tav":
		st.TAV = v
	case "amp":
		st.AMP = v
	}
	return nil
}

func parseRow(columns, values []string) (Row, error) {
	var (
		row       Row
		year, doy int
		haveDate  bool
	)
	for i, col := range columns {
		if i >= len(values) {
			break
		}
		v := values[i]
		switch col {
		case "date":
			d, err := parseDate(v)
			if err != nil {
				return Row{}, err
			}
			row.Date = d
			haveDate = true
		case "year":
			n, err := strconv.Atoi(v)
			if err != nil {
				return Row{}, fmt.Errorf("parse year %q: %w", v, err)
			}
			year = n
		case "day":
			n, err := strconv.Atoi(v)
			if err != nil {
				return Row{}, fmt.Errorf("parse day %q: %w", v, err)
			}
			doy = n
		case "code", "codes":
			if len(v) == NumFields {
				row.Codes = v
			}
		default:
			f, ok := ParseField(col)
			if !ok {
				continue
			}
			x, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Row{}, fmt.Errorf("parse %s %q: %w", col, v, err)
			}
			row.Set(f, x)
		}
	}
	if !haveDate {
		if year == 0 || doy == 0 {
			return Row{}, fmt.Errorf("row has no date")
		}
		row.Date = civil.Date{Year: year, Month: time.January, Day: 1}.AddDays(doy - 1)
	}
	return row, nil
}

func parseDate(s string) (civil.Date, error) {
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return civil.DateOf(t), nil
}
