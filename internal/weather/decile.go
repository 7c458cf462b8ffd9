package weather

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/xuri/excelize/v2"
)

// DecileRow holds the 10th, 50th and 90th percentile of cumulative season
// rainfall at the start of one month.
type DecileRow struct {
	Date    civil.Date
	Decile1 float64
	Decile5 float64
	Decile9 float64
}

// DecileTable has one row per month for the twelve months from the season start.
type DecileTable struct {
	Rows []DecileRow
}

// ComputeDeciles accumulates daily rain from the first day of start's month
// each year and records each month-end total against the following calendar
// month. Row k of the result is the distribution of rain accumulated before
// month start+k; the start month itself has no prior rain and is zero. Months
// no year contributed to are zero.
func ComputeDeciles(t *Table, start civil.Date) *DecileTable {
	var buckets [12][]float64
	var sum float64
	started := false
	for i := 0; i < t.Len(); i++ {
		row := t.Rows[i]
		if row.Date.Day == 1 && row.Date.Month == start.Month {
			sum = 0
			started = true
		}
		if v, ok := row.Value(Rain); ok {
			sum += v
		}
		if !started {
			continue
		}
		next := row.Date.AddDays(1)
		if next.Month != row.Date.Month {
			buckets[next.Month-1] = append(buckets[next.Month-1], sum)
		}
	}

	out := &DecileTable{Rows: make([]DecileRow, 0, 12)}
	first := civil.Date{Year: start.Year, Month: start.Month, Day: 1}
	for k := 0; k < 12; k++ {
		m := (int(start.Month)-1+k)%12 + 1
		row := DecileRow{Date: civil.Date{
			Year:  first.Year + (int(start.Month)-1+k)/12,
			Month: time.Month(m),
			Day:   1,
		}}
		if k > 0 {
			bucket := buckets[m-1]
			sort.Float64s(bucket)
			row.Decile1 = percentile(bucket, 0.1)
			row.Decile5 = percentile(bucket, 0.5)
			row.Decile9 = percentile(bucket, 0.9)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// percentile returns the first value of an ascending slice whose plotting
// position rank/(n+1) reaches p, or the maximum when none does.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	n := float64(len(sorted))
	for i, v := range sorted {
		if float64(i+1)/(n+1) >= p {
			return v
		}
	}
	return sorted[len(sorted)-1]
}

// WriteTo writes the table as fixed-width text.
func (d *DecileTable) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%10s %11s %11s %11s\n", "Date", "RainDecile1", "RainDecile5", "RainDecile9")
	for _, r := range d.Rows {
		fmt.Fprintf(&buf, "%10s %11.1f %11.1f %11.1f\n", formatDMY(r.Date), r.Decile1, r.Decile5, r.Decile9)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// Bytes renders the text table into memory.
func (d *DecileTable) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

const decileSheet = "Deciles"

// WriteXLSX writes the table as a single-sheet workbook.
func (d *DecileTable) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", decileSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	header := []any{"Date", "RainDecile1", "RainDecile5", "RainDecile9"}
	if err := f.SetSheetRow(decileSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range d.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{formatDMY(r.Date), r.Decile1, r.Decile5, r.Decile9}
		if err := f.SetSheetRow(decileSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func formatDMY(d civil.Date) string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, int(d.Month), d.Year)
}
