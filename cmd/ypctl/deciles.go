package main

import (
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

func newDecilesCmd(a *app) *cobra.Command {
	var (
		station  int
		start    string
		years    int
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "deciles",
		Short: "Compute rainfall deciles for a season start",
		Long: "Fetch the station's history and print the 10th, 50th and 90th percentile of " +
			"cumulative rainfall at the start of each month. --xlsx also writes a workbook.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := dateFlag("start", start)
			if err != nil {
				return err
			}
			if years <= 0 {
				return fmt.Errorf("--years must be positive, got %d", years)
			}
			histStart := civil.Date{Year: from.Year - years, Month: time.January, Day: 1}
			today := civil.DateOf(a.clock.Now().UTC())

			_, hist, err := a.synthesizer().FetchBaseline(cmd.Context(), station, histStart, today, weather.Historical)
			if err != nil {
				return err
			}
			table := weather.ComputeDeciles(hist, from)

			if _, err := table.WriteTo(cmd.OutOrStdout()); err != nil {
				return err
			}
			if xlsxPath == "" {
				return nil
			}
			out, err := os.Create(xlsxPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", xlsxPath, err)
			}
			if err := table.WriteXLSX(out); err != nil {
				_ = out.Close()
				return err
			}
			return out.Close()
		},
	}
	f := cmd.Flags()
	f.IntVar(&station, "station", 0, "station number")
	f.StringVar(&start, "start", "", "season start (yyyy-mm-dd)")
	f.IntVar(&years, "years", 30, "number of historical years")
	f.StringVar(&xlsxPath, "xlsx", "", "also write the table to this workbook")
	_ = cmd.MarkFlagRequired("station")
	return cmd
}
