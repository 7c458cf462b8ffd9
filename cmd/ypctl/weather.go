package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

func newWeatherCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Write weather files from the provider",
	}
	cmd.AddCommand(newWeatherSingleCmd(a), newWeatherLongTermCmd(a))
	return cmd
}

func newWeatherSingleCmd(a *app) *cobra.Command {
	var (
		station    int
		name       string
		start, end string
		outDir     string
	)
	cmd := &cobra.Command{
		Use:   "single",
		Short: "Write one season file for a station and date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := dateFlag("start", start)
			if err != nil {
				return err
			}
			to, err := dateFlag("end", end)
			if err != nil {
				return err
			}
			files, err := a.synthesizer().CreateSingleSeason(cmd.Context(), weather.SingleSeasonRequest{
				Name:    name,
				Station: station,
				Start:   from,
				End:     to,
			})
			if err != nil {
				return err
			}
			return writeFiles(cmd, outDir, files)
		},
	}
	f := cmd.Flags()
	f.IntVar(&station, "station", 0, "station number")
	f.StringVar(&name, "name", "weather", "file base name")
	f.StringVar(&start, "start", "", "first day (yyyy-mm-dd)")
	f.StringVar(&end, "end", "", "last day (yyyy-mm-dd)")
	f.StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("station")
	return cmd
}

func newWeatherLongTermCmd(a *app) *cobra.Command {
	var (
		station                int
		name                   string
		seasonStart, seasonEnd string
		now                    string
		years                  int
		outDir                 string
	)
	cmd := &cobra.Command{
		Use:   "longterm",
		Short: "Write one file per historical year aligned on a season",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := dateFlag("season-start", seasonStart)
			if err != nil {
				return err
			}
			to, err := dateFlag("season-end", seasonEnd)
			if err != nil {
				return err
			}
			nowDate, err := dateFlag("now", now)
			if err != nil {
				return err
			}
			res, err := a.synthesizer().CreateLongTerm(cmd.Context(), weather.LongTermRequest{
				Name:        name,
				Station:     station,
				SeasonStart: from,
				SeasonEnd:   to,
				Now:         nowDate,
				Years:       years,
			}, nil)
			if err != nil {
				return err
			}
			return writeFiles(cmd, outDir, res.Files)
		},
	}
	f := cmd.Flags()
	f.IntVar(&station, "station", 0, "station number")
	f.StringVar(&name, "name", "weather", "file name prefix; the year is appended")
	f.StringVar(&seasonStart, "season-start", "", "first day of the season (yyyy-mm-dd)")
	f.StringVar(&seasonEnd, "season-end", "", "last day of the season (yyyy-mm-dd)")
	f.StringVar(&now, "now", "", "last day of current-season data (yyyy-mm-dd)")
	f.IntVar(&years, "years", 30, "number of historical years")
	f.StringVarP(&outDir, "out", "o", ".", "output directory")
	_ = cmd.MarkFlagRequired("station")
	return cmd
}

func writeFiles(cmd *cobra.Command, dir string, files []weather.File) error {
	if len(files) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no weather data for the requested range")
		return nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, f.Bytes(), 0o640); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
