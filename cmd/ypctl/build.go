package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/yieldprophet-runner/internal/archive"
	"github.com/couchcryptid/yieldprophet-runner/internal/archive/core"
	"github.com/couchcryptid/yieldprophet-runner/internal/domain"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/simspec"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		jobFile   string
		rulesPath string
		years     int
		outDir    string
		format    string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Expand a job file into simulation specs",
		Long: "Read a YAML or JSON job file, build every simulation its report needs and print " +
			"the spec list. --out archives weather files, deciles and specs under a directory.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			paddock, err := readJobFile(jobFile)
			if err != nil {
				return err
			}
			rules, err := simspec.LoadRules(rulesPath)
			if err != nil {
				return err
			}

			domain.SetClock(a.clock)
			builder := simspec.NewBuilder(a.synthesizer(), rules, years, a.logger)
			specs, err := builder.Build(cmd.Context(), paddock)
			if err != nil {
				return err
			}

			if outDir != "" {
				store, err := archive.Open(cmd.Context(), archive.Config{Driver: core.DriverFilesystem, FSRoot: outDir})
				if err != nil {
					return err
				}
				archiver := archive.NewArchiver(store, observability.NewMetricsForTesting(), a.logger)
				if err := archiver.ArchiveJob(cmd.Context(), specs); err != nil {
					return err
				}
			}

			switch format {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(specs)
			case "table":
				return printSpecTable(cmd, specs)
			default:
				return fmt.Errorf("unknown --format %q", format)
			}
		},
	}
	f := cmd.Flags()
	f.StringVarP(&jobFile, "file", "f", "", "job file (.yaml, .yml or .json)")
	f.StringVar(&rulesPath, "rules", os.Getenv("SOIL_RULES_PATH"), "soil rules TOML; empty uses the built-in rules")
	f.IntVar(&years, "years", simspec.DefaultLongTermYears, "historical years for long-term weather")
	f.StringVar(&outDir, "out", "", "archive artifacts under this directory")
	f.StringVar(&format, "format", "table", "output format: table or json")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readJobFile decodes a job by file extension and validates it.
func readJobFile(path string) (domain.Paddock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Paddock{}, fmt.Errorf("read job file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var p domain.Paddock
		if err := yaml.Unmarshal(data, &p); err != nil {
			return domain.Paddock{}, fmt.Errorf("parse job: %w: %w", domain.ErrInvalidJob, err)
		}
		if p.JobID == "" {
			p.JobID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		return p, domain.ValidatePaddock(p)
	default:
		key := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return domain.ParseJob(domain.RawEvent{Key: []byte(key), Value: data})
	}
}

func printSpecTable(cmd *cobra.Command, specs []*domain.SimulationSpec) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VARIANT\tSTART\tEND\tOUTPUT\tWEATHER\tRAIN SINCE SAMPLE")
	for _, s := range specs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1f\n",
			s.Variant, s.Start, s.End, s.Output, len(s.Weather), s.Calculated.RainfallSinceSample)
	}
	return tw.Flush()
}
