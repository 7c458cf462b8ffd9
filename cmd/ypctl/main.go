// Command ypctl is the operator CLI for the Yield Prophet runner. It writes
// weather and decile files straight from the weather provider and expands job
// files into simulation specs without going through Kafka.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/yieldprophet-runner/internal/adapter/silo"
	"github.com/couchcryptid/yieldprophet-runner/internal/observability"
	"github.com/couchcryptid/yieldprophet-runner/internal/weather"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand.
type app struct {
	baseURL   string
	timeout   time.Duration
	cachePath string
	logLevel  string
	today     string

	logger   *slog.Logger
	clock    clockwork.Clock
	provider *silo.Provider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "ypctl",
		Short:        "Yield Prophet weather and simulation tooling",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	_ = godotenv.Load()
	flags := root.PersistentFlags()
	flags.StringVar(&a.baseURL, "weather-url", os.Getenv("WEATHER_BASE_URL"), "weather provider endpoint (default SILO)")
	flags.DurationVar(&a.timeout, "timeout", 30*time.Second, "weather provider request timeout")
	flags.StringVar(&a.cachePath, "cache", os.Getenv("WEATHER_CACHE_PATH"), "sqlite weather cache file; empty disables")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")
	flags.StringVar(&a.today, "today", "", "override today's date (yyyy-mm-dd)")

	root.AddCommand(newWeatherCmd(a), newDecilesCmd(a), newBuildCmd(a))
	return root
}

func (a *app) setup(stderr io.Writer) error {
	a.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(a.logLevel)}))

	a.clock = clockwork.NewRealClock()
	if a.today != "" {
		d, err := civil.ParseDate(a.today)
		if err != nil {
			return fmt.Errorf("invalid --today: %w", err)
		}
		a.clock = clockwork.NewFakeClockAt(d.In(time.UTC).Add(12 * time.Hour))
	}

	p, err := silo.NewProvider(silo.Options{
		BaseURL:   a.baseURL,
		Timeout:   a.timeout,
		CacheSize: 64,
		CachePath: a.cachePath,
	}, observability.NewMetricsForTesting(), a.logger)
	if err != nil {
		return err
	}
	a.provider = p
	return nil
}

func (a *app) close() error {
	if a.provider == nil {
		return nil
	}
	return a.provider.Close()
}

func (a *app) synthesizer() *weather.Synthesizer {
	return weather.NewSynthesizer(a.provider, a.clock, a.logger)
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// dateFlag parses a required yyyy-mm-dd flag value.
func dateFlag(name, value string) (civil.Date, error) {
	if value == "" {
		return civil.Date{}, fmt.Errorf("--%s is required", name)
	}
	d, err := civil.ParseDate(value)
	if err != nil {
		return civil.Date{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}
