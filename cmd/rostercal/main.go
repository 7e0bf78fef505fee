package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rostercal/internal/calendar"
	"rostercal/internal/config"
	appLog "rostercal/internal/log"
	"rostercal/internal/shift"
)

const version = "0.3.0"

// rootOptions holds the global flags.
type rootOptions struct {
	configPath string
	verbose    bool
	timezone   string
	preset     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "rostercal",
		Short: "Turn a fortnightly work roster into per-employee calendars",
		Long: `rostercal reads a roster table (xlsx, xls, docx or csv) whose second row
holds the dates and whose following rows hold one employee each, and writes
an iCalendar (.ics) file of that employee's shifts.

Shift cells look like "9:00-17:30" or "22.00-06.00"; a shift ending at or
before its start time finishes the next day.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				appLog.UseConsole()
				appLog.SetLevel(appLog.LevelDebug)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			appLog.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Path to config file (defaults are used when empty)")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Human-readable debug logging")
	pf.StringVar(&opts.timezone, "timezone", "", "IANA timezone of the roster (overrides config)")
	pf.StringVar(&opts.preset, "policy", "", `Roster layout preset: "default" or "haka" (overrides config)`)

	root.AddCommand(
		newNamesCmd(opts),
		newExportCmd(opts),
		newInspectCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// loadConfig reads --config when given and applies flag overrides. One-off
// commands never create a config file.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		cfg = loaded
	}
	if o.timezone != "" {
		cfg.Timezone = o.timezone
	}
	if o.preset != "" {
		cfg.Policy.Preset = o.preset
		cfg.Policy.Custom = nil
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newGenerator(cfg *config.Config) (*calendar.Generator, error) {
	loc, err := shift.LoadZone(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return calendar.New(calendar.Options{
		Location:      loc,
		SummaryPrefix: cfg.SummaryPrefix,
		Concurrency:   cfg.Concurrency,
	})
}
