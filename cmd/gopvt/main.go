// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mkhts/gopvt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Set by -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command line flags and the configuration keys they override
var flagKeys = map[string]string{
	"out":            "output.pos",
	"no-header":      "output.no_header",
	"sqlite":         "output.sqlite",
	"sp3":            "input.sp3",
	"sys":            "input.systems",
	"exsats":         "input.exclude_sats",
	"ts":             "input.start",
	"te":             "input.end",
	"ti":             "input.interval",
	"type":           "solution_type",
	"log-level":      "logging.level",
	"metrics-listen": "metrics.listen",
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var configFn string

	root := &cobra.Command{
		Use:   "gopvt [flags] [obs_file] [nav_file]",
		Short: "Single point positioning from RINEX 3 observations",
		Long: `gopvt computes a position and receiver clock bias for every epoch of a
RINEX 3 observation file, using broadcast ephemerides or precise SP3 orbits.
Solutions are written to a pos file and optionally to SQLite and InfluxDB.

Examples:
  gopvt rover.obs brdc.nav
  gopvt -c gopvt.yaml --sys G,E --ts "2024/01/15 12:00:00" -o rover.pos
  gopvt rover.obs brdc.nav --sp3 igs.sp3 --type time`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFn, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runApplication(ctx, cfg, os.Args[0])
		},
	}

	f := root.Flags()
	f.StringVarP(&configFn, "config", "c", "", "configuration file (YAML)")
	f.StringP("out", "o", "", "output pos file (default: stdout)")
	f.Bool("no-header", false, "do not print the pos file header")
	f.String("sqlite", "", "SQLite database receiving the solutions")
	f.String("sp3", "", "precise orbit file, replaces the broadcast orbit")
	f.StringSlice("sys", nil, "satellite systems (G,J,E,C)")
	f.StringSlice("exsats", nil, "excluded satellites (e.g. C02,E14)")
	f.String("ts", "", "start time yyyy/mm/dd hh:mm:ss (GPST)")
	f.String("te", "", "end time yyyy/mm/dd hh:mm:ss (GPST)")
	f.Int("ti", 0, "time interval [s]")
	f.String("type", "", "solution type (pvt, time)")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("metrics-listen", "", "address of the Prometheus /metrics endpoint")
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gopvt %s\n", version)
		},
	}
}

// loadConfig merges the configuration file, environment and flags. The
// positional arguments are the observation and navigation files.
func loadConfig(v *viper.Viper, configFn string, args []string) (*config.Config, error) {
	if len(args) > 0 {
		v.Set("input.obs", args[0])
	}
	if len(args) > 1 {
		v.Set("input.nav", args[1])
	}
	cfg, err := config.Load(v, configFn)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
