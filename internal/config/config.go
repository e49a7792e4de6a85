// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.10.13
//

// Package config loads the processing configuration of the gopvt command
// from a YAML file, GOPVT_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkhts/gopvt"
	"github.com/spf13/viper"
)

// Layout of start and end epochs in the configuration (GPST)
const TimeLayout = "2006/01/02 15:04:05"

// Config represents the complete application configuration
type Config struct {
	Mode         string        `mapstructure:"mode"`          // spp
	SolutionType string        `mapstructure:"solution_type"` // pvt or time
	Solver       gopvt.Config  `mapstructure:"solver"`
	Input        InputConfig   `mapstructure:"input"`
	Apriori      AprioriConfig `mapstructure:"apriori"`
	Output       OutputConfig  `mapstructure:"output"`
	Logging      LoggingConfig `mapstructure:"logging"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
}

// InputConfig holds the input files and the epoch and satellite selection
type InputConfig struct {
	Obs         string   `mapstructure:"obs"`          // RINEX 3 observation file
	Nav         string   `mapstructure:"nav"`          // RINEX 3 navigation file
	SP3         string   `mapstructure:"sp3"`          // Precise orbits, used instead of the broadcast orbit when set
	Systems     []string `mapstructure:"systems"`      // G, J, E, C
	ExcludeSats []string `mapstructure:"exclude_sats"` // Like C02, E14
	CnMask      float64  `mapstructure:"cn_mask"`      // [dB-Hz]
	Start       string   `mapstructure:"start"`        // Processing start, TimeLayout
	End         string   `mapstructure:"end"`          // Processing end (included), TimeLayout
	Interval    int      `mapstructure:"interval"`     // [s], 0 processes every epoch
}

// AprioriConfig gives the initial linearization point. When neither is set,
// the first fix comes from the Bancroft method.
type AprioriConfig struct {
	ECEF []float64 `mapstructure:"ecef"` // x, y, z [m]
	LLH  []float64 `mapstructure:"llh"`  // Latitude, longitude [deg], height [m]
}

// OutputConfig holds the solution sinks
type OutputConfig struct {
	Pos      string       `mapstructure:"pos"`       // Pos file path, stdout when empty
	NoHeader bool         `mapstructure:"no_header"` // Skip the pos file header
	SQLite   string       `mapstructure:"sqlite"`    // SQLite database path
	Influx   InfluxConfig `mapstructure:"influx"`
}

// InfluxConfig holds the InfluxDB v2 connection. Disabled when URL is empty.
type InfluxConfig struct {
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus exposition
type MetricsConfig struct {
	Listen      string `mapstructure:"listen"`       // Address of the /metrics endpoint, disabled when empty
	PushGateway string `mapstructure:"push_gateway"` // Pushgateway URL, disabled when empty
	Job         string `mapstructure:"job"`
}

// Load reads configuration from path, environment variables and the flags
// already bound to v. v may be nil, path may be empty.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	// Enable environment variable override, e.g. GOPVT_LOGGING_LEVEL
	v.SetEnvPrefix("GOPVT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "spp")
	v.SetDefault("solution_type", "pvt")

	// Solver defaults
	d := gopvt.DefaultConfig()
	v.SetDefault("solver.modeling.sv_clock_bias", d.Modeling.SvClockBias)
	v.SetDefault("solver.modeling.sv_total_group_delay", d.Modeling.SvTotalGroupDelay)
	v.SetDefault("solver.modeling.tropo_delay", d.Modeling.TropoDelay)
	v.SetDefault("solver.modeling.iono_delay", d.Modeling.IonoDelay)
	v.SetDefault("solver.modeling.earth_rotation", d.Modeling.EarthRotation)
	v.SetDefault("solver.modeling.relativistic_clock_corr", d.Modeling.RelativisticClockCorr)
	v.SetDefault("solver.interp_order", d.InterpOrder)
	v.SetDefault("solver.pr_selection", string(d.PrSelection))
	v.SetDefault("solver.primary_frequency", d.PrimaryFrequency)
	v.SetDefault("solver.weight_mode", int(d.WeightMode))
	v.SetDefault("solver.tropo_model", string(d.TropoModel))
	v.SetDefault("solver.max_iter", d.MaxIter)
	v.SetDefault("solver.convergence_threshold", d.ConvergenceThreshold)

	// Input defaults
	v.SetDefault("input.systems", []string{"G", "J", "E", "C"})
	v.SetDefault("input.cn_mask", 0.0)
	v.SetDefault("input.interval", 0)

	// Output defaults
	v.SetDefault("output.influx.measurement", "pvt")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Metrics defaults
	v.SetDefault("metrics.job", "gopvt")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	var errs []error

	if _, err := gopvt.ParseMode(c.Mode); err != nil {
		errs = append(errs, fmt.Errorf("mode must be spp: %w", err))
	}
	if _, err := gopvt.ParseSolutionType(c.SolutionType); err != nil {
		errs = append(errs, fmt.Errorf("solution_type must be pvt or time: %w", err))
	}
	if err := c.Solver.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("solver: %w", err))
	}

	// Input
	if c.Input.Obs == "" {
		errs = append(errs, errors.New("input.obs is required"))
	}
	if c.Input.Nav == "" {
		errs = append(errs, errors.New("input.nav is required"))
	}
	if _, err := c.Input.SysTypes(); err != nil {
		errs = append(errs, fmt.Errorf("input.systems: %w", err))
	}
	for _, s := range c.Input.ExcludeSats {
		if len(s) != 3 || !gopvt.SatType(s).Sys().IsValid() {
			errs = append(errs, fmt.Errorf("input.exclude_sats must be satellite names like G05, got %q", s))
		}
	}
	if c.Input.CnMask < 0 {
		errs = append(errs, errors.New("input.cn_mask must not be negative"))
	}
	if c.Input.Interval < 0 {
		errs = append(errs, errors.New("input.interval must not be negative"))
	}
	if _, _, err := c.Input.Window(); err != nil {
		errs = append(errs, err)
	}

	// Apriori
	if len(c.Apriori.ECEF) > 0 && len(c.Apriori.LLH) > 0 {
		errs = append(errs, errors.New("apriori.ecef and apriori.llh are exclusive"))
	}
	if n := len(c.Apriori.ECEF); n != 0 && n != 3 {
		errs = append(errs, fmt.Errorf("apriori.ecef must have 3 values, got %d", n))
	}
	if n := len(c.Apriori.LLH); n != 0 && n != 3 {
		errs = append(errs, fmt.Errorf("apriori.llh must have 3 values, got %d", n))
	}

	// Output
	if c.Output.Influx.URL != "" && (c.Output.Influx.Bucket == "" || c.Output.Influx.Org == "") {
		errs = append(errs, errors.New("output.influx.org and output.influx.bucket are required when output.influx.url is set"))
	}

	// Logging
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errs = append(errs, errors.New("logging.level must be one of: debug, info, warn, error"))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, errors.New("logging.format must be one of: json, text"))
	}

	// Metrics
	if c.Metrics.PushGateway != "" && c.Metrics.Job == "" {
		errs = append(errs, errors.New("metrics.job is required when metrics.push_gateway is set"))
	}

	return errors.Join(errs...)
}

// SysTypes parses the configured satellite systems
func (c *InputConfig) SysTypes() ([]gopvt.SysType, error) {
	return gopvt.ParseSystems(strings.Join(c.Systems, ","))
}

// ExcludedSats returns the excluded satellites
func (c *InputConfig) ExcludedSats() []gopvt.SatType {
	s := make([]gopvt.SatType, len(c.ExcludeSats))
	for i, a := range c.ExcludeSats {
		s[i] = gopvt.SatType(a)
	}
	return s
}

// Window returns the processing window. An empty start is the zero time,
// an empty end is open.
func (c *InputConfig) Window() (ts, te time.Time, err error) {
	te = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	if c.Start != "" {
		if ts, err = time.Parse(TimeLayout, c.Start); err != nil {
			return ts, te, fmt.Errorf("input.start must be formatted as %q: %w", TimeLayout, err)
		}
	}
	if c.End != "" {
		if te, err = time.Parse(TimeLayout, c.End); err != nil {
			return ts, te, fmt.Errorf("input.end must be formatted as %q: %w", TimeLayout, err)
		}
	}
	if te.Before(ts) {
		return ts, te, errors.New("input.end must not be before input.start")
	}
	return ts, te, nil
}

// AprioriPosition returns the configured apriori, ok is false when none is
// given.
func (c *Config) AprioriPosition() (a gopvt.AprioriPosition, ok bool) {
	switch {
	case len(c.Apriori.ECEF) == 3:
		return gopvt.AprioriFromECEF(gopvt.PosXYZ{X: c.Apriori.ECEF[0], Y: c.Apriori.ECEF[1], Z: c.Apriori.ECEF[2]}), true
	case len(c.Apriori.LLH) == 3:
		return gopvt.AprioriFromGeodetic(gopvt.PosLLH{
			Lat: gopvt.ToRad(c.Apriori.LLH[0]),
			Lon: gopvt.ToRad(c.Apriori.LLH[1]),
			Hei: c.Apriori.LLH[2],
		}), true
	}
	return a, false
}
