// Package config carries runtime options for i2cirqmon: defaults, per
// subcommand flags, I2CIRQMON_* environment overrides, and an optional YAML
// file with discovery and display tuning.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config carries runtime options for i2cirqmon.
type Config struct {
	Interval        time.Duration
	Count           int
	Threshold       float64
	HistoryCapacity int

	ProcRoot string
	SysRoot  string

	JSON       bool
	JSONStream bool
	AltScreen  bool

	LogLevel   string
	LogFile    string
	ConfigFile string

	File File
}

func Default() Config {
	return Config{
		Interval:        time.Second,
		Count:           0,
		Threshold:       100,
		HistoryCapacity: 300,
		ProcRoot:        "/proc",
		SysRoot:         "/sys",
		AltScreen:       true,
		LogLevel:        "warn",
		File:            DefaultFile(),
	}
}

// Subcommands that take flags.
const (
	CmdList    = "list"
	CmdMonitor = "monitor"
	CmdTUI     = "tui"
)

// NewFlagSet registers the flags cmd understands, bound to cfg.
func NewFlagSet(cmd string, cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SortFlags = false

	switch cmd {
	case CmdMonitor, CmdTUI:
		fs.VarP((*interval)(&cfg.Interval), "interval", "i", "sampling interval (Go duration or milliseconds)")
		fs.Float64VarP(&cfg.Threshold, "threshold", "t", cfg.Threshold, "highlight sources above this many irqs/s")
		fs.IntVar(&cfg.HistoryCapacity, "history", cfg.HistoryCapacity, "samples kept per source")
	}
	switch cmd {
	case CmdList:
		fs.BoolVar(&cfg.JSON, "json", cfg.JSON, "print the topology as JSON")
	case CmdMonitor:
		fs.IntVarP(&cfg.Count, "count", "n", cfg.Count, "number of samples (0 = unlimited)")
		fs.BoolVar(&cfg.JSONStream, "json-stream", cfg.JSONStream, "emit one JSON snapshot per sample")
	case CmdTUI:
		fs.BoolVar(&cfg.AltScreen, "alt-screen", cfg.AltScreen, "use the terminal alternate screen buffer")
	}

	fs.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "YAML file with palette and discovery settings")
	fs.StringVar(&cfg.ProcRoot, "proc", cfg.ProcRoot, "procfs mount point")
	fs.StringVar(&cfg.SysRoot, "sys", cfg.SysRoot, "sysfs mount point")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "panic|fatal|error|warn|info|debug|trace")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append logs to this file")
	return fs
}

// Parse builds the configuration for cmd: defaults, then flags, then
// environment for anything not set on the command line, then the YAML file.
// It returns pflag.ErrHelp when -h was given.
func Parse(cmd string, args []string) (Config, []string, error) {
	cfg := Default()
	fs := NewFlagSet(cmd, &cfg)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return cfg, nil, err
	}
	if err := cfg.applyEnv(fs); err != nil {
		return cfg, nil, err
	}
	if cfg.ConfigFile != "" {
		f, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return cfg, nil, err
		}
		cfg.File = f
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, fs.Args(), nil
}

func (c *Config) applyEnv(fs *pflag.FlagSet) error {
	changed := func(name string) bool {
		f := fs.Lookup(name)
		return f != nil && f.Changed
	}
	if v := os.Getenv("I2CIRQMON_INTERVAL"); v != "" && !changed("interval") {
		if err := (*interval)(&c.Interval).Set(v); err != nil {
			return fmt.Errorf("I2CIRQMON_INTERVAL: %w", err)
		}
	}
	if v := os.Getenv("I2CIRQMON_THRESHOLD"); v != "" && !changed("threshold") {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("I2CIRQMON_THRESHOLD: %w", err)
		}
		c.Threshold = f
	}
	if v := os.Getenv("I2CIRQMON_HISTORY"); v != "" && !changed("history") {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("I2CIRQMON_HISTORY: %w", err)
		}
		c.HistoryCapacity = n
	}
	if v := os.Getenv("I2CIRQMON_CONFIG"); v != "" && !changed("config") {
		c.ConfigFile = v
	}
	return nil
}

// Validate rejects settings the sampler cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be > 0 (got %s)", c.Interval))
	}
	if c.Count < 0 {
		errs = append(errs, fmt.Errorf("count must be >= 0 (got %d)", c.Count))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Errorf("threshold must be >= 0 (got %g)", c.Threshold))
	}
	if c.HistoryCapacity < 2 {
		errs = append(errs, fmt.Errorf("history must be >= 2 (got %d)", c.HistoryCapacity))
	}
	if err := c.File.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// interval is a pflag.Value accepting "250ms", "2s" or a bare millisecond
// count.
type interval time.Duration

func (i *interval) String() string { return time.Duration(*i).String() }

func (i *interval) Type() string { return "duration" }

func (i *interval) Set(s string) error {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*i = interval(time.Duration(ms) * time.Millisecond)
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid interval %q", s)
	}
	*i = interval(d)
	return nil
}

// CompilePattern compiles the controller name pattern from the file.
func (c *Config) CompilePattern() (*regexp.Regexp, error) {
	return regexp.Compile(c.File.ControllerPattern)
}
