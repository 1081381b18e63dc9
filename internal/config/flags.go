package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Options are command-line switches that are not part of Config
type Options struct {
	ConfigPath string
	Version    bool
}

// Parse builds a Config from defaults, the optional config file, the
// environment and args, in increasing order of precedence.
func Parse(args []string, getenv func(string) string, stderr io.Writer) (Config, Options, error) {
	var (
		opts     Options
		flagCfg  Config
		sizes    string
		flagsSet = make(map[string]bool)
	)

	fs := flag.NewFlagSet("speedlog", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to a YAML or TOML config file")
	fs.BoolVar(&opts.Version, "version", false, "Print version")
	fs.StringVar(&flagCfg.DatabasePath, "db", "", "Database path")
	fs.StringVar(&flagCfg.Ping.Target, "target", "", "IPv4 address to probe")
	fs.DurationVar(&flagCfg.Ping.Timeout, "timeout", 0, "Probe timeout")
	fs.StringVar(&flagCfg.Ping.Mode, "ping-mode", "", "Probe implementation: icmp or exec")
	fs.StringVar(&flagCfg.Measure.BaseURL, "base-url", "", "Speed test endpoint")
	fs.IntVar(&flagCfg.Measure.LatencySamples, "latency-samples", 0, "Latency samples per run")
	fs.StringVar(&sizes, "payload-sizes", "", "Comma-separated throughput payload sizes in bytes")
	fs.IntVar(&flagCfg.Measure.ThroughputSamples, "samples", 0, "Throughput trials per payload size")
	fs.BoolVar(&flagCfg.Measure.DynamicSizing, "dynamic-sizing", false, "Skip larger payloads once trials get slow")
	fs.DurationVar(&flagCfg.Measure.HTTPTimeout, "http-timeout", 0, "Per-request timeout for the speed test (0 = none)")
	fs.StringVar(&flagCfg.Schedule, "schedule", "", "Cron spec for repeated runs, e.g. \"@every 15m\" (empty = run once)")
	fs.StringVar(&flagCfg.Log.Level, "log-level", "", "Log level")
	fs.StringVar(&flagCfg.Log.Format, "log-format", "", "Log format: auto, text or json")
	fs.StringVar(&flagCfg.Log.File, "log-file", "", "Write logs to a rotated file instead of stderr")
	fs.BoolVar(&flagCfg.Verbose, "v", false, "Print raw samples")

	if err := fs.Parse(args); err != nil {
		return Config{}, opts, err
	}
	if fs.NArg() > 0 {
		return Config{}, opts, fmt.Errorf("%w: unexpected argument %q", ErrInvalid, fs.Arg(0))
	}
	fs.Visit(func(f *flag.Flag) { flagsSet[f.Name] = true })

	cfg := Default()
	if opts.ConfigPath != "" {
		if err := LoadFile(opts.ConfigPath, &cfg); err != nil {
			return Config{}, opts, err
		}
	}

	applyEnv(&cfg, getenv, stderr)

	if flagsSet["payload-sizes"] {
		parsed, err := parseSizes(sizes)
		if err != nil {
			return Config{}, opts, err
		}
		flagCfg.Measure.PayloadSizes = parsed
	}
	applyFlags(&cfg, flagCfg, flagsSet)

	return cfg, opts, nil
}

func applyEnv(cfg *Config, getenv func(string) string, stderr io.Writer) {
	if val := getenv("SPEEDLOG_DB"); val != "" {
		cfg.DatabasePath = val
	}
	if val := getenv("SPEEDLOG_TARGET"); val != "" {
		cfg.Ping.Target = val
	}
	if val := getenv("SPEEDLOG_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ping.Timeout = d
		} else {
			fmt.Fprintf(stderr, "speedlog: warning: invalid SPEEDLOG_TIMEOUT value '%s' (must be a duration), ignoring\n", val)
		}
	}
	if val := getenv("SPEEDLOG_PING_MODE"); val != "" {
		cfg.Ping.Mode = val
	}
	if val := getenv("SPEEDLOG_BASE_URL"); val != "" {
		cfg.Measure.BaseURL = val
	}
	if val := getenv("SPEEDLOG_SCHEDULE"); val != "" {
		cfg.Schedule = val
	}
	if val := getenv("SPEEDLOG_LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
}

func applyFlags(cfg *Config, f Config, set map[string]bool) {
	if set["db"] {
		cfg.DatabasePath = f.DatabasePath
	}
	if set["target"] {
		cfg.Ping.Target = f.Ping.Target
	}
	if set["timeout"] {
		cfg.Ping.Timeout = f.Ping.Timeout
	}
	if set["ping-mode"] {
		cfg.Ping.Mode = f.Ping.Mode
	}
	if set["base-url"] {
		cfg.Measure.BaseURL = f.Measure.BaseURL
	}
	if set["latency-samples"] {
		cfg.Measure.LatencySamples = f.Measure.LatencySamples
	}
	if set["payload-sizes"] {
		cfg.Measure.PayloadSizes = f.Measure.PayloadSizes
	}
	if set["samples"] {
		cfg.Measure.ThroughputSamples = f.Measure.ThroughputSamples
	}
	if set["dynamic-sizing"] {
		cfg.Measure.DynamicSizing = f.Measure.DynamicSizing
	}
	if set["http-timeout"] {
		cfg.Measure.HTTPTimeout = f.Measure.HTTPTimeout
	}
	if set["schedule"] {
		cfg.Schedule = f.Schedule
	}
	if set["log-level"] {
		cfg.Log.Level = f.Log.Level
	}
	if set["log-format"] {
		cfg.Log.Format = f.Log.Format
	}
	if set["log-file"] {
		cfg.Log.File = f.Log.File
	}
	if set["v"] {
		cfg.Verbose = f.Verbose
	}
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: payload size %q: %v", ErrInvalid, part, err)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
