package config

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"speedlog/internal/ping"
	"speedlog/internal/report"
	"speedlog/internal/speedtest"
)

var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultDatabasePath = "speedlog.db"
	DefaultTarget       = "1.1.1.1"
	DefaultTimeout      = 5 * time.Second
)

// Config holds all configuration for speedlog
type Config struct {
	DatabasePath string        `yaml:"database" toml:"database"`
	Schedule     string        `yaml:"schedule" toml:"schedule"`
	Verbose      bool          `yaml:"verbose" toml:"verbose"`
	Ping         PingConfig    `yaml:"ping" toml:"ping"`
	Measure      MeasureConfig `yaml:"measure" toml:"measure"`
	Log          LogConfig     `yaml:"log" toml:"log"`
}

// PingConfig configures the reachability probe
type PingConfig struct {
	Target  string        `yaml:"target" toml:"target"`
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	Payload string        `yaml:"payload" toml:"payload"`
	Mode    string        `yaml:"mode" toml:"mode"`
}

// MeasureConfig configures the speed test
type MeasureConfig struct {
	BaseURL           string        `yaml:"base_url" toml:"base_url"`
	LatencySamples    int           `yaml:"latency_samples" toml:"latency_samples"`
	PayloadSizes      []int         `yaml:"payload_sizes" toml:"payload_sizes"`
	ThroughputSamples int           `yaml:"throughput_samples" toml:"throughput_samples"`
	DynamicSizing     bool          `yaml:"dynamic_sizing" toml:"dynamic_sizing"`
	HTTPTimeout       time.Duration `yaml:"http_timeout" toml:"http_timeout"`
}

// LogConfig configures logging output
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
	File   string `yaml:"file" toml:"file"`
}

// Default returns the reference configuration
func Default() Config {
	params := report.DefaultParams()
	return Config{
		DatabasePath: DefaultDatabasePath,
		Ping: PingConfig{
			Target:  DefaultTarget,
			Timeout: DefaultTimeout,
			Payload: string(ping.DefaultPayload),
			Mode:    ping.ModeICMP,
		},
		Measure: MeasureConfig{
			BaseURL:           speedtest.DefaultBaseURL,
			LatencySamples:    params.LatencySamples,
			PayloadSizes:      params.PayloadSizes,
			ThroughputSamples: params.ThroughputSamples,
			DynamicSizing:     params.DynamicSizing,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return invalid("database path cannot be empty")
	}
	if ip := net.ParseIP(c.Ping.Target); ip == nil || ip.To4() == nil {
		return invalid("ping target %q must be an IPv4 address", c.Ping.Target)
	}
	if c.Ping.Timeout <= 0 {
		return invalid("ping timeout must be positive")
	}
	if c.Ping.Mode != ping.ModeICMP && c.Ping.Mode != ping.ModeExec {
		return invalid("ping mode %q must be icmp or exec", c.Ping.Mode)
	}
	if c.Measure.BaseURL == "" {
		return invalid("measurement base URL cannot be empty")
	}
	if c.Measure.LatencySamples <= 0 {
		return invalid("latency samples must be positive")
	}
	if c.Measure.ThroughputSamples <= 0 {
		return invalid("throughput samples must be positive")
	}
	if len(c.Measure.PayloadSizes) == 0 {
		return invalid("at least one payload size must be specified")
	}
	for _, size := range c.Measure.PayloadSizes {
		if size <= 0 {
			return invalid("payload size %d must be positive", size)
		}
	}
	if c.Measure.HTTPTimeout < 0 {
		return invalid("http timeout cannot be negative")
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return invalid("schedule %q: %v", c.Schedule, err)
		}
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return invalid("log level: %v", err)
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		return invalid("log format %q must be auto, text or json", c.Log.Format)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}
