package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	yaml "gopkg.in/yaml.v2"
)

// ErrInvalid is wrapped by all validation errors.
var ErrInvalid = errors.New("invalid configuration")

// Config represents configuration for the monitor
type Config struct {
	Web struct {
		ListenAddress   string   `yaml:"listen-address"`
		TelemetryPath   string   `yaml:"telemetry-path"`
		RefreshInterval duration `yaml:"refresh-interval"`
	} `yaml:"web"`

	Sample struct {
		Interval duration `yaml:"interval"`
		Timeout  duration `yaml:"timeout"`
	} `yaml:"sample"`

	Ping struct {
		Timeout     duration `yaml:"timeout"`
		Size        uint16   `yaml:"payload-size"`
		Unreachable string   `yaml:"unreachable"`
	} `yaml:"ping"`

	Speedtest struct {
		Candidates int `yaml:"candidates"`
	} `yaml:"speedtest"`

	DNS struct {
		Nameserver string `yaml:"nameserver"`
	} `yaml:"dns"`

	Metrics struct {
		RTTUnit string            `yaml:"rttunit"`
		Labels  map[string]string `yaml:"labels"`
	} `yaml:"metrics"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

type duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (d *duration) UnmarshalYAML(unmashal func(interface{}) error) error {
	var s string
	if err := unmashal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler interface.
func (d duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration is a convenience getter.
func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// Set updates the underlying duration.
func (d *duration) Set(dur time.Duration) {
	*d = duration(dur)
}

// FromYAML reads YAML from reader and unmarshals it to Config
func FromYAML(r io.Reader) (*Config, error) {
	c := &Config{}
	err := yaml.NewDecoder(r).Decode(c)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LoadFile reads the config file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot load config file: %w", err)
	}
	defer f.Close()

	cfg, err := FromYAML(f)
	if err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks all values are within their allowed ranges.
func (c *Config) Validate() error {
	if c.Web.ListenAddress == "" {
		return fmt.Errorf("%w: web.listen-address must not be empty", ErrInvalid)
	}
	if c.Web.RefreshInterval <= 0 {
		return fmt.Errorf("%w: web.refresh-interval must be greater than 0", ErrInvalid)
	}
	if c.Sample.Interval <= 0 {
		return fmt.Errorf("%w: sample.interval must be greater than 0", ErrInvalid)
	}
	if c.Sample.Timeout <= 0 {
		return fmt.Errorf("%w: sample.timeout must be greater than 0", ErrInvalid)
	}
	if c.Ping.Timeout <= 0 {
		return fmt.Errorf("%w: ping.timeout must be greater than 0", ErrInvalid)
	}
	if c.Ping.Size > 65500 {
		return fmt.Errorf("%w: ping.payload-size must be between 0 and 65500", ErrInvalid)
	}
	switch c.Ping.Unreachable {
	case "zero", "skip":
	default:
		return fmt.Errorf("%w: ping.unreachable must be `zero` or `skip`", ErrInvalid)
	}
	if c.Speedtest.Candidates < 1 {
		return fmt.Errorf("%w: speedtest.candidates must be greater than 0", ErrInvalid)
	}
	switch c.Metrics.RTTUnit {
	case "ms", "s", "both":
	default:
		return fmt.Errorf("%w: metrics.rttunit must be `ms`, `s` or `both`", ErrInvalid)
	}
	for name := range c.Metrics.Labels {
		if !model.LabelName(name).IsValid() || strings.HasPrefix(name, model.ReservedLabelPrefix) {
			return fmt.Errorf("%w: metrics.labels: %q is not a valid label name", ErrInvalid, name)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("%w: log.level must be one of [debug, info, warn, error, fatal]", ErrInvalid)
	}

	return nil
}
