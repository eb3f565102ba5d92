package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	f, err := os.Open("testdata/config_test.yml")
	if err != nil {
		t.Error("failed to open file", err)
		t.FailNow()
	}

	c, err := FromYAML(f)
	f.Close()
	if err != nil {
		t.Error("failed to parse", err)
		t.FailNow()
	}

	if expected := ":9050"; c.Web.ListenAddress != expected {
		t.Errorf("expected web.listen-address to be %q, got %q", expected, c.Web.ListenAddress)
	}
	if expected := "/prom"; c.Web.TelemetryPath != expected {
		t.Errorf("expected web.telemetry-path to be %q, got %q", expected, c.Web.TelemetryPath)
	}
	if expected := 10 * time.Second; c.Web.RefreshInterval.Duration() != expected {
		t.Errorf("expected web.refresh-interval to be %v, got %v", expected, c.Web.RefreshInterval)
	}
	if expected := 30 * time.Second; time.Duration(c.Sample.Interval) != expected {
		t.Errorf("expected sample.interval to be %v, got %v", expected, c.Sample.Interval)
	}
	if expected := 90 * time.Second; time.Duration(c.Sample.Timeout) != expected {
		t.Errorf("expected sample.timeout to be %v, got %v", expected, c.Sample.Timeout)
	}
	if expected := 3 * time.Second; time.Duration(c.Ping.Timeout) != expected {
		t.Errorf("expected ping.timeout to be %v, got %v", expected, c.Ping.Timeout)
	}
	if expected := 120; c.Ping.Size != uint16(expected) {
		t.Errorf("expected ping.payload-size to be %d, got %d", expected, c.Ping.Size)
	}
	if expected := "skip"; c.Ping.Unreachable != expected {
		t.Errorf("expected ping.unreachable to be %q, got %q", expected, c.Ping.Unreachable)
	}
	if expected := 3; c.Speedtest.Candidates != expected {
		t.Errorf("expected speedtest.candidates to be %d, got %d", expected, c.Speedtest.Candidates)
	}
	if expected := "1.1.1.1"; c.DNS.Nameserver != expected {
		t.Errorf("expected dns.nameserver to be %q, got %q", expected, c.DNS.Nameserver)
	}
	if expected := "both"; c.Metrics.RTTUnit != expected {
		t.Errorf("expected metrics.rttunit to be %q, got %q", expected, c.Metrics.RTTUnit)
	}
	if expected := map[string]string{"site": "home", "isp": "example"}; !reflect.DeepEqual(expected, c.Metrics.Labels) {
		t.Errorf("expected metrics.labels to be %v, got %v", expected, c.Metrics.Labels)
	}
	if expected := "debug"; c.Log.Level != expected {
		t.Errorf("expected log.level to be %q, got %q", expected, c.Log.Level)
	}

	if err := c.Validate(); err != nil {
		t.Errorf("expected test config to be valid, got %v", err)
	}
}

func TestParseConfigInvalidDuration(t *testing.T) {
	_, err := FromYAML(strings.NewReader("sample:\n  interval: soon\n"))
	assert.Error(t, err)
}

func validConfig() *Config {
	c := &Config{}
	c.Web.ListenAddress = ":8050"
	c.Web.RefreshInterval.Set(5 * time.Second)
	c.Sample.Interval.Set(5 * time.Second)
	c.Sample.Timeout.Set(time.Minute)
	c.Ping.Timeout.Set(4 * time.Second)
	c.Ping.Size = 56
	c.Ping.Unreachable = "zero"
	c.Speedtest.Candidates = 5
	c.Metrics.RTTUnit = "ms"
	c.Log.Level = "info"

	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{"valid", func(c *Config) {}, ""},
		{"listen address", func(c *Config) { c.Web.ListenAddress = "" }, "web.listen-address"},
		{"refresh interval", func(c *Config) { c.Web.RefreshInterval = 0 }, "web.refresh-interval"},
		{"sample interval", func(c *Config) { c.Sample.Interval.Set(-time.Second) }, "sample.interval"},
		{"sample timeout", func(c *Config) { c.Sample.Timeout = 0 }, "sample.timeout"},
		{"ping timeout", func(c *Config) { c.Ping.Timeout = 0 }, "ping.timeout"},
		{"payload size", func(c *Config) { c.Ping.Size = 65501 }, "ping.payload-size"},
		{"unreachable", func(c *Config) { c.Ping.Unreachable = "marker" }, "ping.unreachable"},
		{"candidates", func(c *Config) { c.Speedtest.Candidates = 0 }, "speedtest.candidates"},
		{"rtt unit", func(c *Config) { c.Metrics.RTTUnit = "us" }, "metrics.rttunit"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"label name", func(c *Config) { c.Metrics.Labels = map[string]string{"my-site": "home"} }, "metrics.labels"},
		{"reserved label name", func(c *Config) { c.Metrics.Labels = map[string]string{"__site": "home"} }, "metrics.labels"},
		{"valid label names", func(c *Config) { c.Metrics.Labels = map[string]string{"site": "home", "isp_2": "example"} }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(c)

			err := c.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	c, err := LoadFile("testdata/config_test.yml")
	require.NoError(t, err)
	assert.Equal(t, ":9050", c.Web.ListenAddress)
}
