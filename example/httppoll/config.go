package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	yaml "go.yaml.in/yaml/v3"
)

// Duration reads a time.ParseDuration string, e.g. "30s" or "1m30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) D() time.Duration {
	return time.Duration(d)
}

type Config struct {
	ID           string   `yaml:"id"`
	URL          string   `yaml:"url"`
	Interval     Duration `yaml:"interval"`
	Fallback     Duration `yaml:"fallback"`
	StartupDelay Duration `yaml:"startup_delay"`
	Timeout      Duration `yaml:"timeout"`
	DelayPath    string   `yaml:"delay_path"`

	Transition struct {
		Window        Duration `yaml:"window"`
		ShortInterval Duration `yaml:"short_interval"`
	} `yaml:"transition"`

	RateLimit struct {
		Every Duration `yaml:"every"`
		Burst int      `yaml:"burst"`
	} `yaml:"rate_limit"`

	Executor struct {
		Kind      string `yaml:"kind"` // "timer" or "pool"
		Workers   int    `yaml:"workers"`
		QueueSize int    `yaml:"queue_size"`
	} `yaml:"executor"`

	History struct {
		Sqlite string   `yaml:"sqlite"`
		Keep   Duration `yaml:"keep"`
		Size   int      `yaml:"size"`
	} `yaml:"history"`

	Log struct {
		Level      string   `yaml:"level"`
		ErrorEvery Duration `yaml:"error_every"`
		ErrorBurst int      `yaml:"error_burst"`
	} `yaml:"log"`
}

func DefaultConfig() *Config {
	cfg := &Config{
		Interval:     Duration(30 * time.Second),
		Fallback:     Duration(time.Minute),
		StartupDelay: Duration(time.Second),
		Timeout:      Duration(10 * time.Second),
	}
	cfg.Executor.Kind = "timer"
	cfg.Executor.Workers = 1
	cfg.Executor.QueueSize = 4
	cfg.History.Size = 256
	cfg.Log.Level = "info"
	cfg.Log.ErrorEvery = Duration(10 * time.Second)
	cfg.Log.ErrorBurst = 3
	return cfg
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// ParseConfig decodes b over DefaultConfig. Unknown keys are rejected.
func ParseConfig(b []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid config: url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid config: url must be http or https, got %q", c.URL)
	}
	for name, d := range map[string]Duration{
		"interval":                  c.Interval,
		"fallback":                  c.Fallback,
		"startup_delay":             c.StartupDelay,
		"timeout":                   c.Timeout,
		"transition.window":         c.Transition.Window,
		"transition.short_interval": c.Transition.ShortInterval,
		"rate_limit.every":          c.RateLimit.Every,
		"history.keep":              c.History.Keep,
		"log.error_every":           c.Log.ErrorEvery,
	} {
		if d < 0 {
			return fmt.Errorf("invalid config: %s is negative", name)
		}
	}
	switch c.Executor.Kind {
	case "timer":
	case "pool":
		if c.Executor.Workers <= 0 || c.Executor.QueueSize < 0 {
			return fmt.Errorf("invalid config: pool executor needs workers > 0 and queue_size >= 0")
		}
	default:
		return fmt.Errorf("invalid config: unknown executor kind %q", c.Executor.Kind)
	}
	if c.History.Sqlite == "" && c.History.Size <= 0 {
		return fmt.Errorf("invalid config: history.size must be positive")
	}
	return nil
}
