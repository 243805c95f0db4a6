package config

import (
	"fmt"
	"time"
)

// Config represents a docqa.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	APIURL        string            `yaml:"api_url"`
	Headers       map[string]string `yaml:"headers,omitempty"`
	Timeout       Duration          `yaml:"timeout"`
	MaxFileSizeMB int               `yaml:"max_file_size_mb"`
	LogLevel      string            `yaml:"log_level"`
	Reports       ReportsConfig     `yaml:"reports"`
	Adapter       AdapterConfig     `yaml:"adapter"`
	Watch         WatchConfig       `yaml:"watch"`
}

// ReportsConfig holds upload report storage defaults.
// An empty backend disables reports.
type ReportsConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds notification adapter defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Stream  string            `yaml:"stream,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// WatchConfig holds watch command defaults.
type WatchConfig struct {
	Concurrency int      `yaml:"concurrency"`
	Interval    Duration `yaml:"interval"`
	Debounce    Duration `yaml:"debounce"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.String(), nil
}
