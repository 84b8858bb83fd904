package config

import (
	"fmt"
	"strings"
	"time"
)

// InputFormat selects how a pre-recorded samples file is parsed.
type InputFormat string

const (
	// InputFormatAuto picks the format from the file extension.
	InputFormatAuto InputFormat = ""
	InputFormatText InputFormat = "text"
	InputFormatJSON InputFormat = "json"
)

// Config holds all settings for one detection run. A run measures either a
// pre-recorded samples file (Input) or a live HTTP target (TargetURL plus the
// per-side request settings).
type Config struct {
	Input       string      `mapstructure:"input"`
	InputFormat InputFormat `mapstructure:"input_format"`

	TargetURL string            `mapstructure:"target"`
	Method    string            `mapstructure:"method"`
	Headers   map[string]string `mapstructure:"headers"`
	Reference RequestConfig     `mapstructure:"reference"`
	Probe     RequestConfig     `mapstructure:"probe"`
	Rate      int               `mapstructure:"rate"`
	Timeout   time.Duration     `mapstructure:"timeout"`

	Rounds         int     `mapstructure:"rounds"`
	Alpha          float64 `mapstructure:"alpha"`
	InitialSamples int     `mapstructure:"initial_samples"`
	MaxSamples     int     `mapstructure:"max_samples"`
	Seed           int64   `mapstructure:"seed"`

	JSONOutput bool          `mapstructure:"json_output"`
	Progress   bool          `mapstructure:"progress"`
	Tracing    TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// RequestConfig describes one side's request. URL and Body default to the
// shared target settings; the probe side normally overrides one of them with
// the time-delaying payload.
type RequestConfig struct {
	URL  string `mapstructure:"url"`
	Body string `mapstructure:"body"`
}

// TracingConfig configures the optional OTLP trace export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether trace export is configured.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// LiveMode reports whether the run measures a live HTTP target rather than a
// pre-recorded file.
func (c Config) LiveMode() bool {
	return strings.TrimSpace(c.Input) == ""
}

// ReferenceURL resolves the reference side's effective URL.
func (c Config) ReferenceURL() string { return c.sideURL(c.Reference) }

// ProbeURL resolves the probe side's effective URL.
func (c Config) ProbeURL() string { return c.sideURL(c.Probe) }

func (c Config) sideURL(side RequestConfig) string {
	if u := strings.TrimSpace(side.URL); u != "" {
		return u
	}
	return strings.TrimSpace(c.TargetURL)
}

// Validate checks the assembled configuration and reports every issue at
// once.
func (c Config) Validate() error {
	var issues []string

	if c.LiveMode() {
		refURL := c.ReferenceURL()
		probeURL := c.ProbeURL()
		if refURL == "" || probeURL == "" {
			issues = append(issues, "either an input file or a target URL is required (use --help for usage information)")
		} else if refURL == probeURL && c.Reference.Body == c.Probe.Body {
			issues = append(issues, "reference and probe requests are identical; the probe side must carry the suspected payload")
		}
	} else if strings.TrimSpace(c.TargetURL) != "" {
		issues = append(issues, "input file and target URL are mutually exclusive")
	}

	switch c.InputFormat {
	case InputFormatAuto, InputFormatText, InputFormatJSON:
	default:
		issues = append(issues, fmt.Sprintf("input_format: must be 'text' or 'json', got %q", c.InputFormat))
	}

	if c.Rounds < 1 {
		issues = append(issues, "rounds must be >= 1")
	}
	if c.Alpha <= 0 || c.Alpha >= 1 {
		issues = append(issues, fmt.Sprintf("alpha must be in (0, 1), got %g", c.Alpha))
	}
	if c.InitialSamples < 1 {
		issues = append(issues, "initial_samples must be >= 1")
	}
	if c.MaxSamples < c.InitialSamples {
		issues = append(issues, fmt.Sprintf("max_samples (%d) must be >= initial_samples (%d)", c.MaxSamples, c.InitialSamples))
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Tracing.Protocol)) {
	case "", "http", "grpc":
	default:
		issues = append(issues, fmt.Sprintf("tracing.protocol: must be 'http' or 'grpc', got %q", c.Tracing.Protocol))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing.sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(issues, "; "))
	}
	return nil
}
