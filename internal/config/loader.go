package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a
// Config. Flag values override config-file values.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		Method:         "GET",
		Headers:        map[string]string{},
		Timeout:        30 * time.Second,
		Rounds:         bootstrap.DefaultRounds,
		Alpha:          bootstrap.DefaultAlpha,
		InitialSamples: 4,
		MaxSamples:     60,
		Tracing:        TracingConfig{Protocol: "http", SampleRate: 1.0},
		ConfigFile:     configPath,
	}

	if err := applyConfigSettings(cfg, cfgViper.AllSettings()); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Method = strings.ToUpper(strings.TrimSpace(cfg.Method))
	cfg.TargetURL = strings.TrimSpace(cfg.TargetURL)
	cfg.Input = strings.TrimSpace(cfg.Input)
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "input"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("input: %w", err)
		}
		cfg.Input = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "inputformat", "input_format", "input-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("input_format: %w", err)
		}
		cfg.InputFormat = InputFormat(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("target: %w", err)
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "method"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("method: %w", err)
		}
		if val != "" {
			cfg.Method = val
		}
	}

	if raw, ok := lookupSetting(settings, "headers"); ok {
		hdrs, err := asStringMap(raw)
		if err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for k, v := range hdrs {
			cfg.Headers[k] = v
		}
	}

	if raw, ok := lookupSetting(settings, "reference"); ok {
		side, err := parseRequestConfig(raw)
		if err != nil {
			return fmt.Errorf("reference: %w", err)
		}
		cfg.Reference = side
	}

	if raw, ok := lookupSetting(settings, "probe"); ok {
		side, err := parseRequestConfig(raw)
		if err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		cfg.Probe = side
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "rounds"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rounds: %w", err)
		}
		cfg.Rounds = val
	}

	if raw, ok := lookupSetting(settings, "alpha"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return fmt.Errorf("alpha: %w", err)
		}
		cfg.Alpha = val
	}

	if raw, ok := lookupSetting(settings, "initialsamples", "initial_samples", "initial-samples"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("initial_samples: %w", err)
		}
		cfg.InitialSamples = val
	}

	if raw, ok := lookupSetting(settings, "maxsamples", "max_samples", "max-samples"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("max_samples: %w", err)
		}
		cfg.MaxSamples = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "progress"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
		cfg.Progress = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		tracing, err := parseTracingConfig(raw)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		if tracing.Protocol == "" {
			tracing.Protocol = cfg.Tracing.Protocol
		}
		cfg.Tracing = tracing
	}

	return nil
}

func parseRequestConfig(value interface{}) (RequestConfig, error) {
	if value == nil {
		return RequestConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return RequestConfig{}, err
	}

	var side RequestConfig
	if raw, ok := lookupSetting(entry, "url", "target"); ok {
		val, err := asString(raw)
		if err != nil {
			return RequestConfig{}, fmt.Errorf("url: %w", err)
		}
		side.URL = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "body"); ok {
		val, err := asString(raw)
		if err != nil {
			return RequestConfig{}, fmt.Errorf("body: %w", err)
		}
		side.Body = val
	}
	return side, nil
}

func parseTracingConfig(value interface{}) (TracingConfig, error) {
	if value == nil {
		return TracingConfig{}, nil
	}
	entry, err := toStringKeyMap(value)
	if err != nil {
		return TracingConfig{}, err
	}

	tracing := TracingConfig{SampleRate: 1.0}
	if raw, ok := lookupSetting(entry, "endpoint"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("endpoint: %w", err)
		}
		tracing.Endpoint = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "protocol"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("protocol: %w", err)
		}
		tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if raw, ok := lookupSetting(entry, "servicename", "service_name", "service-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("service_name: %w", err)
		}
		tracing.ServiceName = strings.TrimSpace(val)
	}
	if raw, ok := lookupSetting(entry, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("sample_rate: %w", err)
		}
		tracing.SampleRate = val
	}
	if raw, ok := lookupSetting(entry, "insecure"); ok {
		val, err := asBool(raw)
		if err != nil {
			return TracingConfig{}, fmt.Errorf("insecure: %w", err)
		}
		tracing.Insecure = val
	}
	return tracing, nil
}
