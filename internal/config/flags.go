package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lagprobe",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Input flags
	flags.StringP("input", "i", "", "Path to pre-recorded samples file instead of live probing")
	flags.String("input-format", "", "Samples file format: 'text' or 'json' (default: by extension)")

	// Live probing flags
	flags.String("target", "", "Target URL shared by both request sides")
	flags.String("method", "GET", "HTTP method to use")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.String("reference-url", "", "Reference request URL (defaults to target)")
	flags.String("reference-body", "", "Reference request body (the baseline payload)")
	flags.String("probe-url", "", "Probe request URL (defaults to target)")
	flags.String("probe-body", "", "Probe request body (the suspected time-delaying payload)")
	flags.IntP("rate", "r", 0, "Requests per second limit across both sides (0 means unlimited)")
	flags.Duration("timeout", 30*time.Second, "Per-request timeout")

	// Test parameter flags
	flags.Int("rounds", bootstrap.DefaultRounds, "Bootstrap resampling rounds per test")
	flags.Float64("alpha", bootstrap.DefaultAlpha, "Two-sided significance level")
	flags.Int("initial-samples", 4, "Observations pulled per side before the first test")
	flags.Int("max-samples", 60, "Maximum observations consumed per side")
	flags.Int64("seed", 0, "PRNG seed for reproducible resampling (0 means entropy-seeded)")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("progress", false, "Print one diagnostic line per test iteration to stderr")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.String("trace-endpoint", "", "OTLP endpoint to export spans to (empty disables tracing)")
	flags.String("trace-protocol", "http", "OTLP transport: 'http' or 'grpc'")
	flags.String("trace-service", "", "Service name reported on spans")
	flags.Float64("trace-sample-rate", 1.0, "Fraction of traces to sample (0.0-1.0)")
	flags.Bool("trace-insecure", false, "Use plaintext OTLP transport")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("input") {
		val, err := fs.GetString("input")
		if err != nil {
			return err
		}
		cfg.Input = strings.TrimSpace(val)
	}
	if fs.Changed("input-format") {
		val, err := fs.GetString("input-format")
		if err != nil {
			return err
		}
		cfg.InputFormat = InputFormat(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("header") {
		vals, err := fs.GetStringSlice("header")
		if err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, raw := range vals {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("header %q must use key=value form", raw)
			}
			cfg.Headers[strings.TrimSpace(key)] = value
		}
	}
	if fs.Changed("reference-url") {
		val, err := fs.GetString("reference-url")
		if err != nil {
			return err
		}
		cfg.Reference.URL = strings.TrimSpace(val)
	}
	if fs.Changed("reference-body") {
		val, err := fs.GetString("reference-body")
		if err != nil {
			return err
		}
		cfg.Reference.Body = val
	}
	if fs.Changed("probe-url") {
		val, err := fs.GetString("probe-url")
		if err != nil {
			return err
		}
		cfg.Probe.URL = strings.TrimSpace(val)
	}
	if fs.Changed("probe-body") {
		val, err := fs.GetString("probe-body")
		if err != nil {
			return err
		}
		cfg.Probe.Body = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("rounds") {
		val, err := fs.GetInt("rounds")
		if err != nil {
			return err
		}
		cfg.Rounds = val
	}
	if fs.Changed("alpha") {
		val, err := fs.GetFloat64("alpha")
		if err != nil {
			return err
		}
		cfg.Alpha = val
	}
	if fs.Changed("initial-samples") {
		val, err := fs.GetInt("initial-samples")
		if err != nil {
			return err
		}
		cfg.InitialSamples = val
	}
	if fs.Changed("max-samples") {
		val, err := fs.GetInt("max-samples")
		if err != nil {
			return err
		}
		cfg.MaxSamples = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("progress") {
		val, err := fs.GetBool("progress")
		if err != nil {
			return err
		}
		cfg.Progress = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-service") {
		val, err := fs.GetString("trace-service")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	return nil
}
