// Command lagprobe detects blind timing-based injection vulnerabilities.
//
// It compares two timing populations, a reference request and a probe
// request carrying a suspected time-delaying payload, using a sequential
// difference-of-means bootstrap test. The process exits 2 when the null
// hypothesis is rejected (the vulnerability signal), 0 when it is not, and
// 1 on any error.
package main

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
	"github.com/seclarsen/lagprobe/internal/config"
	"github.com/seclarsen/lagprobe/internal/detector"
	"github.com/seclarsen/lagprobe/internal/metrics"
	"github.com/seclarsen/lagprobe/internal/output"
	"github.com/seclarsen/lagprobe/internal/sample"
	"github.com/seclarsen/lagprobe/internal/tracing"
)

// exitVulnerable is the distinguished status for a rejected null hypothesis,
// kept separate from ordinary failures (exit 1).
const exitVulnerable = 2

func main() {
	report, err := run(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if report.Vulnerable {
		os.Exit(exitVulnerable)
	}
}

func run(args []string) (output.Report, error) {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		return output.Report{}, err
	}
	if err := cfg.Validate(); err != nil {
		return output.Report{}, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return output.Report{}, err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = provider.Shutdown(shutdownCtx)
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed, err = entropySeed()
		if err != nil {
			return output.Report{}, err
		}
	}

	engine, err := bootstrap.NewEngine(cfg.Rounds, cfg.Alpha, rand.New(rand.NewSource(seed)))
	if err != nil {
		return output.Report{}, err
	}

	src, err := buildSource(cfg, provider)
	if err != nil {
		return output.Report{}, err
	}

	collector := metrics.NewCollector()
	var progress io.Writer
	if cfg.Progress {
		progress = os.Stderr
	}

	det, err := detector.New(detector.Options{
		Engine:         engine,
		InitialSamples: cfg.InitialSamples,
		MaxSamples:     cfg.MaxSamples,
		Collector:      collector,
		Progress:       progress,
		Tracer:         provider.Tracer(),
	})
	if err != nil {
		return output.Report{}, err
	}

	start := time.Now()
	outcome, err := det.Run(ctx, src)
	if err != nil {
		return output.Report{}, err
	}

	report := output.NewReport(outcome, collector.Summary(), time.Since(start))
	if cfg.JSONOutput {
		if err := output.WriteJSON(os.Stdout, report); err != nil {
			return output.Report{}, err
		}
	} else {
		output.PrintReport(os.Stdout, report)
	}

	return report, nil
}

// buildSource picks the measurement source: a pre-recorded samples file or
// the live HTTP prober.
func buildSource(cfg *config.Config, provider *tracing.Provider) (detector.Source, error) {
	if cfg.LiveMode() {
		return sample.NewHTTPSource(sample.HTTPOptions{
			Reference: sample.ProbeRequest{
				Method:  cfg.Method,
				URL:     cfg.ReferenceURL(),
				Headers: cfg.Headers,
				Body:    cfg.Reference.Body,
			},
			Probe: sample.ProbeRequest{
				Method:  cfg.Method,
				URL:     cfg.ProbeURL(),
				Headers: cfg.Headers,
				Body:    cfg.Probe.Body,
			},
			Timeout:       cfg.Timeout,
			RatePerSecond: cfg.Rate,
			Tracer:        provider.Tracer(),
		})
	}

	data, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("read samples file: %w", err)
	}

	format := cfg.InputFormat
	if format == config.InputFormatAuto {
		if strings.EqualFold(filepath.Ext(cfg.Input), ".json") {
			format = config.InputFormatJSON
		} else {
			format = config.InputFormatText
		}
	}

	var reference, probe []float64
	switch format {
	case config.InputFormatJSON:
		reference, probe, err = sample.ParseJSON(data)
	default:
		reference, probe, err = sample.ParseText(strings.NewReader(string(data)))
	}
	if err != nil {
		return nil, err
	}

	return sample.NewQueueSource(reference, probe), nil
}

func entropySeed() (int64, error) {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("seed PRNG: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}
