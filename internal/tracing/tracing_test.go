package tracing_test

import (
	"context"
	"testing"

	"github.com/seclarsen/lagprobe/internal/config"
	"github.com/seclarsen/lagprobe/internal/tracing"
)

func TestInitDisabledByDefault(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.Tracer() == nil {
		t.Errorf("Tracer() = nil, want no-op tracer")
	}
}

func TestInitRejectsBadSampleRate(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4318",
		SampleRate: 1.5,
	})
	if err == nil {
		t.Errorf("Init() with sample rate 1.5 succeeded, want error")
	}
}

func TestInitRejectsUnknownProtocol(t *testing.T) {
	_, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4318",
		Protocol: "carrier-pigeon",
	})
	if err == nil {
		t.Errorf("Init() with unknown protocol succeeded, want error")
	}
}

func TestNilProviderIsSafe(t *testing.T) {
	var p *tracing.Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil Shutdown() error = %v", err)
	}
	if p.Tracer() == nil {
		t.Errorf("nil Tracer() = nil, want no-op tracer")
	}
}
