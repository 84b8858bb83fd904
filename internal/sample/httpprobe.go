package sample

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

// ProbeRequest is a fixed request template for one side of the measurement.
// The reference template carries the baseline payload, the probe template the
// suspected time-delaying payload.
type ProbeRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	Reference ProbeRequest
	Probe     ProbeRequest

	// Timeout bounds each individual request. Zero means no timeout.
	Timeout time.Duration
	// RatePerSecond limits outgoing requests across both sides; 0 means
	// unlimited. Pacing keeps the measurements from contending with each
	// other on the wire.
	RatePerSecond int
	// Tracer, when set, emits one span per measured request.
	Tracer trace.Tracer

	// Client overrides the HTTP client, used by tests.
	Client *http.Client
}

// HTTPSource acquires measurements live: each observation is the wall-clock
// round-trip time of one request, including reading the full response body.
// A request failure aborts the measurement; nothing is retried.
type HTTPSource struct {
	client    *http.Client
	reference ProbeRequest
	probe     ProbeRequest
	limiter   *rate.Limiter
	tracer    trace.Tracer
}

// NewHTTPSource validates the templates and builds a live source.
func NewHTTPSource(opt HTTPOptions) (*HTTPSource, error) {
	for _, tmpl := range []struct {
		side string
		req  ProbeRequest
	}{
		{"reference", opt.Reference},
		{"probe", opt.Probe},
	} {
		if strings.TrimSpace(tmpl.req.URL) == "" {
			return nil, fmt.Errorf("sample: %s request URL is required", tmpl.side)
		}
	}

	client := opt.Client
	if client == nil {
		client = &http.Client{Timeout: opt.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opt.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opt.RatePerSecond), 1)
	}

	tracer := opt.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	return &HTTPSource{
		client:    client,
		reference: opt.Reference,
		probe:     opt.Probe,
		limiter:   limiter,
		tracer:    tracer,
	}, nil
}

// NextReference measures n reference round trips.
func (s *HTTPSource) NextReference(ctx context.Context, n int) ([]float64, error) {
	return s.measureN(ctx, s.reference, "reference", n)
}

// NextProbe measures n probe round trips.
func (s *HTTPSource) NextProbe(ctx context.Context, n int) ([]float64, error) {
	return s.measureN(ctx, s.probe, "probe", n)
}

// Available reports an effectively unbounded supply: the live source can
// always issue another request.
func (s *HTTPSource) Available() (reference, probe int) {
	return math.MaxInt, math.MaxInt
}

func (s *HTTPSource) measureN(ctx context.Context, tmpl ProbeRequest, side string, n int) ([]float64, error) {
	out := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		ms, err := s.measure(ctx, tmpl, side)
		if err != nil {
			return nil, err
		}
		out = append(out, ms)
	}
	return out, nil
}

func (s *HTTPSource) measure(ctx context.Context, tmpl ProbeRequest, side string) (float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	method := tmpl.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := s.tracer.Start(ctx, "timed "+side+" request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", tmpl.URL),
		),
	)
	defer span.End()

	var body io.Reader
	if tmpl.Body != "" {
		body = strings.NewReader(tmpl.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, tmpl.URL, body)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("sample: build %s request: %w", side, err)
	}
	for k, v := range tmpl.Headers {
		req.Header.Set(k, v)
	}

	// The clock covers the full exchange including draining the body; a
	// delayed response tail is part of the timing signal.
	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("sample: %s request: %w", side, err)
	}
	_, copyErr := io.Copy(io.Discard, resp.Body)
	closeErr := resp.Body.Close()
	elapsed := time.Since(start)

	if copyErr != nil {
		span.RecordError(copyErr)
		return 0, fmt.Errorf("sample: read %s response: %w", side, copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("sample: close %s response: %w", side, closeErr)
	}

	ms := float64(elapsed) / float64(time.Millisecond)
	span.SetAttributes(
		attribute.Int("http.response.status_code", resp.StatusCode),
		attribute.Float64("lagprobe.rtt_ms", ms),
	)
	return ms, nil
}
