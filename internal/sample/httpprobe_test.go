package sample_test

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/seclarsen/lagprobe/internal/sample"
)

func TestHTTPSourceMeasuresRoundTrips(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Query().Get("payload") == "slow" {
			time.Sleep(20 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	src, err := sample.NewHTTPSource(sample.HTTPOptions{
		Reference: sample.ProbeRequest{URL: srv.URL + "/?payload=fast"},
		Probe:     sample.ProbeRequest{URL: srv.URL + "/?payload=slow"},
		Timeout:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	ctx := context.Background()
	reference, err := src.NextReference(ctx, 3)
	if err != nil {
		t.Fatalf("NextReference() error = %v", err)
	}
	probe, err := src.NextProbe(ctx, 2)
	if err != nil {
		t.Fatalf("NextProbe() error = %v", err)
	}

	if len(reference) != 3 || len(probe) != 2 {
		t.Fatalf("got %d reference and %d probe measurements, want 3 and 2", len(reference), len(probe))
	}
	if got := atomic.LoadInt64(&hits); got != 5 {
		t.Errorf("server hits = %d, want 5", got)
	}
	for i, ms := range reference {
		if ms <= 0 {
			t.Errorf("reference[%d] = %g, want > 0", i, ms)
		}
	}
	for i, ms := range probe {
		if ms < 20 {
			t.Errorf("probe[%d] = %gms, want >= 20ms (handler sleeps)", i, ms)
		}
	}
}

func TestHTTPSourceSendsTemplate(t *testing.T) {
	var gotMethod, gotHeader, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotHeader = r.Header.Get("X-Probe")
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		gotBody = string(buf[:n])
	}))
	defer srv.Close()

	src, err := sample.NewHTTPSource(sample.HTTPOptions{
		Reference: sample.ProbeRequest{
			Method:  http.MethodPost,
			URL:     srv.URL,
			Headers: map[string]string{"X-Probe": "baseline"},
			Body:    `{"q": "a"}`,
		},
		Probe: sample.ProbeRequest{URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	if _, err := src.NextReference(context.Background(), 1); err != nil {
		t.Fatalf("NextReference() error = %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q, want POST", gotMethod)
	}
	if gotHeader != "baseline" {
		t.Errorf("X-Probe header = %q, want baseline", gotHeader)
	}
	if gotBody != `{"q": "a"}` {
		t.Errorf("body = %q, want request template body", gotBody)
	}
}

func TestHTTPSourceRequestErrorAborts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	src, err := sample.NewHTTPSource(sample.HTTPOptions{
		Reference: sample.ProbeRequest{URL: srv.URL},
		Probe:     sample.ProbeRequest{URL: srv.URL},
	})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}

	if _, err := src.NextReference(context.Background(), 1); err == nil {
		t.Errorf("NextReference() against closed server succeeded, want error")
	}
}

func TestHTTPSourceValidation(t *testing.T) {
	_, err := sample.NewHTTPSource(sample.HTTPOptions{
		Probe: sample.ProbeRequest{URL: "http://localhost/x"},
	})
	if err == nil {
		t.Errorf("NewHTTPSource() without reference URL succeeded, want error")
	}
}

func TestHTTPSourceAvailableUnbounded(t *testing.T) {
	src, err := sample.NewHTTPSource(sample.HTTPOptions{
		Reference: sample.ProbeRequest{URL: "http://localhost/a"},
		Probe:     sample.ProbeRequest{URL: "http://localhost/b"},
	})
	if err != nil {
		t.Fatalf("NewHTTPSource() error = %v", err)
	}
	ref, probe := src.Available()
	if ref != math.MaxInt || probe != math.MaxInt {
		t.Errorf("Available() = (%d, %d), want unbounded", ref, probe)
	}
}
