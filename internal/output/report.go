// Package output renders detection results for humans and machines.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/seclarsen/lagprobe/internal/bootstrap"
	"github.com/seclarsen/lagprobe/internal/detector"
	"github.com/seclarsen/lagprobe/internal/metrics"
)

// Report is the complete result of one detection run.
type Report struct {
	RunID          string             `json:"run_id"`
	Verdict        detector.Verdict   `json:"verdict"`
	Vulnerable     bool               `json:"vulnerable"`
	SamplesPerSide int                `json:"samples_per_side"`
	Rounds         int                `json:"rounds"`
	Alpha          float64            `json:"alpha"`
	Interval       bootstrap.Interval `json:"interval_ms"`
	DurationMs     float64            `json:"duration_ms"`
	Latency        metrics.Summary    `json:"latency"`
}

// NewReport assembles a Report from a run outcome and the collected latency
// summary.
func NewReport(out detector.Outcome, summary metrics.Summary, elapsed time.Duration) Report {
	return Report{
		RunID:          out.RunID,
		Verdict:        out.Verdict,
		Vulnerable:     out.Verdict == detector.VerdictRejected,
		SamplesPerSide: out.Samples,
		Rounds:         out.Rounds,
		Alpha:          out.Alpha,
		Interval:       out.Interval,
		DurationMs:     float64(elapsed) / float64(time.Millisecond),
		Latency:        summary,
	}
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintln(w, "\n--- Timing Analysis ---")
	fmt.Fprintf(w, "Run ID:            %s\n", r.RunID)
	fmt.Fprintf(w, "Verdict:           %s\n", verdictLine(r.Verdict))
	fmt.Fprintf(w, "Samples/side:      %d\n", r.SamplesPerSide)
	fmt.Fprintf(w, "Bootstrap rounds:  %d\n", r.Rounds)
	fmt.Fprintf(w, "Significance:      %g\n", r.Alpha)
	fmt.Fprintf(w, "Interval (ms):     [%.4f, %.4f]\n", r.Interval.Lower, r.Interval.Upper)
	fmt.Fprintf(w, "Duration:          %.0fms\n", r.DurationMs)

	fmt.Fprintln(w, "\nLatency (ms):")
	printSide(w, "reference", r.Latency.Reference)
	printSide(w, "probe", r.Latency.Probe)
}

func verdictLine(v detector.Verdict) string {
	if v == detector.VerdictRejected {
		return "null hypothesis rejected: response-time oracle highly likely"
	}
	return "null hypothesis not rejected"
}

func printSide(w io.Writer, name string, s metrics.SideSummary) {
	fmt.Fprintf(w, "  %-10s n=%d min=%.2f mean=%.2f p50=%.2f p90=%.2f p99=%.2f max=%.2f\n",
		name+":", s.Count, s.MinMs, s.MeanMs, s.P50Ms, s.P90Ms, s.P99Ms, s.MaxMs)
}

// WriteJSON outputs the report as indented JSON.
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
