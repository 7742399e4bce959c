package harness

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"intellab-testing/internal/domain"
	"intellab-testing/internal/output"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// WriteSummary prints the request report followed by workload, check and
// threshold tables.
func WriteSummary(p *output.Printer, snap Snapshot, results []ThresholdResult) error {
	p.Header("Requests")
	if err := vegeta.NewTextReporter(&snap.Metrics).Report(p.Out()); err != nil {
		return fmt.Errorf("writing request report: %w", err)
	}

	p.Header("Workload")
	workload := p.NewTable([]string{"Metric", "Value"})
	workload.AddRow("iterations", strconv.FormatUint(snap.Iterations, 10))
	workload.AddRow("iterations skipped", strconv.FormatUint(snap.Skipped, 10))
	workload.AddRow("auth cache hits", strconv.FormatUint(snap.CacheHits, 10))
	for _, outcome := range sortedOutcomes(snap.Handshakes) {
		workload.AddRow("handshakes "+string(outcome), strconv.FormatUint(snap.Handshakes[outcome], 10))
	}
	if err := workload.Render(); err != nil {
		return err
	}

	if len(snap.Checks) > 0 {
		p.Header("Checks")
		checks := p.NewTable([]string{"Check", "Passes", "Fails", "Rate", ""})
		for _, c := range snap.Checks {
			checks.AddRow(
				c.Name,
				strconv.FormatUint(c.Passes, 10),
				strconv.FormatUint(c.Fails, 10),
				formatPercent(c.Rate()),
				p.Verdict(c.Fails == 0),
			)
		}
		if err := checks.Render(); err != nil {
			return err
		}
	}

	if len(results) > 0 {
		p.Header("Thresholds")
		thresholds := p.NewTable([]string{"Metric", "Threshold", "Observed", ""})
		for _, r := range results {
			thresholds.AddRow(r.Metric, r.Expression, formatObserved(r), p.Verdict(r.Passed))
		}
		if err := thresholds.Render(); err != nil {
			return err
		}
	}

	return nil
}

// WriteJSON writes the vegeta JSON report of the request metrics.
func WriteJSON(w io.Writer, snap Snapshot) error {
	return vegeta.NewJSONReporter(&snap.Metrics).Report(w)
}

func sortedOutcomes(m map[domain.HandshakeOutcome]uint64) []domain.HandshakeOutcome {
	out := make([]domain.HandshakeOutcome, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func formatObserved(r ThresholdResult) string {
	switch {
	case r.Metric == MetricHTTPReqDuration:
		return fmt.Sprintf("%.2fms", r.Observed)
	case r.Aggregation == "rate" && (r.Metric == MetricHTTPReqFailed || r.Metric == MetricChecks):
		return formatPercent(r.Observed)
	case r.Aggregation == "rate":
		return fmt.Sprintf("%.2f/s", r.Observed)
	default:
		return strconv.FormatFloat(r.Observed, 'f', -1, 64)
	}
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
