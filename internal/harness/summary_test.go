package harness

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"intellab-testing/internal/domain"
	"intellab-testing/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summarySnapshot() Snapshot {
	c := NewCollector()
	observeSubmission(c, result("http://api.test/problem/problem-submissions", 200, 120*time.Millisecond))
	observeSubmission(c, result("http://api.test/problem/problem-submissions", 500, 80*time.Millisecond))
	c.RecordHandshake(domain.HandshakeSucceeded)
	c.RecordIteration(false)
	c.RecordIteration(false)
	c.RecordIteration(true)
	return c.Snapshot()
}

func TestWriteSummary(t *testing.T) {
	snap := summarySnapshot()
	thresholds, err := ParseThresholds(map[string][]string{
		MetricHTTPReqFailed:   {"rate<0.01"},
		MetricHTTPReqDuration: {"p(95)<2000"},
	})
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	p := output.NewPrinterWithWriters(&stdout, &stderr, false)

	require.NoError(t, WriteSummary(p, snap, Evaluate(thresholds, snap)))

	out := stdout.String()
	for _, want := range []string{
		"Requests",
		"Status Codes",
		"iterations skipped",
		"handshakes success",
		domain.CheckSubmissionNot500,
		"50.00%",
		"p(95)<2000",
		"rate<0.01",
		"[PASS]",
		"[FAIL]",
	} {
		assert.Contains(t, out, want)
	}
	assert.Empty(t, stderr.String())
}

func TestWriteSummary_NoChecksOrThresholds(t *testing.T) {
	var stdout bytes.Buffer
	p := output.NewPrinterWithWriters(&stdout, &stdout, false)

	require.NoError(t, WriteSummary(p, NewCollector().Snapshot(), nil))

	assert.NotContains(t, stdout.String(), "Checks")
	assert.NotContains(t, stdout.String(), "Thresholds")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, summarySnapshot()))

	var report map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.EqualValues(t, 2, report["requests"])
	assert.Contains(t, report, "latencies")
	assert.Contains(t, report, "status_codes")
}

func TestFormatObserved(t *testing.T) {
	tests := []struct {
		result ThresholdResult
		want   string
	}{
		{ThresholdResult{Threshold: Threshold{Metric: MetricHTTPReqDuration, Aggregation: "p"}, Observed: 1234.5}, "1234.50ms"},
		{ThresholdResult{Threshold: Threshold{Metric: MetricHTTPReqFailed, Aggregation: "rate"}, Observed: 0.015}, "1.50%"},
		{ThresholdResult{Threshold: Threshold{Metric: MetricIterations, Aggregation: "rate"}, Observed: 2}, "2.00/s"},
		{ThresholdResult{Threshold: Threshold{Metric: MetricIterationsSkipped, Aggregation: "count"}, Observed: 3}, "3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatObserved(tt.result))
	}
}
