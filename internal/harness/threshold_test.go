package harness

import (
	"testing"
	"time"

	"intellab-testing/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		expr   string
		want   Threshold
	}{
		{
			name:   "failure rate",
			metric: MetricHTTPReqFailed,
			expr:   "rate<0.01",
			want:   Threshold{Metric: MetricHTTPReqFailed, Expression: "rate<0.01", Aggregation: "rate", Operator: "<", Value: 0.01},
		},
		{
			name:   "percentile with spaces",
			metric: MetricHTTPReqDuration,
			expr:   " p( 95 ) <= 2000 ",
			want:   Threshold{Metric: MetricHTTPReqDuration, Expression: "p( 95 ) <= 2000", Aggregation: "p", Percentile: 95, Operator: "<=", Value: 2000},
		},
		{
			name:   "fractional percentile",
			metric: MetricHTTPReqDuration,
			expr:   "p(99.9)<5000",
			want:   Threshold{Metric: MetricHTTPReqDuration, Expression: "p(99.9)<5000", Aggregation: "p", Percentile: 99.9, Operator: "<", Value: 5000},
		},
		{
			name:   "iteration count",
			metric: MetricIterationsSkipped,
			expr:   "count==0",
			want:   Threshold{Metric: MetricIterationsSkipped, Expression: "count==0", Aggregation: "count", Operator: "==", Value: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseThreshold(tt.metric, tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseThreshold_Errors(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		expr   string
	}{
		{name: "unknown metric", metric: "vus", expr: "max<10"},
		{name: "malformed", metric: MetricHTTPReqFailed, expr: "rate less than 1"},
		{name: "wrong aggregation", metric: MetricHTTPReqFailed, expr: "p(95)<1"},
		{name: "percentile zero", metric: MetricHTTPReqDuration, expr: "p(0)<1"},
		{name: "percentile above 100", metric: MetricHTTPReqDuration, expr: "p(101)<1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseThreshold(tt.metric, tt.expr)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestParseThresholds_Ordered(t *testing.T) {
	got, err := ParseThresholds(map[string][]string{
		MetricHTTPReqFailed:   {"rate<0.01"},
		MetricHTTPReqDuration: {"p(95)<2000", "avg<500"},
	})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "p(95)<2000", got[0].Expression)
	assert.Equal(t, "avg<500", got[1].Expression)
	assert.Equal(t, MetricHTTPReqFailed, got[2].Metric)
}

func TestEvaluate(t *testing.T) {
	c := NewCollector()
	for i := 1; i <= 100; i++ {
		code := uint16(200)
		if i == 100 {
			code = 500
		}
		observeSubmission(c, result("http://api.test/problem/problem-submissions", code, time.Duration(i)*time.Millisecond))
	}
	snap := c.Snapshot()

	thresholds, err := ParseThresholds(map[string][]string{
		MetricHTTPReqFailed:   {"rate<0.05", "rate<0.001"},
		MetricHTTPReqDuration: {"max<=100", "min>=1", "avg<10"},
		MetricChecks:          {"rate>0.9"},
	})
	require.NoError(t, err)

	results := Evaluate(thresholds, snap)
	require.Len(t, results, 6)

	passed := map[string]bool{}
	for _, r := range results {
		passed[r.Metric+" "+r.Expression] = r.Passed
	}
	assert.True(t, passed["http_req_failed rate<0.05"])
	assert.False(t, passed["http_req_failed rate<0.001"])
	assert.True(t, passed["http_req_duration max<=100"])
	assert.True(t, passed["http_req_duration min>=1"])
	assert.False(t, passed["http_req_duration avg<10"])
	assert.True(t, passed["checks rate>0.9"])

	assert.False(t, AllPassed(results))
	assert.True(t, AllPassed(results[:1]))
}

func TestEvaluate_IterationRate(t *testing.T) {
	snap := Snapshot{Iterations: 30, Skipped: 3, Elapsed: 10 * time.Second}

	thresholds, err := ParseThresholds(map[string][]string{
		MetricIterations:        {"rate>=3"},
		MetricIterationsSkipped: {"count<5"},
	})
	require.NoError(t, err)

	results := Evaluate(thresholds, snap)
	assert.InDelta(t, 3.0, results[0].Observed, 1e-9)
	assert.InDelta(t, 3.0, results[1].Observed, 1e-9)
	assert.True(t, AllPassed(results))
}

func TestEvaluate_EmptyRun(t *testing.T) {
	thresholds, err := ParseThresholds(map[string][]string{
		MetricHTTPReqFailed:   {"rate<0.01"},
		MetricHTTPReqDuration: {"p(95)<2000"},
	})
	require.NoError(t, err)

	results := Evaluate(thresholds, NewCollector().Snapshot())
	assert.True(t, AllPassed(results))
}
