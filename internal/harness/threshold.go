package harness

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"intellab-testing/internal/domain"
)

// Metric names understood by thresholds.
const (
	MetricHTTPReqFailed     = "http_req_failed"
	MetricHTTPReqDuration   = "http_req_duration"
	MetricChecks            = "checks"
	MetricIterations        = "iterations"
	MetricIterationsSkipped = "iterations_skipped"
)

// allowedAggregations lists the aggregations valid for each metric.
var allowedAggregations = map[string][]string{
	MetricHTTPReqFailed:     {"rate"},
	MetricChecks:            {"rate"},
	MetricHTTPReqDuration:   {"avg", "min", "max", "med", "p"},
	MetricIterations:        {"count", "rate"},
	MetricIterationsSkipped: {"count", "rate"},
}

var thresholdExpr = regexp.MustCompile(`^\s*(rate|count|avg|min|max|med|p\(\s*(\d+(?:\.\d+)?)\s*\))\s*(<=|>=|==|!=|<|>)\s*(-?\d+(?:\.\d+)?)\s*$`)

// Threshold is one pass/fail condition on an aggregated metric, such as
// "p(95)<2000" on http_req_duration.
type Threshold struct {
	Metric      string
	Expression  string
	Aggregation string
	Percentile  float64
	Operator    string
	Value       float64
}

// ThresholdResult is a threshold evaluated against a run.
type ThresholdResult struct {
	Threshold
	Observed float64
	Passed   bool
}

// ParseThresholds parses a metric → expressions map. Results are ordered
// by metric name, then by expression order.
func ParseThresholds(byMetric map[string][]string) ([]Threshold, error) {
	metrics := make([]string, 0, len(byMetric))
	for m := range byMetric {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	var out []Threshold
	for _, metric := range metrics {
		for _, expr := range byMetric[metric] {
			th, err := ParseThreshold(metric, expr)
			if err != nil {
				return nil, err
			}
			out = append(out, th)
		}
	}
	return out, nil
}

// ParseThreshold parses a single expression for metric.
func ParseThreshold(metric, expr string) (Threshold, error) {
	allowed, ok := allowedAggregations[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("%w: unknown threshold metric %q", domain.ErrConfiguration, metric)
	}

	m := thresholdExpr.FindStringSubmatch(expr)
	if m == nil {
		return Threshold{}, fmt.Errorf("%w: malformed threshold %q on %s", domain.ErrConfiguration, expr, metric)
	}

	th := Threshold{
		Metric:      metric,
		Expression:  strings.TrimSpace(expr),
		Aggregation: m[1],
		Operator:    m[3],
	}
	if strings.HasPrefix(m[1], "p(") {
		th.Aggregation = "p"
		pct, _ := strconv.ParseFloat(m[2], 64)
		if pct <= 0 || pct > 100 {
			return Threshold{}, fmt.Errorf("%w: percentile out of range in %q", domain.ErrConfiguration, expr)
		}
		th.Percentile = pct
	}
	th.Value, _ = strconv.ParseFloat(m[4], 64)

	valid := false
	for _, a := range allowed {
		if a == th.Aggregation {
			valid = true
			break
		}
	}
	if !valid {
		return Threshold{}, fmt.Errorf("%w: %s cannot be aggregated with %q", domain.ErrConfiguration, metric, m[1])
	}

	return th, nil
}

// Evaluate checks every threshold against snap.
func Evaluate(thresholds []Threshold, snap Snapshot) []ThresholdResult {
	results := make([]ThresholdResult, 0, len(thresholds))
	for _, th := range thresholds {
		observed := observe(th, snap)
		results = append(results, ThresholdResult{
			Threshold: th,
			Observed:  observed,
			Passed:    compare(observed, th.Operator, th.Value),
		})
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []ThresholdResult) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func observe(th Threshold, snap Snapshot) float64 {
	switch th.Metric {
	case MetricHTTPReqFailed:
		return snap.FailedRate()
	case MetricChecks:
		return snap.CheckRate()
	case MetricIterations:
		return perAggregation(th.Aggregation, snap.Iterations, snap.Elapsed)
	case MetricIterationsSkipped:
		return perAggregation(th.Aggregation, snap.Skipped, snap.Elapsed)
	case MetricHTTPReqDuration:
		lat := snap.Metrics.Latencies
		switch th.Aggregation {
		case "avg":
			return millis(lat.Mean)
		case "min":
			return millis(lat.Min)
		case "max":
			return millis(lat.Max)
		case "med":
			return millis(lat.P50)
		case "p":
			if snap.Metrics.Requests == 0 {
				return 0
			}
			return millis(lat.Quantile(th.Percentile / 100))
		}
	}
	return 0
}

func perAggregation(agg string, count uint64, elapsed time.Duration) float64 {
	if agg == "rate" {
		if elapsed <= 0 {
			return 0
		}
		return float64(count) / elapsed.Seconds()
	}
	return float64(count)
}

func compare(observed float64, op string, value float64) bool {
	switch op {
	case "<":
		return observed < value
	case "<=":
		return observed <= value
	case ">":
		return observed > value
	case ">=":
		return observed >= value
	case "==":
		return observed == value
	case "!=":
		return observed != value
	}
	return false
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
