package harness

import (
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"intellab-testing/internal/domain"
	"intellab-testing/internal/infrastructure/metrics"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// CheckCount tallies one named check.
type CheckCount struct {
	Name   string
	Passes uint64
	Fails  uint64
}

// Rate returns the fraction of passing evaluations.
func (c CheckCount) Rate() float64 {
	total := c.Passes + c.Fails
	if total == 0 {
		return 0
	}
	return float64(c.Passes) / float64(total)
}

// Snapshot is an aggregated view of a run.
type Snapshot struct {
	Metrics    vegeta.Metrics
	Checks     []CheckCount
	Iterations uint64
	Skipped    uint64
	Handshakes map[domain.HandshakeOutcome]uint64
	CacheHits  uint64
	Elapsed    time.Duration
}

// FailedRate returns the fraction of failed requests.
func (s Snapshot) FailedRate() float64 {
	if s.Metrics.Requests == 0 {
		return 0
	}
	return 1 - s.Metrics.Success
}

// CheckRate returns the fraction of passing check evaluations.
func (s Snapshot) CheckRate() float64 {
	var pass, total uint64
	for _, c := range s.Checks {
		pass += c.Passes
		total += c.Passes + c.Fails
	}
	if total == 0 {
		return 0
	}
	return float64(pass) / float64(total)
}

// Collector aggregates harness results and workload events.
// Implements domain.Recorder.
type Collector struct {
	mu         sync.Mutex
	metrics    vegeta.Metrics
	checks     map[string]*CheckCount
	order      []string
	iterations uint64
	skipped    uint64
	handshakes map[domain.HandshakeOutcome]uint64
	cacheHits  uint64
	started    time.Time
	now        func() time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{
		checks:     make(map[string]*CheckCount),
		handshakes: make(map[domain.HandshakeOutcome]uint64),
		now:        time.Now,
	}
}

// Start marks the beginning of the run.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = c.now()
}

// ObserveRequest adds one HTTP result to the request metrics. Every
// request, submissions included, reaches it through InstrumentedTransport,
// so latencies cover the round trip alone.
func (c *Collector) ObserveRequest(r *vegeta.Result) {
	if r == nil || r.URL == "" {
		// The targeter failed before a request was made.
		return
	}

	c.mu.Lock()
	c.metrics.Add(r)
	c.mu.Unlock()

	metrics.RecordRequest(endpointOf(r.URL), r.Code, r.Latency)
}

// CheckSubmission evaluates the submission checks for an attacker result.
// The attacker's latency spans the targeter too, so it is not recorded.
func (c *Collector) CheckSubmission(r *vegeta.Result) {
	if r == nil || r.URL == "" {
		return
	}
	c.RecordCheck(domain.CheckSubmissionOK, r.Code == http.StatusOK)
	c.RecordCheck(domain.CheckSubmissionNot500, r.Code != http.StatusInternalServerError)
}

// RecordCheck records a named check evaluation.
func (c *Collector) RecordCheck(name string, passed bool) {
	c.mu.Lock()
	cc, ok := c.checks[name]
	if !ok {
		cc = &CheckCount{Name: name}
		c.checks[name] = cc
		c.order = append(c.order, name)
	}
	if passed {
		cc.Passes++
	} else {
		cc.Fails++
	}
	c.mu.Unlock()

	metrics.RecordCheck(name, passed)
}

// RecordHandshake records a handshake outcome.
func (c *Collector) RecordHandshake(outcome domain.HandshakeOutcome) {
	c.mu.Lock()
	c.handshakes[outcome]++
	c.mu.Unlock()

	metrics.RecordHandshake(string(outcome))
}

// RecordCacheHit records an auth cache hit.
func (c *Collector) RecordCacheHit() {
	c.mu.Lock()
	c.cacheHits++
	c.mu.Unlock()

	metrics.RecordCacheHit()
}

// RecordIteration records a completed or skipped iteration.
func (c *Collector) RecordIteration(skipped bool) {
	c.mu.Lock()
	if skipped {
		c.skipped++
	} else {
		c.iterations++
	}
	c.mu.Unlock()

	metrics.RecordIteration(skipped)
}

// Snapshot returns the aggregated state. It may be called while the run
// is in progress, but latency quantiles beyond the precomputed ones are
// only safe to query once the run has finished.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.metrics
	m.Close()
	if math.IsNaN(m.Success) {
		// No requests yet.
		m.Success = 0
	}
	m.StatusCodes = maps.Clone(m.StatusCodes)
	m.Errors = slices.Clone(m.Errors)

	checks := make([]CheckCount, 0, len(c.order))
	for _, name := range c.order {
		checks = append(checks, *c.checks[name])
	}

	handshakes := maps.Clone(c.handshakes)

	var elapsed time.Duration
	if !c.started.IsZero() {
		elapsed = c.now().Sub(c.started)
	}

	return Snapshot{
		Metrics:    m,
		Checks:     checks,
		Iterations: c.iterations,
		Skipped:    c.skipped,
		Handshakes: handshakes,
		CacheHits:  c.cacheHits,
		Elapsed:    elapsed,
	}
}

// endpointOf maps a request URL to a low-cardinality label.
func endpointOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "other"
	}
	switch {
	case strings.HasSuffix(u.Path, "/identity/auth/login"):
		return "login"
	case strings.HasSuffix(u.Path, "/identity/profile/me"):
		return "profile"
	case strings.HasSuffix(u.Path, "/problem/problem-submissions"):
		return "submission"
	default:
		return "other"
	}
}
