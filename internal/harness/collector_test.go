package harness

import (
	"testing"
	"time"

	"intellab-testing/internal/domain"

	"github.com/stretchr/testify/assert"
	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func result(url string, code uint16, latency time.Duration) *vegeta.Result {
	return &vegeta.Result{
		Method:    "POST",
		URL:       url,
		Code:      code,
		Latency:   latency,
		Timestamp: time.Now(),
	}
}

// observeSubmission records r the way a run does: the transport reports
// the request, the runner reports the attacker result.
func observeSubmission(c *Collector, r *vegeta.Result) {
	c.ObserveRequest(r)
	c.CheckSubmission(r)
}

func TestCollector_Submissions(t *testing.T) {
	c := NewCollector()

	observeSubmission(c, result("http://api.test/problem/problem-submissions", 200, 10*time.Millisecond))
	observeSubmission(c, result("http://api.test/problem/problem-submissions", 500, 30*time.Millisecond))
	observeSubmission(c, result("http://api.test/problem/problem-submissions", 400, 20*time.Millisecond))

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap.Metrics.Requests)
	assert.InDelta(t, 2.0/3.0, snap.FailedRate(), 1e-9)

	byName := map[string]CheckCount{}
	for _, cc := range snap.Checks {
		byName[cc.Name] = cc
	}
	assert.Equal(t, CheckCount{Name: domain.CheckSubmissionOK, Passes: 1, Fails: 2}, byName[domain.CheckSubmissionOK])
	assert.Equal(t, CheckCount{Name: domain.CheckSubmissionNot500, Passes: 2, Fails: 1}, byName[domain.CheckSubmissionNot500])
	assert.InDelta(t, 0.5, snap.CheckRate(), 1e-9)
}

func TestCollector_IgnoresResultsWithoutRequest(t *testing.T) {
	c := NewCollector()

	c.CheckSubmission(&vegeta.Result{Error: "targeter failed"})
	c.ObserveRequest(&vegeta.Result{Error: "targeter failed"})
	c.ObserveRequest(nil)

	snap := c.Snapshot()
	assert.Zero(t, snap.Metrics.Requests)
	assert.Empty(t, snap.Checks)
	assert.Zero(t, snap.FailedRate())
}

func TestCollector_WorkloadEvents(t *testing.T) {
	c := NewCollector()

	c.RecordHandshake(domain.HandshakeLoginFailed)
	c.RecordHandshake(domain.HandshakeSucceeded)
	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordIteration(false)
	c.RecordIteration(true)
	c.RecordIteration(false)
	c.RecordCheck(domain.CheckLoggedIn, false)
	c.RecordCheck(domain.CheckLoggedIn, true)

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.Iterations)
	assert.Equal(t, uint64(1), snap.Skipped)
	assert.Equal(t, uint64(2), snap.CacheHits)
	assert.Equal(t, uint64(1), snap.Handshakes[domain.HandshakeLoginFailed])
	assert.Equal(t, uint64(1), snap.Handshakes[domain.HandshakeSucceeded])
	assert.Equal(t, []CheckCount{{Name: domain.CheckLoggedIn, Passes: 1, Fails: 1}}, snap.Checks)
}

func TestCollector_Elapsed(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.Snapshot().Elapsed)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	c.Start()
	now = now.Add(90 * time.Second)

	assert.Equal(t, 90*time.Second, c.Snapshot().Elapsed)
}

func TestCollector_SnapshotIsIndependent(t *testing.T) {
	c := NewCollector()
	c.RecordHandshake(domain.HandshakeSucceeded)

	snap := c.Snapshot()
	snap.Handshakes[domain.HandshakeSucceeded] = 42

	assert.Equal(t, uint64(1), c.Snapshot().Handshakes[domain.HandshakeSucceeded])
}

func TestEndpointOf(t *testing.T) {
	tests := map[string]string{
		"http://api.test/identity/auth/login":         "login",
		"http://api.test/identity/profile/me":         "profile",
		"http://api.test/problem/problem-submissions": "submission",
		"http://api.test/problem/problems":            "other",
		"://bad":                                      "other",
	}
	for raw, want := range tests {
		assert.Equal(t, want, endpointOf(raw), raw)
	}
}
