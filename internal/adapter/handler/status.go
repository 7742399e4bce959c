package handler

import (
	"net/http"
	"time"

	"intellab-testing/internal/domain"
	"intellab-testing/internal/harness"

	"github.com/labstack/echo/v4"
)

// ProgressSource reports where the run is in its scenario.
type ProgressSource interface {
	Progress() harness.Progress
}

// SnapshotSource reports aggregated run results.
type SnapshotSource interface {
	Snapshot() harness.Snapshot
}

// CacheStatusSource reports the auth cache state.
type CacheStatusSource interface {
	Status() domain.CacheStatus
}

// StatusHandler serves a live view of a running load test.
type StatusHandler struct {
	progress ProgressSource
	results  SnapshotSource
	auth     CacheStatusSource
}

// NewStatusHandler creates a status handler.
func NewStatusHandler(p ProgressSource, r SnapshotSource, a CacheStatusSource) *StatusHandler {
	return &StatusHandler{progress: p, results: r, auth: a}
}

type statusResponse struct {
	Scenario          string         `json:"scenario"`
	Running           bool           `json:"running"`
	ElapsedSeconds    float64        `json:"elapsed_seconds"`
	Stage             int            `json:"stage"`
	TargetVUs         float64        `json:"target_vus"`
	Requests          uint64         `json:"requests"`
	SuccessRatio      float64        `json:"success_ratio"`
	LatencyP95Ms      float64        `json:"latency_p95_ms"`
	Iterations        uint64         `json:"iterations"`
	IterationsSkipped uint64         `json:"iterations_skipped"`
	Auth              authStatusJSON `json:"auth"`
}

type authStatusJSON struct {
	State       string    `json:"state"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	LastFailure time.Time `json:"last_failure,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Handshakes  uint64    `json:"handshakes"`
	CacheHits   uint64    `json:"cache_hits"`
}

// Handle processes the /v1/status endpoint.
func (h *StatusHandler) Handle(c echo.Context) error {
	p := h.progress.Progress()
	snap := h.results.Snapshot()
	auth := h.auth.Status()

	return c.JSON(http.StatusOK, statusResponse{
		Scenario:          p.Scenario,
		Running:           p.Running,
		ElapsedSeconds:    p.Elapsed.Seconds(),
		Stage:             p.Stage,
		TargetVUs:         p.TargetVUs,
		Requests:          snap.Metrics.Requests,
		SuccessRatio:      snap.Metrics.Success,
		LatencyP95Ms:      float64(snap.Metrics.Latencies.P95) / float64(time.Millisecond),
		Iterations:        snap.Iterations,
		IterationsSkipped: snap.Skipped,
		Auth: authStatusJSON{
			State:       auth.State.String(),
			ExpiresAt:   auth.ExpiresAt,
			LastFailure: auth.LastFailure,
			LastError:   auth.LastError,
			Handshakes:  auth.Handshakes,
			CacheHits:   auth.Hits,
		},
	})
}
