package harness

import (
	"context"
	"net/http"
	"sync"
	"time"

	"intellab-testing/internal/infrastructure/metrics"
	"intellab-testing/utils/logger"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// Progress is a point-in-time view of a run.
type Progress struct {
	Scenario  string
	Running   bool
	Elapsed   time.Duration
	Stage     int
	TargetVUs float64
}

// AttackerOptions sizes the attacker for pacer. Workers never exceed the
// peak virtual user count, so each worker plays one virtual user.
//
// client carries the request timeout and should wrap its transport in an
// InstrumentedTransport: the attacker's own latency starts before the
// targeter runs, so it would include waiting for a session.
func AttackerOptions(pacer StagePacer, client *http.Client) []func(*vegeta.Attacker) {
	peak := uint64(max(pacer.MaxVUs(), 1))
	return []func(*vegeta.Attacker){
		vegeta.MaxWorkers(peak),
		vegeta.Workers(min(peak, vegeta.DefaultWorkers)),
		vegeta.Client(client),
	}
}

// NewClient returns the HTTP client shared by the attacker and the
// identity gateway. Each round trip is reported to observer.
func NewClient(next http.RoundTripper, observer RequestObserver, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewInstrumentedTransport(next, observer),
	}
}

// Runner drives one staged attack and feeds its results to a Collector.
type Runner struct {
	name      string
	pacer     StagePacer
	collector *Collector
	log       *logger.ContextLogger
	opts      []func(*vegeta.Attacker)
	tick      time.Duration

	mu       sync.Mutex
	started  time.Time
	finished bool
}

func NewRunner(name string, pacer StagePacer, collector *Collector, log *logger.ContextLogger, opts ...func(*vegeta.Attacker)) *Runner {
	return &Runner{
		name:      name,
		pacer:     pacer,
		collector: collector,
		log:       log,
		opts:      opts,
		tick:      time.Second,
	}
}

// Run attacks until the last stage ends or ctx is cancelled, then returns
// the final snapshot. Cancellation stops the attacker and drains in-flight
// results before returning ctx.Err().
//
// newTargeter receives a context that also ends with the last stage, so
// workers blocked inside the targeter are released when the attack is over.
func (r *Runner) Run(ctx context.Context, newTargeter func(context.Context) vegeta.Targeter) (Snapshot, error) {
	ctx = logger.WithScenario(ctx, r.name)
	attackCtx, cancel := context.WithTimeout(ctx, r.pacer.Duration())
	defer cancel()

	attacker := vegeta.NewAttacker(r.opts...)

	r.mu.Lock()
	r.started = time.Now()
	r.mu.Unlock()
	r.collector.Start()

	r.log.WithContext(ctx).Info("attack started",
		"stages", len(r.pacer.Stages),
		"duration", r.pacer.Duration().String(),
		"max_vus", r.pacer.MaxVUs(),
		"iteration_interval", r.pacer.Interval.String(),
	)

	results := attacker.Attack(newTargeter(attackCtx), r.pacer, r.pacer.Duration(), r.name)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	stage := r.reportStage(ctx, -1)
	done := ctx.Done()

loop:
	for {
		select {
		case res, ok := <-results:
			if !ok {
				break loop
			}
			if res.URL == "" && res.Error != "" && attackCtx.Err() == nil {
				r.log.WithContext(ctx).Warn("iteration aborted before sending", "error", res.Error)
			}
			r.collector.CheckSubmission(res)
		case <-ticker.C:
			stage = r.reportStage(ctx, stage)
		case <-done:
			r.log.WithContext(ctx).Info("stopping attack", "reason", context.Cause(ctx).Error())
			attacker.Stop()
			done = nil
		}
	}

	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
	metrics.SetTargetVUs(0)

	snap := r.collector.Snapshot()
	r.log.LogDuration(ctx, "attack", snap.Elapsed)

	return snap, ctx.Err()
}

// Progress reports the scenario position of the run.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := Progress{Scenario: r.name, Stage: -1}
	if r.started.IsZero() {
		return p
	}
	p.Elapsed = time.Since(r.started)
	if r.finished {
		return p
	}
	p.Running = true
	p.Stage = r.pacer.StageAt(p.Elapsed)
	p.TargetVUs = r.pacer.VUs(p.Elapsed)
	return p
}

// reportStage publishes the target VU gauge and logs stage transitions.
func (r *Runner) reportStage(ctx context.Context, prev int) int {
	p := r.Progress()
	metrics.SetTargetVUs(p.TargetVUs)

	if p.Stage != prev && p.Stage >= 0 {
		st := r.pacer.Stages[p.Stage]
		r.log.WithContext(logger.WithStage(ctx, p.Stage)).Info("stage started",
			"target_vus", st.Target,
			"duration", st.Duration.String(),
		)
	}
	return p.Stage
}
