package harness

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Stage ramps the virtual user count linearly to Target over Duration,
// starting from the previous stage's target (zero for the first stage).
type Stage struct {
	Duration time.Duration `json:"duration" mapstructure:"duration"`
	Target   int           `json:"target" mapstructure:"target"`
}

func (s Stage) String() string {
	return fmt.Sprintf("%d VUs over %v", s.Target, s.Duration)
}

// StagePacer paces iterations for a staged virtual user profile. Each
// virtual user runs one iteration per Interval, so the iteration rate at
// any moment is VUs(t)/Interval. Implements vegeta.Pacer.
type StagePacer struct {
	Stages   []Stage
	Interval time.Duration
}

// NewStagePacer validates stages and returns a pacer for them.
func NewStagePacer(stages []Stage, interval time.Duration) (StagePacer, error) {
	if len(stages) == 0 {
		return StagePacer{}, errors.New("at least one stage is required")
	}
	if interval <= 0 {
		return StagePacer{}, errors.New("iteration interval must be positive")
	}
	for i, s := range stages {
		if s.Duration <= 0 {
			return StagePacer{}, fmt.Errorf("stage %d: duration must be positive", i)
		}
		if s.Target < 0 {
			return StagePacer{}, fmt.Errorf("stage %d: target must not be negative", i)
		}
	}
	return StagePacer{Stages: stages, Interval: interval}, nil
}

func (p StagePacer) String() string {
	return fmt.Sprintf("StagePacer{%d stages over %v, one iteration per VU every %v}", len(p.Stages), p.Duration(), p.Interval)
}

// Duration returns the total length of all stages.
func (p StagePacer) Duration() time.Duration {
	var total time.Duration
	for _, s := range p.Stages {
		total += s.Duration
	}
	return total
}

// MaxVUs returns the highest target of any stage.
func (p StagePacer) MaxVUs() int {
	peak := 0
	for _, s := range p.Stages {
		peak = max(peak, s.Target)
	}
	return peak
}

// StageAt returns the index of the stage active at elapsed, or -1 once all
// stages are over.
func (p StagePacer) StageAt(elapsed time.Duration) int {
	var start time.Duration
	for i, s := range p.Stages {
		if elapsed < start+s.Duration {
			return i
		}
		start += s.Duration
	}
	return -1
}

// VUs returns the interpolated virtual user count at elapsed.
func (p StagePacer) VUs(elapsed time.Duration) float64 {
	from := 0.0
	var start time.Duration
	for _, s := range p.Stages {
		to := float64(s.Target)
		if elapsed < start+s.Duration {
			frac := float64(elapsed-start) / float64(s.Duration)
			return from + (to-from)*frac
		}
		from = to
		start += s.Duration
	}
	return 0
}

// Rate returns the iteration rate in hits per second at elapsed.
func (p StagePacer) Rate(elapsed time.Duration) float64 {
	return p.VUs(elapsed) / p.Interval.Seconds()
}

// Pace returns how long to wait before the next hit.
func (p StagePacer) Pace(elapsed time.Duration, hits uint64) (time.Duration, bool) {
	total := p.Duration()
	if elapsed >= total {
		return 0, true
	}

	expected := p.hits(elapsed)
	if hits < uint64(expected) {
		// Running behind, send next hit immediately.
		return 0, false
	}

	next, ok := p.timeOfHit(float64(hits + 1))
	if !ok || next >= total {
		// No further hit fits in the profile; sleep until the end.
		return total - elapsed, false
	}
	if next <= elapsed {
		return 0, false
	}
	return next - elapsed, false
}

// hits returns the expected number of hits by elapsed: the integral of
// the rate from zero.
func (p StagePacer) hits(elapsed time.Duration) float64 {
	var sum float64
	from := 0.0
	var start time.Duration
	for _, s := range p.Stages {
		a := from / p.Interval.Seconds()
		b := float64(s.Target) / p.Interval.Seconds()
		d := s.Duration.Seconds()
		if elapsed < start+s.Duration {
			tau := (elapsed - start).Seconds()
			slope := (b - a) / d
			return sum + a*tau + slope*tau*tau/2
		}
		sum += (a + b) / 2 * d
		from = float64(s.Target)
		start += s.Duration
	}
	return sum
}

// timeOfHit returns the elapsed time at which the expected hit count
// reaches n.
func (p StagePacer) timeOfHit(n float64) (time.Duration, bool) {
	var sum float64
	from := 0.0
	var start time.Duration
	for _, s := range p.Stages {
		a := from / p.Interval.Seconds()
		b := float64(s.Target) / p.Interval.Seconds()
		d := s.Duration.Seconds()
		area := (a + b) / 2 * d

		if sum+area >= n {
			rem := n - sum
			slope := (b - a) / d
			var tau float64
			if slope == 0 {
				tau = rem / a
			} else {
				disc := a*a + 2*slope*rem
				if disc < 0 {
					disc = 0
				}
				tau = (-a + math.Sqrt(disc)) / slope
			}
			tau = math.Min(math.Max(tau, 0), d)
			return start + time.Duration(tau*float64(time.Second)), true
		}

		sum += area
		from = float64(s.Target)
		start += s.Duration
	}
	return 0, false
}
