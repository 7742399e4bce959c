package harness

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// submitStages is the default ramp: 5 VUs, then 10, then down to 0.
var submitStages = []Stage{
	{Duration: 30 * time.Second, Target: 5},
	{Duration: 60 * time.Second, Target: 10},
	{Duration: 30 * time.Second, Target: 0},
}

func TestNewStagePacer_Validation(t *testing.T) {
	tests := []struct {
		name     string
		stages   []Stage
		interval time.Duration
	}{
		{name: "no stages", stages: nil, interval: time.Second},
		{name: "zero interval", stages: submitStages, interval: 0},
		{name: "zero duration", stages: []Stage{{Duration: 0, Target: 1}}, interval: time.Second},
		{name: "negative target", stages: []Stage{{Duration: time.Second, Target: -1}}, interval: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStagePacer(tt.stages, tt.interval)
			assert.Error(t, err)
		})
	}
}

func TestStagePacer_Shape(t *testing.T) {
	p, err := NewStagePacer(submitStages, 5*time.Second)
	require.NoError(t, err)

	assert.Equal(t, 120*time.Second, p.Duration())
	assert.Equal(t, 10, p.MaxVUs())

	assert.Equal(t, 0, p.StageAt(0))
	assert.Equal(t, 1, p.StageAt(30*time.Second))
	assert.Equal(t, 2, p.StageAt(119*time.Second))
	assert.Equal(t, -1, p.StageAt(120*time.Second))

	assert.InDelta(t, 0, p.VUs(0), 1e-9)
	assert.InDelta(t, 2.5, p.VUs(15*time.Second), 1e-9)
	assert.InDelta(t, 5, p.VUs(30*time.Second), 1e-9)
	assert.InDelta(t, 7.5, p.VUs(60*time.Second), 1e-9)
	assert.InDelta(t, 5, p.VUs(105*time.Second), 1e-9)
	assert.InDelta(t, 0, p.VUs(121*time.Second), 1e-9)

	assert.InDelta(t, 1.0, p.Rate(30*time.Second), 1e-9)
	assert.InDelta(t, 2.0, p.Rate(90*time.Second), 1e-9)
}

func TestStagePacer_TotalHits(t *testing.T) {
	p, err := NewStagePacer(submitStages, 5*time.Second)
	require.NoError(t, err)

	// 15 hits on the first ramp, 90 on the second, 30 on the way down.
	assert.InDelta(t, 15, p.hits(30*time.Second), 1e-9)
	assert.InDelta(t, 105, p.hits(90*time.Second), 1e-9)
	assert.InDelta(t, 135, p.hits(120*time.Second), 1e-9)
}

func TestStagePacer_TimeOfHitInvertsHits(t *testing.T) {
	p, err := NewStagePacer(submitStages, 5*time.Second)
	require.NoError(t, err)

	for _, n := range []float64{1, 10, 15, 16, 60, 105, 120, 135} {
		at, ok := p.timeOfHit(n)
		require.True(t, ok, "hit %v", n)
		assert.InDelta(t, n, p.hits(at), 1e-3, "hit %v at %v", n, at)
	}

	_, ok := p.timeOfHit(136)
	assert.False(t, ok)
}

func TestStagePacer_Pace(t *testing.T) {
	p, err := NewStagePacer([]Stage{{Duration: 10 * time.Second, Target: 10}}, time.Second)
	require.NoError(t, err)

	// Constant 10 VUs would be 10 hits/s; a ramp from 0 reaches one hit at sqrt(2)s.
	wait, stop := p.Pace(0, 0)
	assert.False(t, stop)
	assert.InDelta(t, math.Sqrt2, wait.Seconds(), 1e-6)

	// Behind schedule: fire immediately.
	wait, stop = p.Pace(5*time.Second, 3)
	assert.False(t, stop)
	assert.Zero(t, wait)

	// On schedule: wait for the next hit.
	wait, stop = p.Pace(5*time.Second, 12)
	assert.False(t, stop)
	assert.Greater(t, wait, time.Duration(0))

	// Past the end: stop.
	_, stop = p.Pace(10*time.Second, 50)
	assert.True(t, stop)
}

func TestStagePacer_PaceHoldsDuringIdleStage(t *testing.T) {
	p, err := NewStagePacer([]Stage{
		{Duration: 10 * time.Second, Target: 0},
		{Duration: 10 * time.Second, Target: 0},
	}, time.Second)
	require.NoError(t, err)

	wait, stop := p.Pace(3*time.Second, 0)
	assert.False(t, stop)
	assert.Equal(t, 17*time.Second, wait)
}
