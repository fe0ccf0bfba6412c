package planner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hri-lab/shield-engine/internal/motion"
)

// maxAbsAcc samples the profile and returns the largest |acc| seen.
func maxAbsAcc(p motion.Path, dt float64) float64 {
	peak := math.Abs(p.Acc)
	for t := 0.0; t <= p.Duration(); t += dt {
		_, _, acc := p.At(t)
		if a := math.Abs(acc); a > peak {
			peak = a
		}
	}
	return peak
}

func TestBrakeLowSpeedTriangular(t *testing.T) {
	// Braking 0.2 path speed under a_max=1, j_max=5 never saturates the
	// acceleration bound, so the profile is two symmetric jerk ramps of
	// sqrt(v0/j) each.
	p, err := PlanSafetyShield(0, 0.2, 0, 0, 1.0, 5.0)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, p.Duration(), 1e-9)
	pos, vel, acc := p.Final()
	assert.InDelta(t, 0.04, pos, 1e-9) // v0·T/2
	assert.InDelta(t, 0.0, vel, 1e-9)
	assert.InDelta(t, 0.0, acc, 1e-9)
	assert.LessOrEqual(t, maxAbsAcc(p, 0.004), 1.0+1e-9)
}

func TestBrakeTrapezoidal(t *testing.T) {
	// From full path speed the acceleration bound saturates: ramp down in
	// 0.1s, hold -1 for 0.9s, ramp back up in 0.1s.
	p, err := PlanSafetyShield(0, 1.0, 0, 0, 1.0, 10.0)
	require.NoError(t, err)

	assert.InDelta(t, 1.1, p.Duration(), 1e-9)
	_, vel, acc := p.Final()
	assert.InDelta(t, 0.0, vel, 1e-9)
	assert.InDelta(t, 0.0, acc, 1e-9)
	assert.LessOrEqual(t, maxAbsAcc(p, 0.004), 1.0+1e-9)

	// Braking velocity never increases.
	prev := math.Inf(1)
	for ts := 0.0; ts <= p.Duration(); ts += 0.004 {
		_, vel, _ := p.At(ts)
		assert.LessOrEqual(t, vel, prev+1e-12)
		prev = vel
	}
}

func TestSingleClosingRamp(t *testing.T) {
	// Target velocity equals what ramping the start acceleration to zero
	// yields on its own: ve = 0.9 - 1·1/(2·10) = 0.85.
	p, err := PlanSafetyShield(0, 0.9, -1.0, 0.85, 2.0, 10.0)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, p.Duration(), 1e-9)
	_, vel, acc := p.Final()
	assert.InDelta(t, 0.85, vel, 1e-9)
	assert.InDelta(t, 0.0, acc, 1e-9)
}

func TestSpeedUpToFullPathSpeed(t *testing.T) {
	p, err := PlanSafetyShield(0.3, 0.3, 0, 1.0, 5.0, 50.0)
	require.NoError(t, err)

	_, vel, acc := p.Final()
	assert.InDelta(t, 1.0, vel, 1e-9)
	assert.InDelta(t, 0.0, acc, 1e-9)
	assert.LessOrEqual(t, maxAbsAcc(p, 0.001), 5.0+1e-9)
}

func TestZeroMotionIsAlreadyDone(t *testing.T) {
	p, err := PlanSafetyShield(0.1, 0, 0, 0, 1.0, 5.0)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, p.Duration(), 1e-12)
	pos, vel, acc := p.Final()
	assert.Equal(t, 0.1, pos)
	assert.Equal(t, 0.0, vel)
	assert.Equal(t, 0.0, acc)
}

func TestInfeasibleInputs(t *testing.T) {
	tests := []struct {
		name                          string
		vel, acc, ve, aMax, jMax float64
	}{
		{name: "zero acceleration bound", vel: 0.5, aMax: 0, jMax: 10},
		{name: "negative jerk bound", vel: 0.5, aMax: 1, jMax: -1},
		{name: "start acceleration beyond bound", vel: 0.5, acc: 3, aMax: 2, jMax: 10},
		{name: "non-finite start", vel: math.NaN(), aMax: 1, jMax: 10},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := PlanSafetyShield(0, tc.vel, tc.acc, tc.ve, tc.aMax, tc.jMax)
			assert.ErrorIs(t, err, ErrInfeasible)
		})
	}
}

func TestBrakeFromNonzeroAcceleration(t *testing.T) {
	// Mid-manoeuvre replanning: braking while still accelerating forward.
	p, err := PlanSafetyShield(0.2, 0.6, 4.0, 0, 5.0, 100.0)
	require.NoError(t, err)

	_, vel, acc := p.Final()
	assert.InDelta(t, 0.0, vel, 1e-9)
	assert.InDelta(t, 0.0, acc, 1e-9)
	assert.LessOrEqual(t, maxAbsAcc(p, 0.0005), 5.0+1e-9)
}
