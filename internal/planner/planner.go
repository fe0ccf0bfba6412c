// Package planner synthesizes bounded-jerk profiles in path-parameter space.
//
// PlanSafetyShield solves the classic seven-segment problem for the velocity
// dimension: bring an arbitrary (vel, acc) starting state to a target terminal
// velocity with zero terminal acceleration, never exceeding the acceleration
// and jerk bounds. Braking profiles use a terminal velocity of zero; recovery
// profiles rejoin the long-term plan at full path speed.
package planner

import (
	"errors"
	"fmt"
	"math"

	"github.com/hri-lab/shield-engine/internal/motion"
)

// ErrInfeasible is returned when no bounded-jerk profile exists within the
// given bounds. Callers fall back to the last verified failsafe path.
var ErrInfeasible = errors.New("planner: no feasible bounded-jerk profile")

const eps = 1e-9

// PlanSafetyShield constructs a profile from (pos, vel, acc) to terminal
// velocity ve with zero terminal acceleration, respecting aMax and jMax at
// every instant. The returned path starts at the given state and carries up to
// three phases: a jerk ramp toward the peak acceleration, an optional hold at
// ±aMax, and the closing ramp back to zero acceleration.
func PlanSafetyShield(pos, vel, acc, ve, aMax, jMax float64) (motion.Path, error) {
	if aMax <= 0 || jMax <= 0 {
		return motion.Path{}, fmt.Errorf("%w: non-positive bounds a_max=%g j_max=%g", ErrInfeasible, aMax, jMax)
	}
	for _, v := range []float64{pos, vel, acc, ve} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return motion.Path{}, fmt.Errorf("%w: non-finite start state", ErrInfeasible)
		}
	}
	// A start acceleration outside the bound can never be ramped back without
	// overshooting it further.
	if math.Abs(acc) > aMax+eps {
		return motion.Path{}, fmt.Errorf("%w: start acceleration %.6g exceeds bound %.6g", ErrInfeasible, acc, aMax)
	}

	path := motion.NewPath(pos, vel, acc)

	// Velocity reached by simply ramping the current acceleration to zero.
	ramp := vel + acc*math.Abs(acc)/(2*jMax)

	if math.Abs(ve-ramp) <= eps {
		// Single closing ramp.
		t := math.Abs(acc) / jMax
		j := 0.0
		if acc > 0 {
			j = -jMax
		} else if acc < 0 {
			j = jMax
		}
		path.SetPhases(motion.Phase{End: t, Jerk: j})
		return path, nil
	}

	// Direction of the acceleration lobe: +1 speeds the path up, -1 brakes.
	d := 1.0
	if ve < ramp {
		d = -1.0
	}

	// Peak acceleration of a purely triangular lobe.
	peakSq := acc*acc/2 + d*jMax*(ve-vel)
	if peakSq < 0 {
		return motion.Path{}, fmt.Errorf("%w: negative peak discriminant", ErrInfeasible)
	}
	aPeak := d * math.Sqrt(peakSq)

	if math.Abs(aPeak) <= aMax {
		// Triangular: ramp to aPeak, ramp back to zero.
		t1 := (aPeak - acc) / (d * jMax)
		t2 := math.Abs(aPeak) / jMax
		if t1 < -eps || !isFinite(t1, t2) {
			return motion.Path{}, fmt.Errorf("%w: degenerate triangular segment times", ErrInfeasible)
		}
		t1 = math.Max(0, t1)
		path.SetPhases(
			motion.Phase{End: t1, Jerk: d * jMax},
			motion.Phase{End: t1 + t2, Jerk: -d * jMax},
		)
		return path, nil
	}

	// Trapezoidal: ramp to ±aMax, hold, ramp back to zero.
	aLim := d * aMax
	t1 := (aLim - acc) / (d * jMax)
	t3 := aMax / jMax
	dv1 := acc*t1 + d*jMax*t1*t1/2
	dv3 := d * aMax * aMax / (2 * jMax)
	th := (ve - vel - dv1 - dv3) / aLim
	if t1 < -eps || th < -eps || !isFinite(t1, th, t3) {
		return motion.Path{}, fmt.Errorf("%w: degenerate trapezoidal segment times", ErrInfeasible)
	}
	t1 = math.Max(0, t1)
	th = math.Max(0, th)
	path.SetPhases(
		motion.Phase{End: t1, Jerk: d * jMax},
		motion.Phase{End: t1 + th, Jerk: 0},
		motion.Phase{End: t1 + th + t3, Jerk: -d * jMax},
	)
	return path, nil
}

func isFinite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
