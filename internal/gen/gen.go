// Package gen synthesizes long-term trajectories from a start motion to a goal
// joint state. It fills the generator port of the shield with a native
// implementation: cubic joint profiles over a shared duration, stretched until
// every joint respects its velocity and acceleration ceilings, sampled at the
// shield's cycle time.
package gen

import (
	"errors"
	"fmt"
	"math"

	"github.com/hri-lab/shield-engine/internal/motion"
	"github.com/hri-lab/shield-engine/internal/traj"
)

// ErrUnreachable is returned when no profile within the buffer duration
// satisfies the joint limits.
var ErrUnreachable = errors.New("gen: goal not reachable within buffer duration")

// Generator builds long-term trajectories bounded by the per-joint ceilings
// the shield later replans against.
type Generator struct {
	SampleTime     float64
	BufferDuration float64   // hard cap on a trajectory's duration, seconds
	VMax           []float64 // per-joint velocity ceiling along the trajectory
	AMax           []float64 // per-joint acceleration ceiling along the trajectory
	JMax           []float64 // per-joint jerk ceiling along the trajectory
}

// Generate computes a trajectory from the start motion to the goal positions
// and velocities. All joints share one duration so they arrive together.
func (g *Generator) Generate(start motion.Motion, goalQ, goalDQ []float64) (*traj.LongTermTraj, error) {
	n := start.Joints()
	if len(goalQ) != n || len(goalDQ) != n {
		return nil, fmt.Errorf("gen: goal dimension %d/%d does not match %d joints", len(goalQ), len(goalDQ), n)
	}

	duration := g.minDuration(start, goalQ, goalDQ)
	// Stretch until the sampled profile respects the ceilings. Cubic peak
	// values scale with 1/T and 1/T², so this terminates quickly.
	for duration <= g.BufferDuration {
		if g.withinLimits(start, goalQ, goalDQ, duration) {
			return g.sample(start, goalQ, goalDQ, duration)
		}
		duration *= 1.25
	}
	return nil, fmt.Errorf("%w: need more than %.2fs", ErrUnreachable, g.BufferDuration)
}

// minDuration estimates the shortest plausible shared duration from the
// per-joint distance at limit velocity.
func (g *Generator) minDuration(start motion.Motion, goalQ, goalDQ []float64) float64 {
	d := 2 * g.SampleTime
	for i := range goalQ {
		if g.VMax[i] <= 0 {
			continue
		}
		t := 1.5 * math.Abs(goalQ[i]-start.Q[i]) / g.VMax[i]
		if t > d {
			d = t
		}
	}
	return d
}

// hermite evaluates the cubic between (q0, v0) and (q1, v1) over duration T at
// time t, returning position, velocity, and acceleration.
func hermite(q0, v0, q1, v1, T, t float64) (q, dq, ddq float64) {
	u := t / T
	h00 := 2*u*u*u - 3*u*u + 1
	h10 := u*u*u - 2*u*u + u
	h01 := -2*u*u*u + 3*u*u
	h11 := u*u*u - u*u
	q = h00*q0 + h10*T*v0 + h01*q1 + h11*T*v1

	d00 := 6*u*u - 6*u
	d10 := 3*u*u - 4*u + 1
	d01 := -6*u*u + 6*u
	d11 := 3*u*u - 2*u
	dq = (d00*q0 + d01*q1)/T + d10*v0 + d11*v1

	s00 := 12*u - 6
	s10 := 6*u - 4
	s01 := -12*u + 6
	s11 := 6*u - 2
	ddq = (s00*q0+s01*q1)/(T*T) + (s10*v0+s11*v1)/T
	return q, dq, ddq
}

// withinLimits checks the sampled cubic against the velocity and acceleration
// ceilings for every joint.
func (g *Generator) withinLimits(start motion.Motion, goalQ, goalDQ []float64, T float64) bool {
	steps := int(math.Ceil(T / g.SampleTime))
	for i := range goalQ {
		for k := 0; k <= steps; k++ {
			t := math.Min(float64(k)*g.SampleTime, T)
			_, dq, ddq := hermite(start.Q[i], start.DQ[i], goalQ[i], goalDQ[i], T, t)
			if math.Abs(dq) > g.VMax[i] || math.Abs(ddq) > g.AMax[i] {
				return false
			}
		}
	}
	return true
}

func (g *Generator) sample(start motion.Motion, goalQ, goalDQ []float64, T float64) (*traj.LongTermTraj, error) {
	n := start.Joints()
	steps := int(math.Ceil(T / g.SampleTime))
	motions := make([]motion.Motion, steps+1)
	for k := 0; k <= steps; k++ {
		t := math.Min(float64(k)*g.SampleTime, T)
		q := make([]float64, n)
		dq := make([]float64, n)
		ddq := make([]float64, n)
		for i := 0; i < n; i++ {
			q[i], dq[i], ddq[i] = hermite(start.Q[i], start.DQ[i], goalQ[i], goalDQ[i], T, t)
		}
		motions[k] = motion.New(start.Time+t, q, dq, ddq)
	}
	// The final sample holds the goal exactly.
	last := motion.New(start.Time+T, goalQ, goalDQ, make([]float64, n))
	motions[steps] = last
	return traj.NewConstantLimits(g.SampleTime, motions, g.AMax, g.JMax)
}

// Hold returns a trajectory that keeps the robot stationary at q for the given
// number of steps. Used as the initial long-term trajectory before any goal
// arrives.
func (g *Generator) Hold(q []float64, steps int) (*traj.LongTermTraj, error) {
	if steps < 1 {
		steps = 1
	}
	motions := make([]motion.Motion, steps+1)
	for k := range motions {
		motions[k] = motion.Stationary(float64(k)*g.SampleTime, q)
	}
	return traj.NewConstantLimits(g.SampleTime, motions, g.AMax, g.JMax)
}
