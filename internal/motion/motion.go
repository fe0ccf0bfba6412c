// Package motion defines the kinematic record exchanged between the shield's
// components and the bounded-jerk path representation used to parameterize
// progress along a long-term trajectory.
package motion

import "fmt"

// Motion is a per-joint kinematic sample: position, velocity, and acceleration
// for every joint, plus the absolute time and the path parameter it was sampled
// at. A Motion is immutable once constructed; producers hand out fresh copies.
type Motion struct {
	Time float64   // absolute time, seconds
	S    float64   // path parameter the sample was taken at, seconds along the trajectory
	Q    []float64 // joint positions, rad
	DQ   []float64 // joint velocities, rad/s
	DDQ  []float64 // joint accelerations, rad/s²
}

// New constructs a Motion from explicit kinematic vectors. The slices are
// copied. Mismatched dimensions are a programmer error and panic.
func New(t float64, q, dq, ddq []float64) Motion {
	if len(dq) != len(q) || len(ddq) != len(q) {
		panic(fmt.Sprintf("motion: dimension mismatch q=%d dq=%d ddq=%d", len(q), len(dq), len(ddq)))
	}
	m := Motion{
		Time: t,
		Q:    make([]float64, len(q)),
		DQ:   make([]float64, len(q)),
		DDQ:  make([]float64, len(q)),
	}
	copy(m.Q, q)
	copy(m.DQ, dq)
	copy(m.DDQ, ddq)
	return m
}

// Stationary returns a Motion at rest at the given joint positions.
func Stationary(t float64, q []float64) Motion {
	zero := make([]float64, len(q))
	return New(t, q, zero, zero)
}

// Joints returns the joint count of the motion.
func (m Motion) Joints() int { return len(m.Q) }
