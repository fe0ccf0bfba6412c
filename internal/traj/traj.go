// Package traj implements the long-term trajectory buffer: a fixed-step,
// time-indexed sequence of motions with per-step acceleration and jerk
// ceilings, read by nearest-sample interpolation. A buffer is replaced, never
// mutated, when a new long-term trajectory is adopted.
package traj

import (
	"fmt"
	"math"

	"github.com/hri-lab/shield-engine/internal/motion"
)

// LongTermTraj is the discretized long-term trajectory. Step k corresponds to
// absolute time k·sampleTime since the trajectory start.
type LongTermTraj struct {
	sampleTime float64
	motions    []motion.Motion
	maxAcc     [][]float64 // per step, per joint acceleration ceiling
	maxJerk    [][]float64 // per step, per joint jerk ceiling
}

// New builds a buffer from pre-sampled motions and per-step limit vectors.
func New(sampleTime float64, motions []motion.Motion, maxAcc, maxJerk [][]float64) (*LongTermTraj, error) {
	if sampleTime <= 0 {
		return nil, fmt.Errorf("traj: sample time must be positive, got %g", sampleTime)
	}
	if len(motions) == 0 {
		return nil, fmt.Errorf("traj: empty motion buffer")
	}
	if len(maxAcc) != len(motions) || len(maxJerk) != len(motions) {
		return nil, fmt.Errorf("traj: limit vectors (%d acc, %d jerk) do not match %d samples",
			len(maxAcc), len(maxJerk), len(motions))
	}
	joints := motions[0].Joints()
	for k, m := range motions {
		if m.Joints() != joints || len(maxAcc[k]) != joints || len(maxJerk[k]) != joints {
			return nil, fmt.Errorf("traj: joint count mismatch at step %d", k)
		}
	}
	return &LongTermTraj{sampleTime: sampleTime, motions: motions, maxAcc: maxAcc, maxJerk: maxJerk}, nil
}

// NewConstantLimits builds a buffer whose acceleration and jerk ceilings are
// the same per-joint vectors at every step.
func NewConstantLimits(sampleTime float64, motions []motion.Motion, aMax, jMax []float64) (*LongTermTraj, error) {
	acc := make([][]float64, len(motions))
	jerk := make([][]float64, len(motions))
	for k := range motions {
		acc[k] = aMax
		jerk[k] = jMax
	}
	return New(sampleTime, motions, acc, jerk)
}

// Len returns the number of samples in the buffer.
func (t *LongTermTraj) Len() int { return len(t.motions) }

// SampleTime returns the buffer's fixed step size in seconds.
func (t *LongTermTraj) SampleTime() float64 { return t.sampleTime }

// Duration returns the time span covered by the buffer.
func (t *LongTermTraj) Duration() float64 {
	return float64(len(t.motions)-1) * t.sampleTime
}

// Index returns the discrete step nearest to the continuous path parameter s,
// clamped to the buffer. Past the final sample the robot has reached the
// long-term goal and holds there.
func (t *LongTermTraj) Index(s float64) int {
	k := int(math.Round(s / t.sampleTime))
	if k < 0 {
		return 0
	}
	if k >= len(t.motions) {
		return len(t.motions) - 1
	}
	return k
}

// Interpolate maps a continuous path state (s, ds, dds) onto per-joint
// kinematics. The buffer's per-step velocity is scaled by ds and the
// acceleration follows the chain rule ddq·ds² + dq·dds. The returned limits
// are the acceleration and jerk ceilings applicable at that step, needed by
// the failsafe planner.
func (t *LongTermTraj) Interpolate(s, ds, dds float64) (m motion.Motion, aMax, jMax []float64) {
	k := t.Index(s)
	base := t.motions[k]
	joints := base.Joints()

	dq := make([]float64, joints)
	ddq := make([]float64, joints)
	for i := 0; i < joints; i++ {
		dq[i] = base.DQ[i] * ds
		ddq[i] = base.DDQ[i]*ds*ds + base.DQ[i]*dds
	}
	m = motion.New(base.Time, base.Q, dq, ddq)
	m.S = s
	return m, t.maxAcc[k], t.maxJerk[k]
}

// Motion returns the raw buffered sample at discrete step k (clamped).
func (t *LongTermTraj) Motion(k int) motion.Motion {
	if k < 0 {
		k = 0
	}
	if k >= len(t.motions) {
		k = len(t.motions) - 1
	}
	return t.motions[k]
}

// Limits holds the per-joint kinematic ceilings of the robot, both absolute
// and relative to the long-term trajectory.
type Limits struct {
	VMaxAllowed []float64 // absolute joint velocity bound
	AMaxAllowed []float64 // absolute joint acceleration bound
	JMaxAllowed []float64 // absolute joint jerk bound
}

// MaxAccJerk computes the tightest scalar acceleration and jerk bounds on the
// path parameter that keep every joint within its absolute limits for a
// manoeuvre starting at the given joint velocities. aMaxPart and jMaxPart are
// the per-step ceilings of the long-term trajectory at the manoeuvre start;
// maxSStop bounds the path length of the manoeuvre.
//
// Per joint, the speed over the manoeuvre is bounded by
// min(vMax, |dq| + aPart·maxSStop); the chain rule then yields the largest
// path acceleration and jerk consistent with the joint's remaining headroom.
// The minimum across joints is returned, floored at zero.
func MaxAccJerk(prevSpeed, aMaxPart, jMaxPart []float64, lim Limits, maxSStop float64) (aMaxPath, jMaxPath float64) {
	aMaxPath = math.Inf(1)
	jMaxPath = math.Inf(1)
	for i := range prevSpeed {
		v := math.Abs(prevSpeed[i]) + aMaxPart[i]*maxSStop
		if v > lim.VMaxAllowed[i] {
			v = lim.VMaxAllowed[i]
		}
		if v <= 0 {
			continue
		}
		a := (lim.AMaxAllowed[i] - aMaxPart[i]) / v
		if a < aMaxPath {
			aMaxPath = a
		}
	}
	if math.IsInf(aMaxPath, 1) {
		aMaxPath = 0
	}
	aMaxPath = math.Max(0, aMaxPath)

	for i := range prevSpeed {
		v := math.Abs(prevSpeed[i]) + aMaxPart[i]*maxSStop
		if v > lim.VMaxAllowed[i] {
			v = lim.VMaxAllowed[i]
		}
		if v <= 0 {
			continue
		}
		j := (lim.JMaxAllowed[i] - jMaxPart[i] - 3*aMaxPart[i]*aMaxPath) / v
		if j < jMaxPath {
			jMaxPath = j
		}
	}
	if math.IsInf(jMaxPath, 1) {
		jMaxPath = 0
	}
	return aMaxPath, math.Max(0, jMaxPath)
}
