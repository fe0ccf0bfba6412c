package motion

import "math"

// PhaseCount is the number of constant-jerk phases a path can hold. Every
// profile the failsafe planner produces fits in three phases: an acceleration
// ramp, an optional constant-acceleration hold, and the closing ramp.
const PhaseCount = 3

// Phase is one constant-jerk segment of a path. End is the time remaining
// until the phase expires, measured from the path's current state; phases are
// ordered by non-decreasing End.
type Phase struct {
	End  float64
	Jerk float64
}

// Path is a scalar path-parameter trajectory: the current (s, ds, dds) state
// plus the jerk phases that describe its future. Pos is the position along the
// long-term trajectory in seconds, Vel the normalized path velocity in [0, 1],
// Acc its derivative. A Path is a value type; assignment copies it, so each
// holder owns its phase list exclusively.
type Path struct {
	Pos float64
	Vel float64
	Acc float64

	Phases [PhaseCount]Phase
}

// NewPath returns a path at the given state with no pending phases.
func NewPath(pos, vel, acc float64) Path {
	return Path{Pos: pos, Vel: vel, Acc: acc}
}

// integrate advances the state by dt under constant jerk j.
func (p *Path) integrate(dt, j float64) {
	p.Pos += p.Vel*dt + p.Acc*dt*dt/2 + j*dt*dt*dt/6
	p.Vel += p.Acc*dt + j*dt*dt/2
	p.Acc += j * dt
}

// Increment advances the path state by dt, integrating through the pending
// phases and consuming them.
func (p *Path) Increment(dt float64) {
	elapsed := 0.0
	for i := 0; i < PhaseCount && elapsed < dt; i++ {
		end := p.Phases[i].End
		if end <= elapsed {
			continue
		}
		span := math.Min(end, dt) - elapsed
		p.integrate(span, p.Phases[i].Jerk)
		elapsed += span
	}
	if elapsed < dt {
		p.integrate(dt-elapsed, 0)
	}
	for i := range p.Phases {
		p.Phases[i].End = math.Max(0, p.Phases[i].End-dt)
	}
	// Completed profiles end with zero acceleration; wipe integration residue
	// so a finished stop path holds exactly still.
	if p.Duration() == 0 && math.Abs(p.Vel) < 1e-12 {
		p.Vel = 0
		p.Acc = 0
	}
}

// At evaluates the path after an elapsed time t without mutating it.
func (p Path) At(t float64) (pos, vel, acc float64) {
	q := p
	q.Increment(t)
	return q.Pos, q.Vel, q.Acc
}

// Duration returns the time until the last pending phase expires.
func (p Path) Duration() float64 {
	d := 0.0
	for _, ph := range p.Phases {
		if ph.End > d {
			d = ph.End
		}
	}
	return d
}

// Final returns the state at the end of the last phase.
func (p Path) Final() (pos, vel, acc float64) {
	return p.At(p.Duration())
}

// SetPhases installs the phase list. Ends must be non-decreasing.
func (p *Path) SetPhases(phases ...Phase) {
	var ps [PhaseCount]Phase
	n := copy(ps[:], phases)
	// Unused trailing slots inherit the last end so they never activate.
	for i := n; i < PhaseCount; i++ {
		if n > 0 {
			ps[i].End = ps[n-1].End
		}
	}
	p.Phases = ps
}
