package shield

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hri-lab/shield-engine/internal/motion"
	"github.com/hri-lab/shield-engine/internal/planner"
	"github.com/hri-lab/shield-engine/internal/traj"
)

// pendingReplacement is the bookkeeping of the two-phase long-term-trajectory
// replacement handshake. Guarded by Shield.mu: the requester writes it, the
// cycle reads and advances it at the start of the replanning-gate check.
type pendingReplacement struct {
	state           PendingState
	requestID       uuid.UUID
	goalQ           []float64
	goalDQ          []float64
	candidate       *traj.LongTermTraj
	lastReplanStart motion.Motion
}

// RequestGoal submits a new long-term goal. It computes a candidate trajectory
// from the last published motion on the caller's thread, never on the
// real-time cycle's critical path, and leaves the active trajectory
// untouched. The candidate is adopted only after a later cycle has verified it
// safe. Generator failure is reported to the requester and discards nothing
// but the candidate.
func (s *Shield) RequestGoal(goalQ, goalDQ []float64) (uuid.UUID, error) {
	if len(goalQ) != s.params.Joints || len(goalDQ) != s.params.Joints {
		return uuid.Nil, fmt.Errorf("shield: goal dimension %d/%d does not match %d joints",
			len(goalQ), len(goalDQ), s.params.Joints)
	}

	id := uuid.New()

	s.mu.Lock()
	start := s.nextMotion
	// The cycle sees the goal-pending state and leaves it alone until the
	// candidate lands.
	s.pending = pendingReplacement{
		state:     PendingGoal,
		requestID: id,
		goalQ:     append([]float64(nil), goalQ...),
		goalDQ:    append([]float64(nil), goalDQ...),
	}
	s.mu.Unlock()

	cand, err := s.deps.Generator.Generate(start, goalQ, goalDQ)

	s.mu.Lock()
	if s.pending.requestID == id {
		if err != nil {
			s.pending = pendingReplacement{state: PendingNone}
		} else {
			s.pending.state = PendingCandidate
			s.pending.candidate = cand
			s.pending.lastReplanStart = start
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("goal request failed",
			zap.String("request", id.String()), zap.Error(err))
		return id, fmt.Errorf("shield: goal request %s: %w", id, err)
	}
	s.log.Info("goal request accepted", zap.String("request", id.String()))
	return id, nil
}

// CheckReplanningBounds reports whether the motion's joint accelerations lie
// within the tolerance band around zero, relative to the long-term-trajectory
// acceleration bounds, that permits replanning. Replanning mid-manoeuvre would
// violate the bounded-jerk assumptions of the failsafe planner.
func (s *Shield) CheckReplanningBounds(m motion.Motion) bool {
	for i := 0; i < s.params.Joints; i++ {
		if math.Abs(m.DDQ[i]) > replanAccTol*s.params.AMaxLTT[i] {
			return false
		}
	}
	return true
}

// maybeOfferCandidate advances the replacement handshake: when a candidate is
// pending and the replanning gate is open, it is (re)generated if the start
// state drifted and then offered to this cycle's verification. Returns the
// candidate to verify against, or nil for a normal cycle.
func (s *Shield) maybeOfferCandidate(cur motion.Motion) *traj.LongTermTraj {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &s.pending
	switch p.state {
	case PendingCandidate, PendingOffered:
	default:
		// PendingGoal means generation is still running on the requester's
		// thread; the cycle waits for the candidate to land.
		return nil
	}
	if !s.CheckReplanningBounds(cur) {
		return nil
	}

	if p.candidate == nil || motionDrifted(cur, p.lastReplanStart) {
		cand, err := s.deps.Generator.Generate(cur, p.goalQ, p.goalDQ)
		if err != nil {
			s.log.Error("long-term replanning failed",
				zap.String("request", p.requestID.String()), zap.Error(err))
			s.pending = pendingReplacement{state: PendingNone}
			return nil
		}
		p.candidate = cand
		p.lastReplanStart = cur
	}
	p.state = PendingOffered
	return p.candidate
}

// motionDrifted reports whether the start state moved enough since the last
// replanning that the candidate trajectory must be regenerated.
func motionDrifted(cur, last motion.Motion) bool {
	if last.Joints() != cur.Joints() {
		return true
	}
	for i := range cur.Q {
		if math.Abs(cur.Q[i]-last.Q[i]) > replanDriftTol ||
			math.Abs(cur.DQ[i]-last.DQ[i]) > replanDriftTol {
			return true
		}
	}
	return false
}

// offeredCycle runs one verification cycle against the offered candidate
// trajectory. The candidate starts at the current kinematic state, so tracking
// it restarts the path parameter at zero with full path speed. Only a
// verified-safe cycle adopts the candidate; otherwise the shield falls back to
// the committed failsafe and keeps the candidate pending.
func (s *Shield) offeredCycle(now float64, cand *traj.LongTermTraj) motion.Motion {
	dt := s.params.SampleTime

	pot := motion.NewPath(0, 1, 0)
	potEnd := pot
	potEnd.Increment(dt)

	endMotion, aPart, jPart := cand.Interpolate(potEnd.Pos, potEnd.Vel, potEnd.Acc)
	aStop, jStop := traj.MaxAccJerk(endMotion.DQ, aPart, jPart, s.limits, s.params.MaxSStop)

	ok := true
	fs, err := planner.PlanSafetyShield(potEnd.Pos, potEnd.Vel, potEnd.Acc, 0, aStop, jStop)
	if err != nil {
		s.log.Warn("failsafe planning failed for offered trajectory", zap.Error(err))
		ok = false
	}

	verified := false
	switch {
	case !s.params.Enabled:
		verified = true
	case ok:
		verified = s.verifyHorizon(cand, pot, fs)
	}

	if verified {
		s.mu.Lock()
		id := s.pending.requestID
		s.pending = pendingReplacement{state: PendingNone}
		s.mu.Unlock()

		// The old trajectory is discarded; the candidate becomes the active
		// long-term trajectory and the path parameter restarts.
		s.ltt = cand
		s.potentialPath = pot
		s.nextFailsafe = fs
		next := s.commit(now, true, true)
		s.log.Info("long-term trajectory adopted",
			zap.String("request", id.String()), zap.Float64("duration", cand.Duration()))
		s.publish(next)
		return next
	}

	s.mu.Lock()
	s.pending.state = PendingCandidate
	s.mu.Unlock()

	next := s.commit(now, false, false)
	s.publish(next)
	return next
}
