// Package shield implements the online safety-verification layer that sits
// between a motion planner and the motor controller. Every cycle it advances
// the path parameter along the committed safe path, builds a potential
// continuation together with a failsafe braking profile, submits the resulting
// reachable sets to the verification oracle, and commits the potential path
// only when it verifies safe; otherwise the previously verified failsafe path
// is executed instead.
package shield

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/hri-lab/shield-engine/internal/motion"
	"github.com/hri-lab/shield-engine/internal/planner"
	"github.com/hri-lab/shield-engine/internal/traj"
)

const (
	// envelopeEps is the tolerance for the 0 ≤ ds ≤ 1 envelope check.
	envelopeEps = 1e-9
	// replanAccTol is the tolerance band, relative to the per-joint LTT
	// acceleration bound, inside which replanning is allowed.
	replanAccTol = 1e-2
	// replanDriftTol is the per-joint state drift beyond which a pending
	// candidate trajectory is regenerated before being offered.
	replanDriftTol = 1e-4
)

// Params is the immutable shield configuration.
type Params struct {
	Enabled        bool      // when false, verification is bypassed entirely
	Joints         int       // joint count
	SampleTime     float64   // cycle period, seconds
	BufferDuration float64   // long-term trajectory buffer span, seconds
	MaxSStop       float64   // maximum stopping path length, seconds of path
	VMaxAllowed    []float64 // absolute joint velocity bound
	AMaxAllowed    []float64 // absolute joint acceleration bound
	JMaxAllowed    []float64 // absolute joint jerk bound
	AMaxLTT        []float64 // acceleration bound along the long-term trajectory
	JMaxLTT        []float64 // jerk bound along the long-term trajectory
}

// Validate checks dimensions and ranges.
func (p Params) Validate() error {
	if p.Joints <= 0 {
		return fmt.Errorf("shield: joint count must be positive, got %d", p.Joints)
	}
	if p.SampleTime <= 0 {
		return fmt.Errorf("shield: sample time must be positive, got %g", p.SampleTime)
	}
	if p.MaxSStop <= 0 {
		return fmt.Errorf("shield: max stopping path length must be positive, got %g", p.MaxSStop)
	}
	for name, v := range map[string][]float64{
		"v_max_allowed": p.VMaxAllowed,
		"a_max_allowed": p.AMaxAllowed,
		"j_max_allowed": p.JMaxAllowed,
		"a_max_ltt":     p.AMaxLTT,
		"j_max_ltt":     p.JMaxLTT,
	} {
		if len(v) != p.Joints {
			return fmt.Errorf("shield: %s has %d entries for %d joints", name, len(v), p.Joints)
		}
	}
	return nil
}

// Deps are the external collaborators, injected at construction.
type Deps struct {
	Robot     RobotReach
	Human     HumanReach
	Verifier  Verifier
	Generator Generator
	Publisher Publisher
	Logger    *zap.Logger
}

// Shield is the per-cycle orchestrator. All state is owned and mutated by
// Step, which must be called from a single periodic task; the only external
// mutation is RequestGoal, synchronized through an internal mutex.
type Shield struct {
	params Params
	limits traj.Limits
	deps   Deps
	log    *zap.Logger

	ltt *traj.LongTermTraj

	safePath      motion.Path // the committed, verified path being executed
	failsafePath  motion.Path // verified braking profile from the next cycle's state
	potentialPath motion.Path // candidate continuation offered to verification
	nextFailsafe  motion.Path // braking profile from the potential path's end

	mode          Mode
	isSafe        bool
	pathSDiscrete int
	nextMotion    motion.Motion

	mu      sync.Mutex
	pending pendingReplacement
}

// New constructs a shield executing the given initial long-term trajectory
// from a standstill at its first sample.
func New(p Params, initial *traj.LongTermTraj, deps Deps) (*Shield, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if initial == nil {
		return nil, fmt.Errorf("shield: initial long-term trajectory required")
	}
	if deps.Robot == nil || deps.Human == nil || deps.Verifier == nil || deps.Generator == nil || deps.Publisher == nil {
		return nil, fmt.Errorf("shield: all collaborators must be provided")
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Shield{
		params: p,
		limits: traj.Limits{
			VMaxAllowed: p.VMaxAllowed,
			AMaxAllowed: p.AMaxAllowed,
			JMaxAllowed: p.JMaxAllowed,
		},
		deps: deps,
		log:  log,
		ltt:  initial,
		// Standstill is its own verified failsafe: until the first cycle
		// verifies a continuation, the robot holds still.
		safePath:     motion.NewPath(0, 0, 0),
		failsafePath: motion.NewPath(0, 0, 0),
		mode:         ModeBraked,
		pending:      pendingReplacement{state: PendingNone},
	}
	s.nextMotion, _, _ = initial.Interpolate(0, 0, 0)
	return s, nil
}

// Mode returns the shield's current mode.
func (s *Shield) Mode() Mode { return s.mode }

// PathSDiscrete returns the number of long-term-trajectory samples committed
// so far. It is frozen while braked.
func (s *Shield) PathSDiscrete() int { return s.pathSDiscrete }

// IsSafe reports whether the last cycle's verification passed.
func (s *Shield) IsSafe() bool { return s.isSafe }

// LastMotion returns the most recently published motion.
func (s *Shield) LastMotion() motion.Motion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextMotion
}

// FailsafePath returns a copy of the currently committed failsafe path.
func (s *Shield) FailsafePath() motion.Path { return s.failsafePath }

// Step executes one shield cycle at the given cycle begin time and returns the
// published motion. It never fails the control loop: every error path degrades
// to the previously verified failsafe.
func (s *Shield) Step(now float64) motion.Motion {
	dt := s.params.SampleTime

	// 1. Advance the path parameter along the committed safe path.
	s.safePath.Increment(dt)
	if s.safePath.Vel < 0 {
		s.safePath.Vel = 0
	}

	// 2. Current motion at the new (s, ds, dds).
	cur, aPart, jPart := s.ltt.Interpolate(s.safePath.Pos, s.safePath.Vel, s.safePath.Acc)
	cur.Time = now

	// 3. Long-term trajectory replacement, when eligible.
	if cand := s.maybeOfferCandidate(cur); cand != nil {
		return s.offeredCycle(now, cand)
	}

	// 4.–5. Potential continuation, recovery, and failsafe construction.
	aPath, jPath := traj.MaxAccJerk(cur.DQ, aPart, jPart, s.limits, s.params.MaxSStop)
	ok := s.buildPaths(aPath, jPath)

	// 6. Reachable sets and verification.
	verified := false
	switch {
	case !s.params.Enabled:
		// Shield disabled: the potential path is executed unverified.
		verified = true
	case ok:
		verified = s.verifyHorizon(s.ltt, s.potentialPath, s.nextFailsafe)
	}

	// 7.–9. Commit and publish.
	next := s.commit(now, verified, false)
	s.publish(next)
	return next
}

// buildPaths plans the recovery, potential, and next-failsafe paths from the
// advanced safe-path state. It reports whether every plan succeeded and
// respects its envelope at the start; any failure makes this cycle's candidate
// unsafe without touching the committed failsafe.
func (s *Shield) buildPaths(aPath, jPath float64) bool {
	dt := s.params.SampleTime
	ok := true

	// Recovery: rejoin the long-term plan at full path speed. While tracking
	// this degenerates to the plain continuation.
	rec, err := planner.PlanSafetyShield(s.safePath.Pos, s.safePath.Vel, s.safePath.Acc, 1, aPath, jPath)
	if err != nil {
		s.log.Warn("recovery planning failed", zap.Error(err))
		rec = s.safePath
		ok = false
	}
	// Rapid bound changes between cycles can leave the start state outside
	// the instantaneous envelope; such a plan is treated as unsafe.
	recoveryOK := err == nil &&
		s.safePath.Vel >= -envelopeEps && s.safePath.Vel <= 1+envelopeEps &&
		math.Abs(s.safePath.Acc) <= aPath+envelopeEps
	ok = ok && recoveryOK
	s.potentialPath = rec

	// Failsafe from the end of the potential path's executed cycle.
	potEnd := s.potentialPath
	potEnd.Increment(dt)
	endMotion, aPart, jPart := s.ltt.Interpolate(potEnd.Pos, math.Max(0, potEnd.Vel), potEnd.Acc)
	aStop, jStop := traj.MaxAccJerk(endMotion.DQ, aPart, jPart, s.limits, s.params.MaxSStop)
	fs, err := planner.PlanSafetyShield(potEnd.Pos, potEnd.Vel, potEnd.Acc, 0, aStop, jStop)
	if err != nil {
		s.log.Warn("failsafe planning failed", zap.Error(err))
		return false
	}
	stopPos, _, _ := fs.Final()
	if stopPos-potEnd.Pos > s.params.MaxSStop {
		s.log.Warn("failsafe exceeds maximum stopping path length",
			zap.Float64("length", stopPos-potEnd.Pos), zap.Float64("max_s_stop", s.params.MaxSStop))
		return false
	}
	s.nextFailsafe = fs
	return ok
}

// verifyHorizon samples the executed cycle of the potential path, the rest of
// its recovery ramp, and the failsafe profile down to standstill, checks the
// path-velocity envelope along the way, and submits the robot and human
// reachable sets to the oracle. Any uncertainty is unsafe.
func (s *Shield) verifyHorizon(tr *traj.LongTermTraj, pot, fs motion.Path) bool {
	dt := s.params.SampleTime
	var horizon []motion.Motion

	sample := func(p motion.Path) bool {
		steps := int(math.Ceil(p.Duration()/dt)) + 1
		for k := 0; k <= steps; k++ {
			if p.Vel < -envelopeEps || p.Vel > 1+envelopeEps {
				return false
			}
			m, _, _ := tr.Interpolate(p.Pos, math.Max(0, p.Vel), p.Acc)
			horizon = append(horizon, m)
			p.Increment(dt)
		}
		return true
	}
	if !sample(pot) || !sample(fs) {
		s.log.Warn("candidate path left the 0..1 path-velocity envelope")
		return false
	}

	robot, err := s.deps.Robot.ReachableSet(horizon)
	if err != nil {
		s.log.Warn("robot reachable set unavailable", zap.Error(err))
		return false
	}
	human, err := s.deps.Human.ReachableSet()
	if err != nil {
		s.log.Warn("human reachable set unavailable", zap.Error(err))
		return false
	}
	return s.deps.Verifier.IsSafe(robot, human)
}

// commit selects the path to execute based on the verification outcome and
// derives the motion to publish. adopted marks a cycle that swapped in a new
// long-term trajectory, which resets the discrete index instead of advancing
// it.
func (s *Shield) commit(now float64, verified, adopted bool) motion.Motion {
	prevMode := s.mode
	if verified {
		s.safePath = s.potentialPath
		s.failsafePath = s.nextFailsafe
		if adopted {
			s.pathSDiscrete = 0
		} else {
			s.pathSDiscrete++
		}
		if s.safePath.Duration() <= envelopeEps && s.safePath.Vel >= 1-envelopeEps {
			s.mode = ModeTracking
		} else {
			s.mode = ModeRecovering
		}
	} else {
		if s.mode != ModeBraked {
			// Switch onto the braking profile verified last cycle.
			s.safePath = s.failsafePath
		}
		// While braked the safe path is the failsafe path; keep them aligned
		// as it is consumed.
		s.failsafePath = s.safePath
		s.mode = ModeBraked
	}
	s.isSafe = verified
	if s.mode != prevMode {
		s.log.Info("mode transition",
			zap.String("from", string(prevMode)), zap.String("to", string(s.mode)),
			zap.Bool("verified", verified))
	}

	next, _, _ := s.ltt.Interpolate(s.safePath.Pos, math.Max(0, s.safePath.Vel), s.safePath.Acc)
	next.Time = now
	s.mu.Lock()
	s.nextMotion = next
	s.mu.Unlock()
	return next
}

func (s *Shield) publish(m motion.Motion) {
	if err := s.deps.Publisher.Publish(m); err != nil {
		s.log.Warn("motion publish failed", zap.Error(err))
	}
}

// Report is a point-in-time snapshot of the shield state for logging and
// inspection.
type Report struct {
	Time          float64
	Mode          Mode
	S             float64
	Ds            float64
	Dds           float64
	PathSDiscrete int
	IsSafe        bool
	Pending       PendingState
}

// Snapshot returns the current cycle report.
func (s *Shield) Snapshot() Report {
	s.mu.Lock()
	pending := s.pending.state
	t := s.nextMotion.Time
	s.mu.Unlock()
	return Report{
		Time:          t,
		Mode:          s.mode,
		S:             s.safePath.Pos,
		Ds:            s.safePath.Vel,
		Dds:           s.safePath.Acc,
		PathSDiscrete: s.pathSDiscrete,
		IsSafe:        s.isSafe,
		Pending:       pending,
	}
}
