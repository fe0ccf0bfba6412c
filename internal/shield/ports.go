package shield

import (
	"github.com/hri-lab/shield-engine/internal/motion"
	"github.com/hri-lab/shield-engine/internal/reach"
	"github.com/hri-lab/shield-engine/internal/traj"
)

// RobotReach computes enclosing volumes for the robot along a candidate
// motion horizon. Called once per candidate path per cycle.
type RobotReach interface {
	ReachableSet(motions []motion.Motion) ([]reach.Capsule, error)
}

// HumanReach computes enclosing volumes for the human over the verification
// horizon.
type HumanReach interface {
	ReachableSet() ([]reach.Capsule, error)
}

// Verifier is the verification oracle. It must be side-effect-free and
// deterministic given identical inputs; anything it cannot decide is unsafe.
type Verifier interface {
	IsSafe(robot, human []reach.Capsule) bool
}

// Generator synthesizes a new long-term trajectory from a start motion to a
// goal joint state. Invoked only by the replacement protocol.
type Generator interface {
	Generate(start motion.Motion, goalQ, goalDQ []float64) (*traj.LongTermTraj, error)
}

// Publisher receives the committed motion once per cycle, in strict cycle
// order.
type Publisher interface {
	Publish(m motion.Motion) error
}
