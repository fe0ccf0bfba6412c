package shield

// Mode describes which path the shield is committing each cycle.
type Mode string

const (
	// ModeTracking: executing the verified continuation of the long-term
	// trajectory at full path speed.
	ModeTracking Mode = "tracking"
	// ModeRecovering: returning from a failsafe excursion onto the long-term
	// plan.
	ModeRecovering Mode = "recovering"
	// ModeBraked: executing a failsafe path because no safe continuation was
	// found.
	ModeBraked Mode = "braked"
)

// PendingState tracks the long-term-trajectory replacement handshake.
type PendingState string

const (
	// PendingNone: no replacement in flight.
	PendingNone PendingState = "none"
	// PendingGoal: a goal arrived and its candidate trajectory is still
	// being generated on the requester's thread.
	PendingGoal PendingState = "goal_pending"
	// PendingCandidate: a candidate trajectory is computed and waits for the
	// replanning gate to open.
	PendingCandidate PendingState = "candidate_ready"
	// PendingOffered: the candidate was submitted to verification this cycle
	// and becomes active only if the cycle verifies safe.
	PendingOffered PendingState = "offered"
)
