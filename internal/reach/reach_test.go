package reach

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hri-lab/shield-engine/internal/motion"
)

func TestSegmentDistance(t *testing.T) {
	tests := []struct {
		name           string
		a1, a2, b1, b2 Vec3
		want           float64
	}{
		{
			name: "parallel segments",
			a1:   Vec3{0, 0, 0}, a2: Vec3{1, 0, 0},
			b1: Vec3{0, 2, 0}, b2: Vec3{1, 2, 0},
			want: 2,
		},
		{
			name: "crossing segments",
			a1:   Vec3{-1, 0, 0}, a2: Vec3{1, 0, 0},
			b1: Vec3{0, -1, 0}, b2: Vec3{0, 1, 0},
			want: 0,
		},
		{
			name: "point to point",
			a1:   Vec3{0, 0, 0}, a2: Vec3{0, 0, 0},
			b1: Vec3{3, 4, 0}, b2: Vec3{3, 4, 0},
			want: 5,
		},
		{
			name: "point to segment interior",
			a1:   Vec3{0.5, 1, 0}, a2: Vec3{0.5, 1, 0},
			b1: Vec3{0, 0, 0}, b2: Vec3{1, 0, 0},
			want: 1,
		},
		{
			name: "closest at endpoints",
			a1:   Vec3{0, 0, 0}, a2: Vec3{1, 0, 0},
			b1: Vec3{2, 0, 0}, b2: Vec3{3, 0, 0},
			want: 1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, SegmentDistance(tc.a1, tc.a2, tc.b1, tc.b2), 1e-12)
		})
	}
}

func TestCapsuleDistanceNegativeOnOverlap(t *testing.T) {
	a := Capsule{P1: Vec3{0, 0, 0}, P2: Vec3{1, 0, 0}, Radius: 0.5}
	b := Capsule{P1: Vec3{0.5, 0.4, 0}, P2: Vec3{0.5, 0.4, 0}, Radius: 0.3}

	assert.Less(t, Distance(a, b), 0.0)
}

func TestVerifier(t *testing.T) {
	v := Verifier{Clearance: 0.1}
	robot := []Capsule{{P1: Vec3{0, 0, 0}, P2: Vec3{1, 0, 0}, Radius: 0.1}}

	far := []Capsule{{P1: Vec3{0, 5, 0}, P2: Vec3{0, 5, 0}, Radius: 0.2}}
	assert.True(t, v.IsSafe(robot, far))

	near := []Capsule{{P1: Vec3{0.5, 0.3, 0}, P2: Vec3{0.5, 0.3, 0}, Radius: 0.05}}
	// Surface gap is 0.15 - 0.1 = 0.05, below the required clearance.
	assert.False(t, v.IsSafe(robot, near))
}

func TestHumanReachableSet(t *testing.T) {
	h := &Human{
		Points:  []Vec3{{1, 0, 0}, {1, 0, 1.5}},
		VMax:    2.0,
		Horizon: 0.2,
		Margin:  0.05,
	}

	caps, err := h.ReachableSet()
	require.NoError(t, err)

	require.Len(t, caps, 2)
	for i, c := range caps {
		assert.Equal(t, h.Points[i], c.P1)
		assert.Equal(t, c.P1, c.P2)
		assert.InDelta(t, 0.45, c.Radius, 1e-12)
	}
}

func TestHumanReachableSetRequiresMeasurement(t *testing.T) {
	h := &Human{VMax: 2, Horizon: 0.2}

	_, err := h.ReachableSet()

	assert.Error(t, err)
}

func TestArmReachableSetSinglePose(t *testing.T) {
	arm := &Arm{LinkLengths: []float64{1}, LinkRadius: 0.1}
	m := motion.Stationary(0, []float64{0})

	caps, err := arm.ReachableSet([]motion.Motion{m})
	require.NoError(t, err)

	require.Len(t, caps, 1)
	assert.Equal(t, Vec3{0, 0, 0}, caps[0].P1)
	assert.InDelta(t, 1.0, caps[0].P2[0], 1e-12)
	assert.InDelta(t, 0.0, caps[0].P2[2], 1e-12)
	assert.Equal(t, 0.1, caps[0].Radius)
}

func TestArmReachableSetGrowsWithSweep(t *testing.T) {
	arm := &Arm{LinkLengths: []float64{1}, LinkRadius: 0.1}
	horizon := []motion.Motion{
		motion.Stationary(0, []float64{0}),
		motion.Stationary(0.004, []float64{math.Pi / 2}),
	}

	caps, err := arm.ReachableSet(horizon)
	require.NoError(t, err)

	// The endpoint swings from (1,0,0) to (0,0,1): excursion sqrt(2).
	require.Len(t, caps, 1)
	assert.InDelta(t, 0.1+math.Sqrt2, caps[0].Radius, 1e-12)
}

func TestArmReachableSetErrors(t *testing.T) {
	arm := &Arm{LinkLengths: []float64{1, 1}, LinkRadius: 0.1}

	_, err := arm.ReachableSet(nil)
	assert.Error(t, err)

	_, err = arm.ReachableSet([]motion.Motion{motion.Stationary(0, []float64{0})})
	assert.Error(t, err)
}
