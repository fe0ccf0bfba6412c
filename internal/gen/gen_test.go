package gen

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hri-lab/shield-engine/internal/motion"
)

func testGenerator() *Generator {
	return &Generator{
		SampleTime:     0.004,
		BufferDuration: 10,
		VMax:           []float64{1, 1},
		AMax:           []float64{2, 2},
		JMax:           []float64{50, 50},
	}
}

func TestGenerateReachesGoal(t *testing.T) {
	g := testGenerator()
	start := motion.Stationary(0, []float64{0.1, -0.2})
	goalQ := []float64{0.7, 0.1}
	goalDQ := []float64{0, 0}

	tr, err := g.Generate(start, goalQ, goalDQ)
	require.NoError(t, err)

	first := tr.Motion(0)
	assert.InDeltaSlice(t, start.Q, first.Q, 1e-12)

	last := tr.Motion(tr.Len() - 1)
	assert.Equal(t, goalQ, last.Q)
	assert.Equal(t, goalDQ, last.DQ)
}

func TestGenerateRespectsLimits(t *testing.T) {
	g := testGenerator()
	start := motion.Stationary(0, []float64{0, 0})

	tr, err := g.Generate(start, []float64{1.2, -0.8}, []float64{0, 0})
	require.NoError(t, err)

	for k := 0; k < tr.Len(); k++ {
		m := tr.Motion(k)
		for i := range m.Q {
			assert.LessOrEqual(t, math.Abs(m.DQ[i]), g.VMax[i]+1e-9)
			assert.LessOrEqual(t, math.Abs(m.DDQ[i]), g.AMax[i]+1e-9)
		}
	}
}

func TestGenerateFromMovingStart(t *testing.T) {
	g := testGenerator()
	start := motion.New(0, []float64{0, 0}, []float64{0.3, -0.1}, []float64{0, 0})

	tr, err := g.Generate(start, []float64{0.5, 0.5}, []float64{0, 0})
	require.NoError(t, err)

	// First sample continues the start velocity, not a standstill.
	first := tr.Motion(0)
	assert.InDeltaSlice(t, start.DQ, first.DQ, 1e-12)
}

func TestGenerateUnreachable(t *testing.T) {
	g := testGenerator()
	g.BufferDuration = 0.1
	start := motion.Stationary(0, []float64{0, 0})

	_, err := g.Generate(start, []float64{3, 0}, []float64{0, 0})

	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestGenerateDimensionMismatch(t *testing.T) {
	g := testGenerator()
	start := motion.Stationary(0, []float64{0, 0})

	_, err := g.Generate(start, []float64{1}, []float64{0, 0})

	assert.Error(t, err)
}

func TestHold(t *testing.T) {
	g := testGenerator()
	q := []float64{0.4, -0.4}

	tr, err := g.Hold(q, 100)
	require.NoError(t, err)

	assert.Equal(t, 101, tr.Len())
	for k := 0; k < tr.Len(); k++ {
		m := tr.Motion(k)
		assert.Equal(t, q, m.Q)
		assert.Equal(t, []float64{0, 0}, m.DQ)
		assert.Equal(t, []float64{0, 0}, m.DDQ)
	}
}
