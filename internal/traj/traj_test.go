package traj

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hri-lab/shield-engine/internal/motion"
)

func rampTraj(t *testing.T, samples int) *LongTermTraj {
	t.Helper()
	motions := make([]motion.Motion, samples)
	for k := range motions {
		f := float64(k)
		motions[k] = motion.New(f*0.004,
			[]float64{f * 0.01, -f * 0.02},
			[]float64{0.5, -1.0},
			[]float64{0.1, 0.2})
	}
	tr, err := NewConstantLimits(0.004, motions, []float64{2, 2}, []float64{50, 50})
	require.NoError(t, err)
	return tr
}

func TestIndexNearestSample(t *testing.T) {
	tr := rampTraj(t, 100)
	tests := []struct {
		name string
		s    float64
		want int
	}{
		{name: "start", s: 0, want: 0},
		{name: "rounds down", s: 0.0019, want: 0},
		{name: "rounds up", s: 0.0021, want: 1},
		{name: "exact sample", s: 0.2, want: 50},
		{name: "midpoint between 50 and 51", s: 0.202, want: 50},
		{name: "negative clamps to start", s: -0.5, want: 0},
		{name: "past end clamps to last", s: 10.0, want: 99},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tr.Index(tc.s))
		})
	}
}

func TestInterpolateChainRule(t *testing.T) {
	tr := rampTraj(t, 100)

	m, aMax, jMax := tr.Interpolate(0.04, 0.5, 2.0)

	base := tr.Motion(10)
	assert.Equal(t, base.Q, m.Q)
	for i := range m.DQ {
		assert.InDelta(t, base.DQ[i]*0.5, m.DQ[i], 1e-12)
		assert.InDelta(t, base.DDQ[i]*0.25+base.DQ[i]*2.0, m.DDQ[i], 1e-12)
	}
	assert.Equal(t, 0.04, m.S)
	assert.Equal(t, []float64{2, 2}, aMax)
	assert.Equal(t, []float64{50, 50}, jMax)
}

func TestInterpolateFullSpeedIsVerbatim(t *testing.T) {
	tr := rampTraj(t, 100)

	m, _, _ := tr.Interpolate(0.08, 1.0, 0)

	base := tr.Motion(20)
	assert.Equal(t, base.Q, m.Q)
	assert.Equal(t, base.DQ, m.DQ)
	assert.Equal(t, base.DDQ, m.DDQ)
}

func TestInterpolateDeterministic(t *testing.T) {
	tr := rampTraj(t, 100)

	a, _, _ := tr.Interpolate(0.1234, 0.77, -0.3)
	b, _, _ := tr.Interpolate(0.1234, 0.77, -0.3)

	assert.Empty(t, cmp.Diff(a, b))
}

func TestInterpolateClampsPastEnd(t *testing.T) {
	tr := rampTraj(t, 50)

	m, _, _ := tr.Interpolate(100, 1.0, 0)

	assert.Equal(t, tr.Motion(49).Q, m.Q)
}

func TestNewValidation(t *testing.T) {
	good := []motion.Motion{motion.Stationary(0, []float64{0})}
	lims := [][]float64{{1}}

	_, err := New(0, good, lims, lims)
	assert.Error(t, err)

	_, err = New(0.004, nil, nil, nil)
	assert.Error(t, err)

	_, err = New(0.004, good, [][]float64{}, lims)
	assert.Error(t, err)

	_, err = New(0.004, good, [][]float64{{1, 2}}, lims)
	assert.Error(t, err)

	_, err = New(0.004, good, lims, lims)
	assert.NoError(t, err)
}

func TestMaxAccJerkSingleJoint(t *testing.T) {
	lim := Limits{
		VMaxAllowed: []float64{2},
		AMaxAllowed: []float64{10},
		JMaxAllowed: []float64{100},
	}

	aPath, jPath := MaxAccJerk([]float64{1}, []float64{2}, []float64{10}, lim, 0.2)

	// v = min(2, 1 + 2·0.2) = 1.4, a = (10-2)/1.4, j = (100-10-3·2·a)/1.4.
	wantA := 8.0 / 1.4
	assert.InDelta(t, wantA, aPath, 1e-12)
	assert.InDelta(t, (100-10-6*wantA)/1.4, jPath, 1e-12)
}

func TestMaxAccJerkTakesMinimumAcrossJoints(t *testing.T) {
	lim := Limits{
		VMaxAllowed: []float64{2, 2},
		AMaxAllowed: []float64{10, 4},
		JMaxAllowed: []float64{100, 100},
	}

	aPath, _ := MaxAccJerk([]float64{1, 1}, []float64{2, 2}, []float64{10, 10}, lim, 0.2)

	// The second joint has less acceleration headroom and binds the bound.
	assert.InDelta(t, (4.0-2.0)/1.4, aPath, 1e-12)
}

func TestMaxAccJerkFloorsAtZero(t *testing.T) {
	lim := Limits{
		VMaxAllowed: []float64{2},
		AMaxAllowed: []float64{1},
		JMaxAllowed: []float64{5},
	}

	// The long-term trajectory already consumes all the headroom.
	aPath, jPath := MaxAccJerk([]float64{1}, []float64{3}, []float64{50}, lim, 0.2)

	assert.Equal(t, 0.0, aPath)
	assert.Equal(t, 0.0, jPath)
}
