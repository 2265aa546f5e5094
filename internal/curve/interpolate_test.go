package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
)

var testNodes = []contracts.CurveNode{
	{Maturity: 0.5, Discount: 0.98},
	{Maturity: 1.0, Discount: 0.96},
	{Maturity: 2.0, Discount: 0.91},
	{Maturity: 5.0, Discount: 0.80},
}

func TestNewInterpolator(t *testing.T) {
	for _, name := range []string{InterpLogLinear, InterpMonotoneCubic} {
		interp, ok := NewInterpolator(name)
		require.True(t, ok)
		assert.Equal(t, name, interp.Name())
	}

	_, ok := NewInterpolator("cubic_spline")
	assert.False(t, ok)
}

func TestLogLinear_HitsNodes(t *testing.T) {
	interp := LogLinear{}
	for _, n := range testNodes {
		assert.InDelta(t, n.Discount, interp.Discount(testNodes, n.Maturity), 1e-12)
	}
	assert.Equal(t, 1.0, interp.Discount(testNodes, 0))
}

func TestLogLinear_GeometricMidpoint(t *testing.T) {
	// Linear in log-DF: the midpoint of a segment is the geometric mean.
	got := LogLinear{}.Discount(testNodes, 1.5)
	assert.InDelta(t, math.Sqrt(0.96*0.91), got, 1e-12)
}

func TestLogLinear_FlatForwardTail(t *testing.T) {
	interp := LogLinear{}

	// Beyond the last node the final segment's forward is held flat.
	slope := (math.Log(0.80) - math.Log(0.91)) / 3.0
	want := 0.80 * math.Exp(slope*2.0)
	assert.InDelta(t, want, interp.Discount(testNodes, 7.0), 1e-12)

	// Extrapolated values keep declining.
	assert.Less(t, interp.Discount(testNodes, 8), interp.Discount(testNodes, 7))
}

func TestMonotoneCubic_HitsNodes(t *testing.T) {
	interp := MonotoneCubic{}
	for _, n := range testNodes {
		assert.InDelta(t, n.Discount, interp.Discount(testNodes, n.Maturity), 1e-9)
	}
	assert.Equal(t, 1.0, interp.Discount(testNodes, 0))
}

func TestMonotoneCubic_PreservesMonotonicity(t *testing.T) {
	interp := MonotoneCubic{}

	prev := 1.0
	for tt := 0.01; tt <= 8.0; tt += 0.01 {
		df := interp.Discount(testNodes, tt)
		assert.LessOrEqual(t, df, prev+1e-12, "discount factor rose at t=%.2f", tt)
		assert.Greater(t, df, 0.0)
		prev = df
	}
}

func TestMonotoneCubic_StaysWithinSegmentBounds(t *testing.T) {
	interp := MonotoneCubic{}

	// No overshoot: interpolated values stay inside the bracketing nodes.
	for tt := 1.05; tt < 2.0; tt += 0.05 {
		df := interp.Discount(testNodes, tt)
		assert.LessOrEqual(t, df, 0.96)
		assert.GreaterOrEqual(t, df, 0.91)
	}
}

func TestMonotoneCubic_TailMatchesLogLinear(t *testing.T) {
	assert.InDelta(t,
		LogLinear{}.Discount(testNodes, 6.5),
		MonotoneCubic{}.Discount(testNodes, 6.5),
		1e-12)
}
