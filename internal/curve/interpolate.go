package curve

import (
	"math"

	"github.com/rwaltman/basisengine/internal/contracts"
)

// Interpolation variant names, selectable in strategy configuration.
const (
	InterpLogLinear     = "log_linear"
	InterpMonotoneCubic = "monotone_cubic"
)

// NewInterpolator returns the interpolation rule for a configured name.
func NewInterpolator(name string) (contracts.Interpolator, bool) {
	switch name {
	case InterpLogLinear:
		return LogLinear{}, true
	case InterpMonotoneCubic:
		return MonotoneCubic{}, true
	default:
		return nil, false
	}
}

// LogLinear interpolates linearly in log discount factor, which keeps the
// forward rate constant within each segment and therefore cannot break
// monotonicity between valid nodes.
type LogLinear struct{}

// Name implements contracts.Interpolator.
func (LogLinear) Name() string { return InterpLogLinear }

// Discount implements contracts.Interpolator. Before the first node the
// segment anchors at (0, 1); past the last node the final forward rate is
// held flat.
func (LogLinear) Discount(nodes []contracts.CurveNode, t float64) float64 {
	if t <= 0 {
		return 1
	}

	t0, l0 := 0.0, 0.0 // segment start: maturity, log-DF
	for _, n := range nodes {
		if t <= n.Maturity {
			l1 := math.Log(n.Discount)
			w := (t - t0) / (n.Maturity - t0)
			return math.Exp(l0 + w*(l1-l0))
		}
		t0, l0 = n.Maturity, math.Log(n.Discount)
	}

	// Flat-forward extrapolation beyond the last node.
	last := nodes[len(nodes)-1]
	var slope float64
	if len(nodes) >= 2 {
		prev := nodes[len(nodes)-2]
		slope = (math.Log(last.Discount) - math.Log(prev.Discount)) / (last.Maturity - prev.Maturity)
	} else {
		slope = math.Log(last.Discount) / last.Maturity
	}
	return math.Exp(math.Log(last.Discount) + slope*(t-last.Maturity))
}

// MonotoneCubic interpolates log discount factors with a Fritsch-Carlson
// monotone cubic Hermite, smoother than log-linear across knots while
// still preserving the decreasing-DF invariant.
type MonotoneCubic struct{}

// Name implements contracts.Interpolator.
func (MonotoneCubic) Name() string { return InterpMonotoneCubic }

// Discount implements contracts.Interpolator.
func (MonotoneCubic) Discount(nodes []contracts.CurveNode, t float64) float64 {
	if t <= 0 {
		return 1
	}

	// Knots include the origin (0, log 1 = 0).
	xs := make([]float64, 0, len(nodes)+1)
	ys := make([]float64, 0, len(nodes)+1)
	xs = append(xs, 0)
	ys = append(ys, 0)
	for _, n := range nodes {
		xs = append(xs, n.Maturity)
		ys = append(ys, math.Log(n.Discount))
	}

	if t >= xs[len(xs)-1] {
		// Same flat-forward tail as log-linear.
		return LogLinear{}.Discount(nodes, t)
	}

	m := pchipSlopes(xs, ys)
	// Locate segment.
	i := 0
	for i < len(xs)-2 && t > xs[i+1] {
		i++
	}

	h := xs[i+1] - xs[i]
	s := (t - xs[i]) / h
	h00 := (1 + 2*s) * (1 - s) * (1 - s)
	h10 := s * (1 - s) * (1 - s)
	h01 := s * s * (3 - 2*s)
	h11 := s * s * (s - 1)
	y := h00*ys[i] + h10*h*m[i] + h01*ys[i+1] + h11*h*m[i+1]
	return math.Exp(y)
}

// pchipSlopes computes Fritsch-Carlson tangents that keep the interpolant
// monotone wherever the data is monotone.
func pchipSlopes(xs, ys []float64) []float64 {
	n := len(xs)
	d := make([]float64, n-1) // secant slopes
	for i := 0; i < n-1; i++ {
		d[i] = (ys[i+1] - ys[i]) / (xs[i+1] - xs[i])
	}

	m := make([]float64, n)
	m[0] = d[0]
	m[n-1] = d[n-2]
	for i := 1; i < n-1; i++ {
		if d[i-1]*d[i] <= 0 {
			m[i] = 0
		} else {
			// Weighted harmonic mean of adjacent secants.
			w1 := 2*(xs[i+1]-xs[i]) + (xs[i] - xs[i-1])
			w2 := (xs[i+1] - xs[i]) + 2*(xs[i]-xs[i-1])
			m[i] = (w1 + w2) / (w1/d[i-1] + w2/d[i])
		}
	}

	// Clamp tangents so no segment overshoots its secant.
	for i := 0; i < n-1; i++ {
		if d[i] == 0 {
			m[i], m[i+1] = 0, 0
			continue
		}
		a := m[i] / d[i]
		b := m[i+1] / d[i]
		if norm := a*a + b*b; norm > 9 {
			tau := 3 / math.Sqrt(norm)
			m[i] = tau * a * d[i]
			m[i+1] = tau * b * d[i]
		}
	}
	return m
}
