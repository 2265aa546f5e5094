package contracts

import (
	"fmt"
	"math"
	"time"
)

// CurveNode is one solved knot of the discount curve.
type CurveNode struct {
	Maturity float64 `json:"maturity"`  // time-to-maturity, years
	Discount float64 `json:"discount"`  // discount factor, (0,1]
	ZeroRate float64 `json:"zero_rate"` // annually compounded zero rate implied by Discount
}

// ZeroRateFromDiscount derives the annually compounded zero rate implied
// by a discount factor at maturity t.
func ZeroRateFromDiscount(df, t float64) float64 {
	if t <= 0 || df <= 0 {
		return 0
	}
	return math.Pow(1/df, 1/t) - 1
}

// DiscountFromZeroRate is the inverse of ZeroRateFromDiscount.
func DiscountFromZeroRate(z, t float64) float64 {
	return math.Pow(1+z, -t)
}

// Interpolator evaluates a discount factor between solved knots. Variants
// must preserve the node-to-node monotonicity invariant.
type Interpolator interface {
	Name() string
	// Discount evaluates the curve at t given nodes sorted by maturity.
	// nodes is read-only and never empty.
	Discount(nodes []CurveNode, t float64) float64
}

// DiscountCurve is an immutable zero-coupon discount curve for one as-of
// timestamp. A new ingestion cycle produces a new curve; readers share it
// without locking. Invariant: nodes are ordered by maturity and discount
// factors are strictly decreasing in (0,1].
type DiscountCurve struct {
	asOf   time.Time
	nodes  []CurveNode
	interp Interpolator
}

// NewDiscountCurve validates the node invariants and returns the curve.
func NewDiscountCurve(asOf time.Time, nodes []CurveNode, interp Interpolator) (*DiscountCurve, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInsufficientCurveData)
	}
	if interp == nil {
		return nil, fmt.Errorf("curve requires an interpolation rule")
	}
	prevT, prevDF := 0.0, 1.0
	for i, n := range nodes {
		if n.Maturity <= prevT {
			return nil, fmt.Errorf("node %d: maturities must be strictly increasing (%.4f after %.4f)", i, n.Maturity, prevT)
		}
		if n.Discount <= 0 || n.Discount > 1 {
			return nil, fmt.Errorf("node %d: discount factor %.6f outside (0,1]", i, n.Discount)
		}
		if n.Discount >= prevDF {
			return nil, fmt.Errorf("node %d: discount factor %.6f not strictly decreasing (prev %.6f)", i, n.Discount, prevDF)
		}
		prevT, prevDF = n.Maturity, n.Discount
	}
	owned := make([]CurveNode, len(nodes))
	copy(owned, nodes)
	return &DiscountCurve{asOf: asOf, nodes: owned, interp: interp}, nil
}

// AsOf returns the snapshot timestamp the curve was built from. Every
// artifact derived from this curve carries the same tag; consumers reject
// cross-cycle mixing.
func (c *DiscountCurve) AsOf() time.Time { return c.asOf }

// Nodes returns a copy of the solved knots.
func (c *DiscountCurve) Nodes() []CurveNode {
	out := make([]CurveNode, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// NodeCount returns the number of solved knots.
func (c *DiscountCurve) NodeCount() int { return len(c.nodes) }

// MaxMaturity returns the longest solved maturity in years.
func (c *DiscountCurve) MaxMaturity() float64 { return c.nodes[len(c.nodes)-1].Maturity }

// InterpolationRule names the interpolation variant in use.
func (c *DiscountCurve) InterpolationRule() string { return c.interp.Name() }

// Discount evaluates the discount factor at maturity t.
func (c *DiscountCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1
	}
	return c.interp.Discount(c.nodes, t)
}

// ZeroRate evaluates the annually compounded zero rate at maturity t.
func (c *DiscountCurve) ZeroRate(t float64) float64 {
	return ZeroRateFromDiscount(c.Discount(t), t)
}

// ForwardRate evaluates the annually compounded forward rate between t1
// and t2 (t1 < t2).
func (c *DiscountCurve) ForwardRate(t1, t2 float64) float64 {
	if t2 <= t1 {
		return 0
	}
	return math.Pow(c.Discount(t1)/c.Discount(t2), 1/(t2-t1)) - 1
}
