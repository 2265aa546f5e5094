package contracts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatInterp holds the discount factor of the nearest node at or beyond t.
// Good enough to exercise curve plumbing without pulling in a real rule.
type flatInterp struct{}

func (flatInterp) Name() string { return "flat_test" }

func (flatInterp) Discount(nodes []CurveNode, t float64) float64 {
	for _, n := range nodes {
		if t <= n.Maturity {
			return n.Discount
		}
	}
	return nodes[len(nodes)-1].Discount
}

func validNodes() []CurveNode {
	return []CurveNode{
		{Maturity: 0.5, Discount: 0.98, ZeroRate: ZeroRateFromDiscount(0.98, 0.5)},
		{Maturity: 1.0, Discount: 0.96, ZeroRate: ZeroRateFromDiscount(0.96, 1.0)},
		{Maturity: 2.0, Discount: 0.91, ZeroRate: ZeroRateFromDiscount(0.91, 2.0)},
	}
}

func TestNewDiscountCurve_Valid(t *testing.T) {
	asOf := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

	c, err := NewDiscountCurve(asOf, validNodes(), flatInterp{})
	require.NoError(t, err)

	assert.True(t, c.AsOf().Equal(asOf))
	assert.Equal(t, 3, c.NodeCount())
	assert.InDelta(t, 2.0, c.MaxMaturity(), 1e-12)
	assert.Equal(t, "flat_test", c.InterpolationRule())
}

func TestNewDiscountCurve_RejectsInvalidNodes(t *testing.T) {
	tests := []struct {
		name   string
		nodes  []CurveNode
		interp Interpolator
	}{
		{
			name:   "nil interpolator",
			nodes:  validNodes(),
			interp: nil,
		},
		{
			name: "maturities not strictly increasing",
			nodes: []CurveNode{
				{Maturity: 1.0, Discount: 0.96},
				{Maturity: 1.0, Discount: 0.91},
			},
			interp: flatInterp{},
		},
		{
			name: "non-positive maturity",
			nodes: []CurveNode{
				{Maturity: 0, Discount: 0.96},
			},
			interp: flatInterp{},
		},
		{
			name: "discount factor above one",
			nodes: []CurveNode{
				{Maturity: 1.0, Discount: 1.02},
			},
			interp: flatInterp{},
		},
		{
			name: "non-positive discount factor",
			nodes: []CurveNode{
				{Maturity: 1.0, Discount: 0},
			},
			interp: flatInterp{},
		},
		{
			name: "discount factors not strictly decreasing",
			nodes: []CurveNode{
				{Maturity: 1.0, Discount: 0.96},
				{Maturity: 2.0, Discount: 0.96},
			},
			interp: flatInterp{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewDiscountCurve(time.Now().UTC(), tt.nodes, tt.interp)
			require.Error(t, err)
			assert.Nil(t, c)
		})
	}
}

func TestNewDiscountCurve_EmptyNodesIsInsufficientData(t *testing.T) {
	_, err := NewDiscountCurve(time.Now().UTC(), nil, flatInterp{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientCurveData))
}

func TestDiscountCurve_NodesReturnsCopy(t *testing.T) {
	c, err := NewDiscountCurve(time.Now().UTC(), validNodes(), flatInterp{})
	require.NoError(t, err)

	got := c.Nodes()
	got[0].Discount = 0.01

	again := c.Nodes()
	assert.InDelta(t, 0.98, again[0].Discount, 1e-12)
}

func TestDiscountCurve_NodesCopiedOnConstruction(t *testing.T) {
	nodes := validNodes()
	c, err := NewDiscountCurve(time.Now().UTC(), nodes, flatInterp{})
	require.NoError(t, err)

	nodes[1].Discount = 0.5

	assert.InDelta(t, 0.96, c.Nodes()[1].Discount, 1e-12)
}

func TestDiscountCurve_DiscountAtOrBeforeZeroIsUnity(t *testing.T) {
	c, err := NewDiscountCurve(time.Now().UTC(), validNodes(), flatInterp{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, c.Discount(0), 1e-12)
	assert.InDelta(t, 1.0, c.Discount(-0.5), 1e-12)
}

func TestDiscountCurve_ZeroAndForwardRates(t *testing.T) {
	c, err := NewDiscountCurve(time.Now().UTC(), validNodes(), flatInterp{})
	require.NoError(t, err)

	// flatInterp pins Discount(1.0)=0.96 and Discount(2.0)=0.91 exactly.
	assert.InDelta(t, 1/0.96-1, c.ZeroRate(1.0), 1e-12)

	wantFwd := 0.96/0.91 - 1
	assert.InDelta(t, wantFwd, c.ForwardRate(1.0, 2.0), 1e-12)

	// Degenerate interval.
	assert.Zero(t, c.ForwardRate(2.0, 1.0))
	assert.Zero(t, c.ForwardRate(1.0, 1.0))
}

func TestZeroRateDiscountInverses(t *testing.T) {
	for _, tt := range []struct {
		df float64
		t  float64
	}{
		{0.995, 0.25},
		{0.96, 1.0},
		{0.91, 2.0},
		{0.67, 9.0},
	} {
		z := ZeroRateFromDiscount(tt.df, tt.t)
		assert.InDelta(t, tt.df, DiscountFromZeroRate(z, tt.t), 1e-12)
	}

	// Guard cases return zero rather than NaN.
	assert.Zero(t, ZeroRateFromDiscount(0.96, 0))
	assert.Zero(t, ZeroRateFromDiscount(0, 1.0))
}

func TestSecurityQuote_IsZeroCoupon(t *testing.T) {
	assert.True(t, SecurityQuote{Type: IssueBill}.IsZeroCoupon())
	assert.True(t, SecurityQuote{Type: IssueStrip}.IsZeroCoupon())
	assert.True(t, SecurityQuote{Type: IssueNote, Coupon: 0}.IsZeroCoupon())
	assert.False(t, SecurityQuote{Type: IssueNote, Coupon: 0.045}.IsZeroCoupon())
	assert.False(t, SecurityQuote{Type: IssueBond, Coupon: 0.0425}.IsZeroCoupon())
}

func TestSecurityQuote_YearsToMaturity(t *testing.T) {
	asOf := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

	q := SecurityQuote{Maturity: asOf.Add(time.Duration(2 * 365.25 * 24 * float64(time.Hour)))}
	assert.InDelta(t, 2.0, q.YearsToMaturity(asOf), 1e-9)

	past := SecurityQuote{Maturity: asOf.Add(-24 * time.Hour)}
	assert.Less(t, past.YearsToMaturity(asOf), 0.0)
}

func TestDeliveryBasket_Member(t *testing.T) {
	b := DeliveryBasket{
		Contract: "ZNZ6",
		Tenor:    TenorZN,
		Members: []BasketMember{
			{CUSIP: "91282CAA1", ConversionFactor: 0.9124},
			{CUSIP: "91282CBB2", ConversionFactor: 0.8831},
		},
	}

	m, ok := b.Member("91282CBB2")
	require.True(t, ok)
	assert.InDelta(t, 0.8831, m.ConversionFactor, 1e-12)

	_, ok = b.Member("NOSUCH")
	assert.False(t, ok)
}

func TestQuoteMidAndHalfSpread(t *testing.T) {
	fq := FuturesQuote{Bid: 110.25, Ask: 110.75}
	assert.InDelta(t, 110.5, fq.Mid(), 1e-12)
	assert.InDelta(t, 0.25, fq.HalfSpread(), 1e-12)

	sq := SpreadQuote{Bid: -6.85, Ask: -6.75}
	assert.InDelta(t, -6.8, sq.Mid(), 1e-12)
	assert.InDelta(t, 0.05, sq.HalfSpread(), 1e-12)
}

func TestSpreadQuote_StaleBy(t *testing.T) {
	now := time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

	fresh := SpreadQuote{AsOf: now.Add(-30 * time.Second)}
	assert.False(t, fresh.StaleBy(now, time.Minute))

	boundary := SpreadQuote{AsOf: now.Add(-time.Minute)}
	assert.False(t, boundary.StaleBy(now, time.Minute))

	old := SpreadQuote{AsOf: now.Add(-time.Minute - time.Second)}
	assert.True(t, old.StaleBy(now, time.Minute))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{CUSIP: "91282CAA1", Reason: RejectNonPositivePrice}
	assert.Equal(t, "quote 91282CAA1 rejected: NonPositivePrice", e.Error())

	withDetail := ValidationError{CUSIP: "91282CAA1", Reason: RejectStaleTimestamp, Detail: "age 3m"}
	assert.Equal(t, "quote 91282CAA1 rejected: StaleTimestamp (age 3m)", withDetail.Error())
}
