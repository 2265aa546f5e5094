package fixedincome_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/curve"
	"github.com/rwaltman/basisengine/internal/fixedincome"
)

func TestCouponTimes(t *testing.T) {
	tests := []struct {
		name string
		t    float64
		want []float64
	}{
		{"on-cycle two year", 2.0, []float64{0.5, 1.0, 1.5, 2.0}},
		{"mid-period", 1.75, []float64{0.25, 0.75, 1.25, 1.75}},
		{"under half year", 0.3, []float64{0.3}},
		{"matured", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fixedincome.CouponTimes(tt.t)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-12)
			}
		})
	}
}

func TestAccruedInterest(t *testing.T) {
	// Exactly on a coupon date nothing has accrued.
	assert.InDelta(t, 0, fixedincome.AccruedInterest(0.06, 5.0), 1e-9)

	// Halfway through the period: half of the 3.00 semiannual coupon.
	assert.InDelta(t, 1.5, fixedincome.AccruedInterest(0.06, 4.75), 1e-9)

	// Zero coupon never accrues.
	assert.Zero(t, fixedincome.AccruedInterest(0, 4.75))
}

func TestCleanPriceFromYield_ParBond(t *testing.T) {
	// Coupon equal to yield prices at par on a coupon date.
	for _, years := range []float64{0.5, 2, 5, 10} {
		assert.InDelta(t, 100.0, fixedincome.CleanPriceFromYield(0.04, years, 0.04), 1e-9,
			"par bond at %v years", years)
	}
}

func TestCleanPriceFromYield_ZeroCoupon(t *testing.T) {
	// 100 / (1 + y/2)^(2t)
	got := fixedincome.CleanPriceFromYield(0, 2, 0.05)
	want := 100.0 / (1.025 * 1.025 * 1.025 * 1.025)
	assert.InDelta(t, want, got, 1e-9)
}

func TestYieldFromCleanPrice_RoundTrip(t *testing.T) {
	for _, tc := range []struct{ coupon, years, yield float64 }{
		{0.045, 7.25, 0.052},
		{0.02, 1.5, 0.048},
		{0, 3, 0.041},
		{0.0625, 9.5, 0.038},
	} {
		clean := fixedincome.CleanPriceFromYield(tc.coupon, tc.years, tc.yield)
		got := fixedincome.YieldFromCleanPrice(tc.coupon, tc.years, clean)
		assert.InDelta(t, tc.yield, got, 1e-8)
	}
}

func TestDV01(t *testing.T) {
	short := fixedincome.DV01(0.04, 2, 0.045)
	long := fixedincome.DV01(0.04, 10, 0.045)

	assert.Greater(t, short, 0.0)
	assert.Greater(t, long, short, "longer maturity carries more rate risk")

	// A 2y par-ish note runs roughly 1.9 cents per bp.
	assert.InDelta(t, 0.019, short, 0.003)
}

func TestModifiedAndMacaulayDuration(t *testing.T) {
	mod := fixedincome.ModifiedDuration(0.04, 5, 0.04)
	mac := fixedincome.MacaulayDuration(0.04, 5, 0.04)

	assert.InDelta(t, mod*(1+0.02), mac, 1e-9)
	assert.InDelta(t, 4.49, mod, 0.05, "5y par note modified duration")
}

func TestConvexity(t *testing.T) {
	assert.Greater(t, fixedincome.Convexity(0.04, 10, 0.045), 0.0)
}

func flatCurve(t *testing.T, zero float64) *contracts.DiscountCurve {
	t.Helper()
	nodes := []contracts.CurveNode{}
	for _, m := range []float64{0.5, 1, 2, 5, 10, 12} {
		nodes = append(nodes, contracts.CurveNode{
			Maturity: m,
			Discount: contracts.DiscountFromZeroRate(zero, m),
			ZeroRate: zero,
		})
	}
	interp, ok := curve.NewInterpolator("log_linear")
	require.True(t, ok)
	c, err := contracts.NewDiscountCurve(time.Now(), nodes, interp)
	require.NoError(t, err)
	return c
}

func TestCurveCleanPrice_ZeroCoupon(t *testing.T) {
	c := flatCurve(t, 0.04)
	got := fixedincome.CurveCleanPrice(c, 0, 2)
	assert.InDelta(t, 100*c.Discount(2), got, 1e-9)
}

func TestCurveCleanPrice_DiscountsEveryFlow(t *testing.T) {
	c := flatCurve(t, 0.04)

	want := 0.0
	for _, ct := range fixedincome.CouponTimes(2) {
		want += 2.5 * c.Discount(ct)
	}
	want += 100 * c.Discount(2)

	got := fixedincome.CurveCleanPrice(c, 0.05, 2)
	assert.InDelta(t, want, got, 1e-9) // on-cycle, so accrued is zero
}

func TestForwardCleanPrice(t *testing.T) {
	c := flatCurve(t, 0.04)

	// Zero coupon: pure financing of the spot.
	spot := 92.0
	fwd := fixedincome.ForwardCleanPrice(c, 0, 3, spot, 0.25)
	assert.InDelta(t, spot/c.Discount(0.25), fwd, 1e-9)

	// No time to delivery: forward is spot.
	assert.Equal(t, spot, fixedincome.ForwardCleanPrice(c, 0, 3, spot, 0))

	// An interim coupon lowers the forward.
	withCoupon := fixedincome.ForwardCleanPrice(c, 0.06, 2.0, 100, 0.75)
	noCoupon := (100 + fixedincome.AccruedInterest(0.06, 2.0)) / c.Discount(0.75)
	assert.Less(t, withCoupon, noCoupon)
}
