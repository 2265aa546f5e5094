package curve

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

var testAsOf = time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

func maturityIn(years float64) time.Time {
	return testAsOf.Add(time.Duration(years*365.25*24) * time.Hour)
}

func stripQuote(cusip string, years, price float64) contracts.SecurityQuote {
	return contracts.SecurityQuote{
		CUSIP:      cusip,
		Type:       contracts.IssueStrip,
		Maturity:   maturityIn(years),
		CleanPrice: price,
		AsOf:       testAsOf,
		Quality:    contracts.QualityFirm,
	}
}

func noteQuote(cusip string, years, coupon, price float64) contracts.SecurityQuote {
	return contracts.SecurityQuote{
		CUSIP:      cusip,
		Type:       contracts.IssueNote,
		Maturity:   maturityIn(years),
		Coupon:     coupon,
		CleanPrice: price,
		AsOf:       testAsOf,
		Quality:    contracts.QualityFirm,
	}
}

func testPolicy() strategyconfig.CurvePolicy {
	return strategyconfig.CurvePolicy{
		Interpolation:            InterpLogLinear,
		ForwardRateFloor:         0,
		ShortBucketMaxYears:      3,
		BellyBucketMaxYears:      7,
		MinNodesShort:            1,
		MinNodesBelly:            0,
		MinNodesLong:             0,
		SameMaturityEpsilonYears: 0.02,
	}
}

func TestBuild_StripsYieldDiscountFactorsDirectly(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	result, err := b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP1Y00", 1, 96),
		stripQuote("STRIP2Y00", 2, 91),
	})
	require.NoError(t, err)
	require.NotNil(t, result.Curve)
	assert.Empty(t, result.Exclusions)

	nodes := result.Curve.Nodes()
	require.Len(t, nodes, 2)

	assert.InDelta(t, 0.96, nodes[0].Discount, 1e-12)
	assert.InDelta(t, 1/0.96-1, nodes[0].ZeroRate, 1e-12) // ~4.17%

	assert.InDelta(t, 0.91, nodes[1].Discount, 1e-12)
	assert.InDelta(t, math.Sqrt(1/0.91)-1, nodes[1].ZeroRate, 1e-12) // ~4.83%

	assert.Equal(t, testAsOf, result.Curve.AsOf())
}

func TestBuild_CouponBondSolvesFinalDiscount(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	// 1.5y 4% note engineered so its final discount factor is exactly
	// 0.94: dirty = 2*(0.99 + 0.97) + 102*0.94 = 99.80, no accrued on a
	// coupon date.
	result, err := b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP6M00", 0.5, 99),
		stripQuote("STRIP1Y00", 1, 97),
		noteQuote("NOTE18M00", 1.5, 0.04, 99.80),
	})
	require.NoError(t, err)

	nodes := result.Curve.Nodes()
	require.Len(t, nodes, 3)
	assert.InDelta(t, 0.94, nodes[2].Discount, 1e-9)
}

func TestBuild_ExcludesForwardFloorViolation(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	// The 1.5y strip prices above the 1y strip: negative implied forward.
	result, err := b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP1Y00", 1, 96),
		stripQuote("RICHSTRIP", 1.5, 97),
		stripQuote("STRIP2Y00", 2, 91),
	})
	require.NoError(t, err, "single bad quote must not abort the build")

	require.Len(t, result.Exclusions, 1)
	assert.Equal(t, "RICHSTRIP", result.Exclusions[0].CUSIP)
	assert.Equal(t, 2, result.Curve.NodeCount())
}

func TestBuild_ExcludesImpossibleDiscount(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	result, err := b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP1Y00", 1, 96),
		stripQuote("OVERPAR00", 2, 104), // DF > 1
	})
	require.NoError(t, err)

	require.Len(t, result.Exclusions, 1)
	assert.Equal(t, "OVERPAR00", result.Exclusions[0].CUSIP)
}

func TestBuild_DuplicateMaturityKeepsFresher(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	stale := stripQuote("STALE1Y00", 1, 95)
	stale.AsOf = testAsOf.Add(-10 * time.Second)
	fresh := stripQuote("FRESH1Y00", 1.001, 96)

	result, err := b.Build(testAsOf, []contracts.SecurityQuote{stale, fresh})
	require.NoError(t, err)

	require.Len(t, result.Exclusions, 1)
	assert.Equal(t, "STALE1Y00", result.Exclusions[0].CUSIP)

	nodes := result.Curve.Nodes()
	require.Len(t, nodes, 1)
	assert.InDelta(t, 0.96, nodes[0].Discount, 1e-12)
}

func TestBuild_InsufficientCoverage(t *testing.T) {
	policy := testPolicy()
	policy.MinNodesLong = 1 // nothing beyond 7y supplied below

	b, err := NewBootstrapper(policy, logger.Nop())
	require.NoError(t, err)

	_, err = b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP1Y00", 1, 96),
		stripQuote("STRIP2Y00", 2, 91),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrInsufficientCurveData))
}

func TestBuild_DiscountRoundTrip(t *testing.T) {
	b, err := NewBootstrapper(testPolicy(), logger.Nop())
	require.NoError(t, err)

	result, err := b.Build(testAsOf, []contracts.SecurityQuote{
		stripQuote("STRIP1Y00", 1, 96),
		stripQuote("STRIP2Y00", 2, 91),
		stripQuote("STRIP5Y00", 5, 80),
	})
	require.NoError(t, err)
	c := result.Curve

	// DF(t) = (1+z(t))^-t at every solved node and between nodes.
	for _, tt := range []float64{0.25, 1, 1.7, 2, 3.4, 5, 6} {
		df := c.Discount(tt)
		z := c.ZeroRate(tt)
		assert.InDelta(t, df, contracts.DiscountFromZeroRate(z, tt), 1e-12, "t=%v", tt)
	}
}
