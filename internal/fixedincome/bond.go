package fixedincome

import (
	"math"

	"github.com/rwaltman/basisengine/internal/contracts"
)

// Bond cash flows are modelled on the street convention for Treasuries:
// semi-annual coupons, 100 face, term expressed as continuous years to
// maturity. Coupon dates are generated backwards from maturity in half-year
// steps, which matches how the quote feed reports time-to-maturity.

const (
	periodsPerYear = 2
	face           = 100.0
)

// CouponTimes returns the remaining coupon payment times (years from now)
// for a security maturing in t years, ascending, final coupon at t.
func CouponTimes(t float64) []float64 {
	if t <= 0 {
		return nil
	}
	n := int(math.Ceil(t*periodsPerYear - 1e-9))
	times := make([]float64, 0, n)
	for k := n - 1; k >= 0; k-- {
		times = append(times, t-float64(k)/periodsPerYear)
	}
	return times
}

// AccruedInterest returns accrued coupon interest per 100 face for a
// security with t years remaining. The fraction of the current period
// elapsed is inferred from the distance to the next coupon date.
func AccruedInterest(coupon, t float64) float64 {
	if coupon <= 0 || t <= 0 {
		return 0
	}
	next := math.Mod(t, 1.0/periodsPerYear)
	if next < 1e-9 {
		next = 1.0 / periodsPerYear
	}
	elapsed := 1 - next*periodsPerYear
	return coupon * face / periodsPerYear * elapsed
}

// CleanPriceFromYield prices a bond at a semi-annually compounded yield.
// coupon and yield are decimal annual rates; t is years to maturity.
func CleanPriceFromYield(coupon, t, yield float64) float64 {
	return dirtyPriceFromYield(coupon, t, yield) - AccruedInterest(coupon, t)
}

func dirtyPriceFromYield(coupon, t, yield float64) float64 {
	if t <= 0 {
		return face
	}
	v := 1 / (1 + yield/periodsPerYear)
	if coupon <= 0 {
		return face * math.Pow(v, t*periodsPerYear)
	}
	c := coupon * face / periodsPerYear
	dirty := 0.0
	for _, ct := range CouponTimes(t) {
		dirty += c * math.Pow(v, ct*periodsPerYear)
	}
	dirty += face * math.Pow(v, t*periodsPerYear)
	return dirty
}

// YieldFromCleanPrice solves the semi-annually compounded yield implied by
// a clean price, by bisection.
func YieldFromCleanPrice(coupon, t, clean float64) float64 {
	if t <= 0 || clean <= 0 {
		return 0
	}
	lo, hi := -0.05, 1.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2
		if CleanPriceFromYield(coupon, t, mid) > clean {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-12 {
			break
		}
	}
	return (lo + hi) / 2
}

// DV01 returns the price change in points per one basis point decline in
// yield, per 100 face. Computed by symmetric difference.
func DV01(coupon, t, yield float64) float64 {
	const bp = 0.0001
	up := CleanPriceFromYield(coupon, t, yield-bp)
	down := CleanPriceFromYield(coupon, t, yield+bp)
	return (up - down) / 2
}

// ModifiedDuration returns price sensitivity in years.
func ModifiedDuration(coupon, t, yield float64) float64 {
	p := CleanPriceFromYield(coupon, t, yield) + AccruedInterest(coupon, t)
	if p <= 0 {
		return 0
	}
	return DV01(coupon, t, yield) / p * 10000
}

// MacaulayDuration returns the cash-flow-weighted average time.
func MacaulayDuration(coupon, t, yield float64) float64 {
	return ModifiedDuration(coupon, t, yield) * (1 + yield/periodsPerYear)
}

// Convexity returns the second-order price sensitivity per 100 face.
func Convexity(coupon, t, yield float64) float64 {
	const h = 0.0001
	p0 := CleanPriceFromYield(coupon, t, yield)
	up := CleanPriceFromYield(coupon, t, yield-h)
	down := CleanPriceFromYield(coupon, t, yield+h)
	if p0 <= 0 {
		return 0
	}
	return (up + down - 2*p0) / (p0 * h * h)
}

// CurveCleanPrice values a bond directly off the discount curve: every
// cash flow discounted at the curve, accrued subtracted.
func CurveCleanPrice(curve *contracts.DiscountCurve, coupon, t float64) float64 {
	if t <= 0 {
		return face
	}
	dirty := face * curve.Discount(t)
	if coupon > 0 {
		c := coupon * face / periodsPerYear
		for _, ct := range CouponTimes(t) {
			dirty += c * curve.Discount(ct)
		}
	}
	return dirty - AccruedInterest(coupon, t)
}

// ForwardCleanPrice returns the clean forward price at delivery (tDel
// years out) implied by the curve and the observed clean spot price:
// finance the dirty spot at the curve, strip coupons paid before delivery,
// subtract accrued at delivery.
func ForwardCleanPrice(curve *contracts.DiscountCurve, coupon, t, cleanSpot, tDel float64) float64 {
	if tDel <= 0 {
		return cleanSpot
	}
	dirtySpot := cleanSpot + AccruedInterest(coupon, t)

	// PV of coupons paid between now and delivery.
	pvInterim := 0.0
	if coupon > 0 {
		c := coupon * face / periodsPerYear
		for _, ct := range CouponTimes(t) {
			if ct > tDel {
				break
			}
			pvInterim += c * curve.Discount(ct)
		}
	}

	fwdDirty := (dirtySpot - pvInterim) / curve.Discount(tDel)
	return fwdDirty - AccruedInterest(coupon, t-tDel)
}
