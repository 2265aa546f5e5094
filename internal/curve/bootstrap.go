package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/fixedincome"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Bootstrapper converts validated security quotes into a discount curve by
// iterative stripping. It exclusively owns construction state during a
// build and is not re-entrant; each cycle builds a fresh curve.
type Bootstrapper struct {
	policy strategyconfig.CurvePolicy
	interp contracts.Interpolator
	logger *logger.Logger
}

// Exclusion records one security dropped during bootstrapping, for
// diagnostics. Single-record exclusions never abort the build.
type Exclusion struct {
	CUSIP  string
	Reason string
}

// Result is the outcome of one build: the published curve plus the
// records excluded along the way.
type Result struct {
	Curve      *contracts.DiscountCurve
	Exclusions []Exclusion
}

// NewBootstrapper creates a bootstrapper for a curve policy.
func NewBootstrapper(policy strategyconfig.CurvePolicy, log *logger.Logger) (*Bootstrapper, error) {
	interp, ok := NewInterpolator(policy.Interpolation)
	if !ok {
		return nil, fmt.Errorf("unknown interpolation %q", policy.Interpolation)
	}
	return &Bootstrapper{policy: policy, interp: interp, logger: log}, nil
}

// Build strips the quotes in ascending maturity order into a discount
// curve tagged with asOf. Zero-coupon quotes yield their discount factor
// directly; coupon securities present-value earlier coupons off the
// already-solved short end and solve the final discount factor
// algebraically. Securities violating the forward-rate floor are excluded
// with a curve-quality warning; only failing the minimum node counts is a
// curve-level error.
func (b *Bootstrapper) Build(asOf time.Time, quotes []contracts.SecurityQuote) (*Result, error) {
	sorted := make([]contracts.SecurityQuote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Maturity.Before(sorted[j].Maturity)
	})

	result := &Result{}
	sorted = b.dedupeMaturities(asOf, sorted, result)

	nodes := make([]contracts.CurveNode, 0, len(sorted))
	for _, q := range sorted {
		t := q.YearsToMaturity(asOf)
		if t <= 0 {
			result.Exclusions = append(result.Exclusions, Exclusion{q.CUSIP, "non-positive maturity"})
			continue
		}

		df, err := b.solveDiscount(nodes, q, t)
		if err != nil {
			result.Exclusions = append(result.Exclusions, Exclusion{q.CUSIP, err.Error()})
			b.logger.WithFields(map[string]interface{}{
				"cusip":    q.CUSIP,
				"maturity": t,
				"reason":   err.Error(),
			}).Warn("Curve quality: security excluded from bootstrap")
			continue
		}

		nodes = append(nodes, contracts.CurveNode{
			Maturity: t,
			Discount: df,
			ZeroRate: contracts.ZeroRateFromDiscount(df, t),
		})
	}

	if err := b.checkCoverage(nodes); err != nil {
		return result, err
	}

	curve, err := contracts.NewDiscountCurve(asOf, nodes, b.interp)
	if err != nil {
		return result, fmt.Errorf("%w: %v", contracts.ErrInsufficientCurveData, err)
	}
	result.Curve = curve

	b.logger.WithFields(map[string]interface{}{
		"as_of":     asOf,
		"nodes":     len(nodes),
		"excluded":  len(result.Exclusions),
		"interp":    b.interp.Name(),
		"max_tenor": curve.MaxMaturity(),
	}).Info("Discount curve built")

	return result, nil
}

// solveDiscount computes the discount factor implied by one quote against
// the nodes solved so far, enforcing the forward-rate floor.
func (b *Bootstrapper) solveDiscount(nodes []contracts.CurveNode, q contracts.SecurityQuote, t float64) (float64, error) {
	var df float64
	if q.IsZeroCoupon() {
		// Price is the discount factor on the 100 face convention.
		df = q.CleanPrice / 100
	} else {
		dirty := q.CleanPrice + fixedincome.AccruedInterest(q.Coupon, t)
		c := q.Coupon * 100 / 2

		// PV all coupons prior to final maturity off the solved curve.
		pvCoupons := 0.0
		times := fixedincome.CouponTimes(t)
		for _, ct := range times[:len(times)-1] {
			pvCoupons += c * b.discountAt(nodes, ct)
		}

		final := 100 + c
		df = (dirty - pvCoupons) / final
	}

	if df <= 0 || df > 1 {
		return 0, fmt.Errorf("implied discount factor %.6f outside (0,1]", df)
	}

	prevT, prevDF := 0.0, 1.0
	if len(nodes) > 0 {
		last := nodes[len(nodes)-1]
		prevT, prevDF = last.Maturity, last.Discount
	}
	fwd := math.Pow(prevDF/df, 1/(t-prevT)) - 1
	if fwd < b.policy.ForwardRateFloor {
		return 0, fmt.Errorf("implied forward %.4f%% below floor %.4f%%", fwd*100, b.policy.ForwardRateFloor*100)
	}

	return df, nil
}

// discountAt evaluates the partial curve, using the interpolation rule
// over whatever nodes are solved so far.
func (b *Bootstrapper) discountAt(nodes []contracts.CurveNode, t float64) float64 {
	if t <= 0 {
		return 1
	}
	if len(nodes) == 0 {
		return 1
	}
	return b.interp.Discount(nodes, t)
}

// dedupeMaturities drops the staler of two securities whose maturities
// fall within the configured epsilon: the fresher as-of wins, then the
// higher quality flag. The loser is retained in diagnostics only.
func (b *Bootstrapper) dedupeMaturities(asOf time.Time, sorted []contracts.SecurityQuote, result *Result) []contracts.SecurityQuote {
	if len(sorted) < 2 {
		return sorted
	}
	eps := b.policy.SameMaturityEpsilonYears

	kept := make([]contracts.SecurityQuote, 0, len(sorted))
	for _, q := range sorted {
		if len(kept) == 0 {
			kept = append(kept, q)
			continue
		}
		last := kept[len(kept)-1]
		if q.YearsToMaturity(asOf)-last.YearsToMaturity(asOf) > eps {
			kept = append(kept, q)
			continue
		}

		winner, loser := last, q
		if q.AsOf.After(last.AsOf) || (q.AsOf.Equal(last.AsOf) && q.Quality > last.Quality) {
			winner, loser = q, last
		}
		kept[len(kept)-1] = winner
		result.Exclusions = append(result.Exclusions, Exclusion{
			CUSIP:  loser.CUSIP,
			Reason: fmt.Sprintf("duplicate maturity with %s", winner.CUSIP),
		})
	}
	return kept
}

// checkCoverage enforces the minimum node count per maturity bucket.
func (b *Bootstrapper) checkCoverage(nodes []contracts.CurveNode) error {
	var short, belly, long int
	for _, n := range nodes {
		switch {
		case n.Maturity <= b.policy.ShortBucketMaxYears:
			short++
		case n.Maturity <= b.policy.BellyBucketMaxYears:
			belly++
		default:
			long++
		}
	}
	if short < b.policy.MinNodesShort || belly < b.policy.MinNodesBelly || long < b.policy.MinNodesLong {
		return fmt.Errorf("%w: short=%d/%d belly=%d/%d long=%d/%d",
			contracts.ErrInsufficientCurveData,
			short, b.policy.MinNodesShort,
			belly, b.policy.MinNodesBelly,
			long, b.policy.MinNodesLong)
	}
	return nil
}
