package ctd

import (
	"fmt"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/fixedincome"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Selector picks the cheapest-to-deliver security for a futures contract.
// Selection is a pure function of (curve, basket, quotes) recomputed per
// cycle: a CTD switch between cycles is expected behavior, never mutation
// of a held result.
type Selector struct {
	policy strategyconfig.CTDPolicy
	logger *logger.Logger
}

// candidate holds the per-member economics computed before picking.
type candidate struct {
	quote           contracts.SecurityQuote
	member          contracts.BasketMember
	years           float64
	fairValue       float64 // curve-implied clean price
	forwardClean    float64 // observed price carried forward to delivery
	adjustedForward float64 // forwardClean / conversion factor
	impliedRepo     float64 // invoice minus fair value; minimized
	netBasis        float64 // forwardClean minus invoice
}

// New creates a selector.
func New(policy strategyconfig.CTDPolicy, log *logger.Logger) *Selector {
	return &Selector{policy: policy, logger: log}
}

// Select computes the CTD for one contract. Basket members without a
// usable quote, or outside the tenor's deliverable window, are skipped;
// zero priceable members yields ErrNoEligibleDeliverable so the contract's
// legs drop out of this cycle's ranking.
func (s *Selector) Select(
	curve *contracts.DiscountCurve,
	spec strategyconfig.TenorSpec,
	basket contracts.DeliveryBasket,
	fut contracts.FuturesContract,
	quotes map[string]contracts.SecurityQuote,
) (contracts.CTDResult, error) {
	asOf := curve.AsOf()
	tDel := yearsBetween(asOf, deliveryDate(basket.DeliveryMonth))
	if tDel <= 0 {
		return contracts.CTDResult{}, fmt.Errorf("%w: contract %s past delivery", contracts.ErrNoEligibleDeliverable, basket.Contract)
	}
	expiryYears := yearsBetween(asOf, fut.Expiry)

	var best *candidate
	var skipped int
	for _, m := range basket.Members {
		q, ok := quotes[m.CUSIP]
		if !ok {
			skipped++
			continue
		}
		if m.ConversionFactor <= 0 {
			skipped++
			continue
		}

		t := q.YearsToMaturity(asOf)
		if !eligible(spec.DeliveryWindow, expiryYears, t, q) {
			skipped++
			continue
		}

		c := s.price(curve, m, q, fut.Quote.Mid(), t, tDel)
		if best == nil || s.cheaper(c, *best) {
			cc := c
			best = &cc
		}
	}

	if best == nil {
		s.logger.WithFields(map[string]interface{}{
			"contract": basket.Contract,
			"members":  len(basket.Members),
			"skipped":  skipped,
		}).Warn("No eligible deliverable for contract")
		return contracts.CTDResult{}, fmt.Errorf("%w: contract %s", contracts.ErrNoEligibleDeliverable, basket.Contract)
	}

	// KPIs off the fitted curve yield at the chosen maturity; the futures
	// DV01 divides by the conversion factor.
	y := curve.ZeroRate(best.years)
	dv01 := fixedincome.DV01(best.quote.Coupon, best.years, y)

	return contracts.CTDResult{
		Contract:         basket.Contract,
		Tenor:            basket.Tenor,
		DeliveryMonth:    basket.DeliveryMonth,
		CUSIP:            best.member.CUSIP,
		ConversionFactor: best.member.ConversionFactor,
		AdjustedForward:  best.adjustedForward,
		ImpliedRepo:      best.impliedRepo,
		NetBasis:         best.netBasis,
		CTDDV01:          dv01,
		FuturesDV01:      dv01 / best.member.ConversionFactor,
		CurveAsOf:        asOf,
	}, nil
}

// price computes one member's delivery economics.
func (s *Selector) price(
	curve *contracts.DiscountCurve,
	m contracts.BasketMember,
	q contracts.SecurityQuote,
	futPrice float64,
	t, tDel float64,
) candidate {
	fair := fixedincome.CurveCleanPrice(curve, q.Coupon, t)
	fwd := fixedincome.ForwardCleanPrice(curve, q.Coupon, t, q.CleanPrice, tDel)
	invoice := futPrice * m.ConversionFactor

	return candidate{
		quote:           q,
		member:          m,
		years:           t,
		fairValue:       fair,
		forwardClean:    fwd,
		adjustedForward: fwd / m.ConversionFactor,
		impliedRepo:     invoice - fair,
		netBasis:        fwd - invoice,
	}
}

// cheaper reports whether a beats b under the selection rule: minimize
// implied repo cost; within the tie tolerance prefer the longer remaining
// maturity (lower convexity risk for the short).
func (s *Selector) cheaper(a, b candidate) bool {
	// One basis point of price on 100 face is 0.01 points.
	tol := s.policy.TieToleranceBps * 0.01
	diff := a.impliedRepo - b.impliedRepo
	if diff < -tol {
		return true
	}
	if diff > tol {
		return false
	}
	return a.years > b.years
}

// eligible applies the exchange delivery-window rule: remaining maturity
// inside [expiry+lower, expiry+upper] and original maturity at issue under
// the cap. Original maturity is approximated by remaining maturity for
// bills and strips and by the note/bond type bucket otherwise; the basket
// feed has already applied the exchange's own eligibility, so this is a
// consistency filter against mispopulated baskets.
func eligible(w strategyconfig.DeliveryWindow, expiryYears, t float64, q contracts.SecurityQuote) bool {
	if t < expiryYears+w.LowerOffsetYears || t > expiryYears+w.UpperOffsetYears {
		return false
	}
	return t <= w.MaxOriginalMaturityYears+expiryYears+0.25
}

// deliveryDate returns the last calendar day of the delivery month, the
// latest date the short can deliver.
func deliveryDate(month time.Time) time.Time {
	return month.AddDate(0, 1, 0).Add(-24 * time.Hour)
}

func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365.25
}
