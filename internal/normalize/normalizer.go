package normalize

import (
	"fmt"
	"sort"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Normalizer validates and canonicalizes raw security quotes into the
// internal data model. It produces the validated set plus a per-record
// rejection reason for everything it drops; it never retries — a caller
// that wants retry wraps it.
type Normalizer struct {
	policy strategyconfig.QuotePolicy
	logger *logger.Logger
}

// Output is the result of normalizing one raw batch.
type Output struct {
	Accepted []contracts.SecurityQuote
	Rejected []contracts.RejectedQuote
}

// New creates a normalizer for a quote policy.
func New(policy strategyconfig.QuotePolicy, log *logger.Logger) *Normalizer {
	return &Normalizer{policy: policy, logger: log}
}

// Normalize validates a snapshot batch at now. Newer quotes supersede
// older quotes for the same CUSIP; accepted quotes come back sorted by
// maturity ascending.
func (n *Normalizer) Normalize(now time.Time, raw []contracts.RawQuote) Output {
	out := Output{}
	byCUSIP := make(map[string]contracts.SecurityQuote, len(raw))

	for _, r := range raw {
		quote, reject := n.validate(now, r)
		if reject != nil {
			out.Rejected = append(out.Rejected, *reject)
			continue
		}

		// Supersede, never mutate: the freshest as-of wins.
		if existing, ok := byCUSIP[quote.CUSIP]; ok && !quote.AsOf.After(existing.AsOf) {
			continue
		}
		byCUSIP[quote.CUSIP] = quote
	}

	out.Accepted = make([]contracts.SecurityQuote, 0, len(byCUSIP))
	for _, q := range byCUSIP {
		out.Accepted = append(out.Accepted, q)
	}
	sort.Slice(out.Accepted, func(i, j int) bool {
		return out.Accepted[i].Maturity.Before(out.Accepted[j].Maturity)
	})

	if len(out.Rejected) > 0 {
		n.logger.WithFields(map[string]interface{}{
			"accepted": len(out.Accepted),
			"rejected": len(out.Rejected),
		}).Warn("Quote batch normalized with rejections")
	}

	return out
}

func (n *Normalizer) validate(now time.Time, r contracts.RawQuote) (contracts.SecurityQuote, *contracts.RejectedQuote) {
	reject := func(reason contracts.RejectReason, detail string) (contracts.SecurityQuote, *contracts.RejectedQuote) {
		return contracts.SecurityQuote{}, &contracts.RejectedQuote{Quote: r, Reason: reason, Detail: detail}
	}

	if r.CUSIP == "" {
		return reject(contracts.RejectMissingField, "cusip")
	}
	if r.Type == "" {
		return reject(contracts.RejectMissingField, "issue_type")
	}
	if r.Maturity == nil {
		return reject(contracts.RejectMissingField, "maturity")
	}
	if r.CleanPrice == nil {
		return reject(contracts.RejectMissingField, "clean_price")
	}
	if r.AsOf.IsZero() {
		return reject(contracts.RejectMissingField, "as_of")
	}

	coupon := 0.0
	if r.Coupon != nil {
		coupon = *r.Coupon
	} else if r.Type == contracts.IssueNote || r.Type == contracts.IssueBond {
		return reject(contracts.RejectMissingField, "coupon")
	}

	if *r.CleanPrice <= 0 {
		return reject(contracts.RejectNonPositivePrice, fmt.Sprintf("price=%.4f", *r.CleanPrice))
	}
	if coupon < 0 {
		return reject(contracts.RejectNonPositivePrice, fmt.Sprintf("coupon=%.4f", coupon))
	}
	if !r.Maturity.After(now) {
		return reject(contracts.RejectPastMaturity, r.Maturity.Format("2006-01-02"))
	}
	if now.Sub(r.AsOf) > n.policy.MaxAge.Std() {
		return reject(contracts.RejectStaleTimestamp, fmt.Sprintf("age=%s", now.Sub(r.AsOf)))
	}
	if r.Quality < n.policy.MinQuality {
		return reject(contracts.RejectBelowMinQuality, fmt.Sprintf("quality=%d", r.Quality))
	}

	return contracts.SecurityQuote{
		CUSIP:      r.CUSIP,
		Type:       r.Type,
		Maturity:   *r.Maturity,
		Coupon:     coupon,
		CleanPrice: *r.CleanPrice,
		AsOf:       r.AsOf,
		Quality:    r.Quality,
	}, nil
}
