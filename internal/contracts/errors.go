package contracts

import (
	"errors"
	"fmt"
)

// Cycle-level and unit-level failure sentinels. Nothing here is
// process-fatal: the worst outcome of a cycle is an empty opportunity set
// with a diagnostic reason per excluded unit.
var (
	// ErrInsufficientCurveData means the bootstrap could not meet the
	// configured minimum node count. The caller decides between falling
	// back to a stale curve and skipping the cycle.
	ErrInsufficientCurveData = errors.New("insufficient curve data")

	// ErrNoEligibleDeliverable means a delivery basket had zero priceable
	// members this cycle. The contract's spread legs are excluded from
	// ranking, not fatal to the run.
	ErrNoEligibleDeliverable = errors.New("no eligible deliverable")

	// ErrStaleQuote means an observed market quote exceeded the configured
	// staleness age; the affected pair is skipped until the next refresh.
	ErrStaleQuote = errors.New("stale quote")

	// ErrCurveMismatch means a derived artifact tagged with one curve
	// as-of timestamp was combined with a different cycle's curve.
	ErrCurveMismatch = errors.New("curve as-of mismatch")
)

// RejectReason identifies why a single raw quote failed validation.
type RejectReason string

const (
	RejectMissingField     RejectReason = "MissingField"
	RejectNonPositivePrice RejectReason = "NonPositivePrice"
	RejectPastMaturity     RejectReason = "PastMaturity"
	RejectStaleTimestamp   RejectReason = "StaleTimestamp"
	RejectBelowMinQuality  RejectReason = "BelowMinQuality"
)

// ValidationError is a single-record data validation failure, recovered by
// excluding the record from the cycle.
type ValidationError struct {
	CUSIP  string
	Reason RejectReason
	Detail string
}

func (e ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("quote %s rejected: %s", e.CUSIP, e.Reason)
	}
	return fmt.Sprintf("quote %s rejected: %s (%s)", e.CUSIP, e.Reason, e.Detail)
}
