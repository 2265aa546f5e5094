package contracts

import "time"

// IssueType classifies a marketable Treasury security.
type IssueType string

const (
	IssueBill  IssueType = "BILL"
	IssueNote  IssueType = "NOTE"
	IssueBond  IssueType = "BOND"
	IssueStrip IssueType = "STRIP" // zero-coupon principal STRIP
)

// QualityFlag grades the source quality of a quote. Higher is better.
type QualityFlag int

const (
	QualityIndicative QualityFlag = iota // dealer-indicative, lowest
	QualityDelayed                       // delayed consolidated feed
	QualityFirm                          // firm, executable
)

// RawQuote is one record as delivered by the Treasury-data source.
// Optional fields are pointers; the normalizer decides what is usable.
type RawQuote struct {
	CUSIP      string      `json:"cusip"`
	Type       IssueType   `json:"issue_type"`
	Maturity   *time.Time  `json:"maturity,omitempty"`
	Coupon     *float64    `json:"coupon,omitempty"` // annual rate, decimal (0.045 = 4.5%)
	CleanPrice *float64    `json:"clean_price,omitempty"`
	AsOf       time.Time   `json:"as_of"`
	Quality    QualityFlag `json:"quality"`
}

// SecurityQuote is a validated, canonical quote. Immutable once ingested;
// a newer quote for the same CUSIP supersedes it, never mutates it.
type SecurityQuote struct {
	CUSIP      string      `json:"cusip"`
	Type       IssueType   `json:"issue_type"`
	Maturity   time.Time   `json:"maturity"`
	Coupon     float64     `json:"coupon"` // 0 for bills and strips
	CleanPrice float64     `json:"clean_price"`
	AsOf       time.Time   `json:"as_of"`
	Quality    QualityFlag `json:"quality"`
}

// IsZeroCoupon reports whether the security carries no coupon cash flows.
func (q SecurityQuote) IsZeroCoupon() bool {
	return q.Type == IssueBill || q.Type == IssueStrip || q.Coupon == 0
}

// YearsToMaturity returns continuous time-to-maturity in years at asOf.
func (q SecurityQuote) YearsToMaturity(asOf time.Time) float64 {
	return q.Maturity.Sub(asOf).Hours() / 24 / 365.25
}

// RejectedQuote pairs a raw record with the reason it was excluded.
type RejectedQuote struct {
	Quote  RawQuote     `json:"quote"`
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}
