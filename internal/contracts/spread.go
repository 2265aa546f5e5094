package contracts

import (
	"math"
	"time"
)

// SpreadLeg is one side of a diagonal calendar spread: a futures contract
// with a signed quantity (positive long, negative short).
type SpreadLeg struct {
	Symbol string   `json:"symbol"`
	Tenor  TenorTag `json:"tenor"`
	Qty    int      `json:"qty"`
}

// SpreadOpportunity is a ranked mispricing between two futures tenors.
// Created fresh each cycle by the ranker and never mutated; stale
// opportunities are discarded, not updated.
type SpreadOpportunity struct {
	Near SpreadLeg `json:"near"`
	Far  SpreadLeg `json:"far"`

	TheoreticalPrice float64 `json:"theoretical_price"` // curve+CTD implied spread price
	ObservedPrice    float64 `json:"observed_price"`    // market spread quote
	EdgePoints       float64 `json:"edge_points"`       // theoretical - observed, price points
	EdgeBps          float64 `json:"edge_bps"`          // edge normalized by pair DV01, basis points
	NetEdge          float64 `json:"net_edge"`          // edge net of transaction costs, price points

	// Duration-neutral sizing diagnostics (per-contract DV01 times signed
	// quantity, summed across legs, should be inside tolerance).
	NearDV01   float64 `json:"near_dv01"`
	FarDV01    float64 `json:"far_dv01"`
	NetOverlay float64 `json:"net_overlay"`

	// Compliance is a label for downstream tooling marking whether the
	// pair is a permitted risk-mitigating-hedge combination. Not an
	// enforcement gate.
	Compliance ComplianceTag `json:"compliance"`

	Rank      int       `json:"rank"`
	CurveAsOf time.Time `json:"curve_as_of"`
	CreatedAt time.Time `json:"created_at"`
}

// ComplianceTag labels an opportunity for downstream compliance tooling.
type ComplianceTag string

const (
	CompliancePermittedHedge ComplianceTag = "RISK_MITIGATING_HEDGE"
	ComplianceUnclassified   ComplianceTag = "UNCLASSIFIED"
)

// DV01Residual returns |nearDV01*nearQty + farDV01*farQty|, the absolute
// net interest-rate sensitivity of the sized pair.
func (o SpreadOpportunity) DV01Residual() float64 {
	return math.Abs(o.NearDV01*float64(o.Near.Qty) + o.FarDV01*float64(o.Far.Qty))
}

// PairKey returns a stable identifier for the tenor pair.
func (o SpreadOpportunity) PairKey() string {
	return string(o.Near.Tenor) + "/" + string(o.Far.Tenor)
}
