package contracts

import "time"

// CTDResult identifies the cheapest-to-deliver security for one futures
// contract at one curve snapshot. Exactly one per (contract, delivery
// month, as-of); the chosen CUSIP may change between cycles (a CTD
// switch), which is expected, not an error.
type CTDResult struct {
	Contract         string    `json:"contract"`
	Tenor            TenorTag  `json:"tenor"`
	DeliveryMonth    time.Time `json:"delivery_month"`
	CUSIP            string    `json:"cusip"`
	ConversionFactor float64   `json:"conversion_factor"`

	// AdjustedForward is the conversion-factor-adjusted forward price of
	// the chosen security implied by the curve.
	AdjustedForward float64 `json:"adjusted_forward"`

	// ImpliedRepo is the financing cost implied by delivering the chosen
	// security against the observed futures price: futures*CF minus the
	// curve-implied fair bond price. The CTD minimizes it.
	ImpliedRepo float64 `json:"implied_repo"`

	// NetBasis is the cash-bond price minus the futures-implied forward,
	// adjusted for carry.
	NetBasis float64 `json:"net_basis"`

	// CTDDV01 is the dollar value of a basis point of the chosen security
	// per 100 face; FuturesDV01 divides it by the conversion factor.
	CTDDV01     float64 `json:"ctd_dv01"`
	FuturesDV01 float64 `json:"futures_dv01"`

	// CurveAsOf tags the curve snapshot this result was derived from.
	CurveAsOf time.Time `json:"curve_as_of"`
}
