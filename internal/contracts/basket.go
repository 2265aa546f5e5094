package contracts

import "time"

// TenorTag identifies a CME Treasury futures tenor. The active set is
// configuration, not a fixed constant; these are the tags the exchange
// currently lists.
type TenorTag string

const (
	TenorZT  TenorTag = "ZT"  // 2-year note
	TenorZ3N TenorTag = "Z3N" // 3-year note
	TenorZF  TenorTag = "ZF"  // 5-year note
	TenorZN  TenorTag = "ZN"  // 10-year note
	TenorTN  TenorTag = "TN"  // ultra 10-year note
)

// BasketMember is one security eligible for delivery with its exchange
// conversion factor.
type BasketMember struct {
	CUSIP            string  `json:"cusip"`
	ConversionFactor float64 `json:"conversion_factor"`
}

// DeliveryBasket holds the deliverable set for one futures contract and
// delivery month. Refreshed on the contract-roll schedule and read-only
// during a pricing cycle.
type DeliveryBasket struct {
	Contract      string         `json:"contract"` // e.g. "ZNZ6"
	Tenor         TenorTag       `json:"tenor"`
	DeliveryMonth time.Time      `json:"delivery_month"` // first day of the delivery month
	Members       []BasketMember `json:"members"`
}

// Member returns the conversion factor for a CUSIP, if eligible.
func (b DeliveryBasket) Member(cusip string) (BasketMember, bool) {
	for _, m := range b.Members {
		if m.CUSIP == cusip {
			return m, true
		}
	}
	return BasketMember{}, false
}

// FuturesContract is one chain entry from the futures-data source.
type FuturesContract struct {
	Symbol        string       `json:"symbol"`
	Tenor         TenorTag     `json:"tenor"`
	DeliveryMonth time.Time    `json:"delivery_month"`
	Expiry        time.Time    `json:"expiry"`
	Quote         FuturesQuote `json:"quote"`
}

// FuturesQuote is an outright bid/ask for one futures contract.
type FuturesQuote struct {
	Symbol   string    `json:"symbol"`
	Tenor    TenorTag  `json:"tenor"`
	Bid      float64   `json:"bid"`
	Ask      float64   `json:"ask"`
	TickSize float64   `json:"tick_size"`
	AsOf     time.Time `json:"as_of"`
}

// Mid returns the bid/ask midpoint.
func (q FuturesQuote) Mid() float64 { return (q.Bid + q.Ask) / 2 }

// HalfSpread returns half the quoted bid/ask width, in price points.
func (q FuturesQuote) HalfSpread() float64 { return (q.Ask - q.Bid) / 2 }

// SpreadQuote is an observed market quote for a listed calendar spread
// between two contracts.
type SpreadQuote struct {
	NearSymbol string    `json:"near_symbol"`
	FarSymbol  string    `json:"far_symbol"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	AsOf       time.Time `json:"as_of"`
}

// Mid returns the bid/ask midpoint.
func (q SpreadQuote) Mid() float64 { return (q.Bid + q.Ask) / 2 }

// HalfSpread returns half the quoted bid/ask width, in price points.
func (q SpreadQuote) HalfSpread() float64 { return (q.Ask - q.Bid) / 2 }

// StaleBy reports whether the quote is older than maxAge at now.
func (q SpreadQuote) StaleBy(now time.Time, maxAge time.Duration) bool {
	return now.Sub(q.AsOf) > maxAge
}
