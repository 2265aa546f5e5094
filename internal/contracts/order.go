package contracts

import "time"

// OrderSide represents buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderLeg is one leg of a legged spread order request.
type OrderLeg struct {
	Symbol string    `json:"symbol"`
	Side   OrderSide `json:"side"`
	Qty    int       `json:"qty"`
}

// SpreadOrder is the legged-spread order request handed to the execution
// venue. The core only constructs it; submission, risk checks and
// acknowledgement handling are external.
type SpreadOrder struct {
	ID         string        `json:"id"` // client order id
	Near       OrderLeg      `json:"near"`
	Far        OrderLeg      `json:"far"`
	LimitPrice float64       `json:"limit_price"` // spread price, near minus far convention
	Compliance ComplianceTag `json:"compliance"`
	CurveAsOf  time.Time     `json:"curve_as_of"`
	CreatedAt  time.Time     `json:"created_at"`
}
