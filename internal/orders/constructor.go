package orders

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Constructor turns ranked opportunities into legged-spread order requests.
// It only builds the requests; routing and execution live outside the engine.
type Constructor struct {
	cfg    *strategyconfig.Config
	logger *logger.Logger
}

// New creates an order constructor.
func New(cfg *strategyconfig.Config, log *logger.Logger) *Constructor {
	return &Constructor{cfg: cfg, logger: log}
}

// Build converts the top ranked opportunities into orders, at most
// ActiveOrdersLimit per cycle. Opportunities whose net edge does not clear
// the cost buffer are skipped.
func (c *Constructor) Build(now time.Time, opps []contracts.SpreadOpportunity) []contracts.SpreadOrder {
	limit := c.cfg.Orders.ActiveOrdersLimit
	out := make([]contracts.SpreadOrder, 0, limit)

	for _, opp := range opps {
		if len(out) >= limit {
			break
		}
		order, ok := c.FromOpportunity(now, opp)
		if !ok {
			continue
		}
		out = append(out, order)
	}

	c.logger.WithFields(map[string]interface{}{
		"candidates": len(opps),
		"orders":     len(out),
	}).Info("Order construction completed")

	return out
}

// FromOpportunity builds a single order request. The limit price concedes
// everything above the cost buffer back to the market: buying caps at
// observed plus the concession, selling floors at observed minus it, each
// rounded to the near tenor's tick toward the passive side.
func (c *Constructor) FromOpportunity(now time.Time, opp contracts.SpreadOpportunity) (contracts.SpreadOrder, bool) {
	slack := opp.NetEdge - c.cfg.Orders.CostBufferPoints
	if slack <= 0 {
		c.logger.WithField("pair", opp.PairKey()).Debug("Opportunity inside cost buffer, no order")
		return contracts.SpreadOrder{}, false
	}

	spec, ok := c.cfg.Tenor(opp.Near.Tenor)
	if !ok {
		return contracts.SpreadOrder{}, false
	}

	var limit float64
	if opp.Near.Qty > 0 {
		limit = roundDownToTick(opp.ObservedPrice+slack, spec.TickSize)
	} else {
		limit = roundUpToTick(opp.ObservedPrice-slack, spec.TickSize)
	}

	return contracts.SpreadOrder{
		ID:         uuid.NewString(),
		Near:       legFromSpread(opp.Near),
		Far:        legFromSpread(opp.Far),
		LimitPrice: limit,
		Compliance: opp.Compliance,
		CurveAsOf:  opp.CurveAsOf,
		CreatedAt:  now,
	}, true
}

func legFromSpread(leg contracts.SpreadLeg) contracts.OrderLeg {
	side := contracts.OrderSideBuy
	qty := leg.Qty
	if qty < 0 {
		side = contracts.OrderSideSell
		qty = -qty
	}
	return contracts.OrderLeg{Symbol: leg.Symbol, Side: side, Qty: qty}
}

func roundDownToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Floor(price/tick) * tick
}

func roundUpToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Ceil(price/tick) * tick
}
