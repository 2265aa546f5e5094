package rank

import (
	"math"
	"sort"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/spread"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// Ranker aggregates priced pairs into ranked opportunities: filters by
// minimum edge net of the transaction-cost model, sizes the legs
// duration-neutral, and orders by net edge descending. Output is fully
// deterministic for identical inputs.
type Ranker struct {
	cfg    *strategyconfig.Config
	logger *logger.Logger
}

// New creates a ranker.
func New(cfg *strategyconfig.Config, log *logger.Logger) *Ranker {
	return &Ranker{cfg: cfg, logger: log}
}

// Rank filters, sizes and orders the cycle's priced pairs. Pairs from a
// different curve snapshot than curveAsOf are excluded, never mixed in.
func (r *Ranker) Rank(curveAsOf, now time.Time, prices []spread.Price) []contracts.SpreadOpportunity {
	opps := make([]contracts.SpreadOpportunity, 0, len(prices))

	for _, p := range prices {
		if !p.CurveAsOf.Equal(curveAsOf) {
			r.logger.WithFields(map[string]interface{}{
				"pair":     string(p.Near) + "/" + string(p.Far),
				"price_as": p.CurveAsOf,
				"curve_as": curveAsOf,
			}).Warn("Dropping pair priced against a different curve snapshot")
			continue
		}

		opp, ok := r.build(p, now)
		if !ok {
			continue
		}
		opps = append(opps, opp)
	}

	// Deterministic order: net edge descending, then pair key, then near
	// symbol. No hidden ordering dependency on input order.
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].NetEdge != opps[j].NetEdge {
			return opps[i].NetEdge > opps[j].NetEdge
		}
		if opps[i].PairKey() != opps[j].PairKey() {
			return opps[i].PairKey() < opps[j].PairKey()
		}
		return opps[i].Near.Symbol < opps[j].Near.Symbol
	})
	for i := range opps {
		opps[i].Rank = i + 1
	}

	r.logger.WithFields(map[string]interface{}{
		"priced": len(prices),
		"ranked": len(opps),
	}).Info("Cycle ranking completed")

	return opps
}

// build turns one priced pair into a sized opportunity, or rejects it.
func (r *Ranker) build(p spread.Price, now time.Time) (contracts.SpreadOpportunity, bool) {
	nearSpec, okN := r.cfg.Tenor(p.Near)
	farSpec, okF := r.cfg.Tenor(p.Far)
	if !okN || !okF {
		return contracts.SpreadOpportunity{}, false
	}

	netEdge := math.Abs(p.EdgePoints) - r.cost(p, nearSpec)
	if netEdge < r.cfg.Ranking.MinNetEdgePoints {
		return contracts.SpreadOpportunity{}, false
	}

	// Dollar DV01 per contract; one price point is notional/100 dollars.
	dNear := p.NearFutDV01 * nearSpec.Notional / 100
	dFar := p.FarFutDV01 * farSpec.Notional / 100
	nearQty, farQty, residual, ok := neutralQuantities(dNear, dFar, r.cfg.Sizing.MaxNearContracts)
	if !ok || residual > r.cfg.Ranking.DV01ResidualTolerance {
		r.logger.WithFields(map[string]interface{}{
			"pair":     string(p.Near) + "/" + string(p.Far),
			"residual": residual,
		}).Warn("No duration-neutral sizing within tolerance")
		return contracts.SpreadOpportunity{}, false
	}

	// Positive edge means the spread trades cheap: buy near, sell far.
	if p.EdgePoints < 0 {
		nearQty, farQty = -nearQty, -farQty
	}

	tag := contracts.ComplianceUnclassified
	if r.cfg.PairPermitted(p.Near, p.Far) {
		tag = contracts.CompliancePermittedHedge
	}

	return contracts.SpreadOpportunity{
		Near:             contracts.SpreadLeg{Symbol: p.NearSymbol, Tenor: p.Near, Qty: nearQty},
		Far:              contracts.SpreadLeg{Symbol: p.FarSymbol, Tenor: p.Far, Qty: farQty},
		TheoreticalPrice: p.Theoretical,
		ObservedPrice:    p.Observed,
		EdgePoints:       p.EdgePoints,
		EdgeBps:          p.EdgeBps,
		NetEdge:          netEdge,
		NearDV01:         dNear,
		FarDV01:          dFar,
		NetOverlay:       dNear*float64(nearQty) + dFar*float64(farQty),
		Compliance:       tag,
		CurveAsOf:        p.CurveAsOf,
		CreatedAt:        now,
	}, true
}

// cost estimates round-trip transaction cost for one spread, in price
// points: the half bid/ask width plus exchange and clearing fees on both
// legs converted at the near leg's point value.
func (r *Ranker) cost(p spread.Price, nearSpec strategyconfig.TenorSpec) float64 {
	half := r.cfg.Costs.FixedHalfSpreadPoints
	if r.cfg.Costs.UseQuotedSpread {
		half = p.ObservedHalfSpread
	}
	feesUSD := 2 * (r.cfg.Costs.ExchangeFeePerContract + r.cfg.Costs.ClearingFeePerContract)
	pointValue := nearSpec.Notional / 100
	return half + feesUSD/pointValue
}

// neutralQuantities finds whole-contract leg quantities whose dollar DV01s
// offset: near:far ≈ inverse ratio of per-contract DV01s. Far quantity is
// the signed hedge of a long near leg. Deterministic: the smallest near
// quantity achieving the minimal residual wins.
func neutralQuantities(dNear, dFar float64, maxNear int) (nearQty, farQty int, residual float64, ok bool) {
	if dNear <= 0 || dFar <= 0 || maxNear < 1 {
		return 0, 0, 0, false
	}

	bestResidual := math.Inf(1)
	for n := 1; n <= maxNear; n++ {
		f := int(math.Round(float64(n) * dNear / dFar))
		if f < 1 {
			continue
		}
		res := math.Abs(dNear*float64(n) - dFar*float64(f))
		if res < bestResidual {
			bestResidual = res
			nearQty, farQty = n, -f
		}
	}
	if math.IsInf(bestResidual, 1) {
		return 0, 0, 0, false
	}
	return nearQty, farQty, bestResidual, true
}
