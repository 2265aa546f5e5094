package spread

import (
	"fmt"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// ObservedPriceMode selects how the market spread quote is read.
type ObservedPriceMode string

const (
	// ObservedMid uses the bid/ask midpoint.
	ObservedMid ObservedPriceMode = "mid"
	// ObservedBBO marks the tradable side: the ask when theoretical is
	// above it, the bid when below, the midpoint inside the quote.
	ObservedBBO ObservedPriceMode = "bbo"
)

// Pricer prices one diagonal calendar pair off the shared curve and the
// two legs' CTD results, and compares to the observed market spread.
type Pricer struct {
	mode   ObservedPriceMode
	maxAge time.Duration
	logger *logger.Logger
}

// Price is the priced pair handed to the ranker.
type Price struct {
	Near contracts.TenorTag
	Far  contracts.TenorTag

	NearSymbol string
	FarSymbol  string

	Theoretical float64 // near minus far, curve+CTD implied
	Observed    float64
	EdgePoints  float64 // theoretical minus observed
	EdgeBps     float64 // duration-normalized edge

	NearFutDV01 float64 // price points per bp, per contract
	FarFutDV01  float64

	ObservedHalfSpread float64
	CurveAsOf          time.Time
}

// New creates a pricer.
func New(mode ObservedPriceMode, maxAge time.Duration, log *logger.Logger) *Pricer {
	if mode == "" {
		mode = ObservedMid
	}
	return &Pricer{mode: mode, maxAge: maxAge, logger: log}
}

// NewFromConfig builds the pricer from strategy configuration.
func NewFromConfig(cfg *strategyconfig.Config, log *logger.Logger) *Pricer {
	return New(ObservedMid, cfg.Quotes.MaxAge.Std(), log)
}

// Pair prices one tenor pair. The pair is skipped (error returned) when
// either leg has no eligible deliverable this cycle, when the legs were
// derived from different curve snapshots, or when the observed market
// quote is stale; the next refresh cycle re-attempts.
func (p *Pricer) Pair(
	curve *contracts.DiscountCurve,
	near, far contracts.CTDResult,
	obs contracts.SpreadQuote,
	now time.Time,
) (Price, error) {
	if !near.CurveAsOf.Equal(curve.AsOf()) || !far.CurveAsOf.Equal(curve.AsOf()) {
		return Price{}, fmt.Errorf("%w: near=%s far=%s curve=%s",
			contracts.ErrCurveMismatch,
			near.CurveAsOf.Format(time.RFC3339),
			far.CurveAsOf.Format(time.RFC3339),
			curve.AsOf().Format(time.RFC3339))
	}
	if obs.StaleBy(now, p.maxAge) {
		return Price{}, fmt.Errorf("%w: spread %s/%s aged %s",
			contracts.ErrStaleQuote, obs.NearSymbol, obs.FarSymbol, now.Sub(obs.AsOf))
	}

	theo := near.AdjustedForward - far.AdjustedForward
	observed := p.observe(theo, obs)
	edge := theo - observed

	// Raw price edge is not comparable across tenors of different
	// duration; normalize by the pair's average futures DV01.
	pairDV01 := (near.FuturesDV01 + far.FuturesDV01) / 2
	edgeBps := 0.0
	if pairDV01 > 0 {
		edgeBps = edge / pairDV01
	}

	price := Price{
		Near:               near.Tenor,
		Far:                far.Tenor,
		NearSymbol:         near.Contract,
		FarSymbol:          far.Contract,
		Theoretical:        theo,
		Observed:           observed,
		EdgePoints:         edge,
		EdgeBps:            edgeBps,
		NearFutDV01:        near.FuturesDV01,
		FarFutDV01:         far.FuturesDV01,
		ObservedHalfSpread: obs.HalfSpread(),
		CurveAsOf:          curve.AsOf(),
	}

	p.logger.WithFields(map[string]interface{}{
		"pair":     string(near.Tenor) + "/" + string(far.Tenor),
		"theo":     theo,
		"observed": observed,
		"edge_bps": edgeBps,
	}).Debug("Spread pair priced")

	return price, nil
}

// observe reads the market spread per the configured mode.
func (p *Pricer) observe(theo float64, obs contracts.SpreadQuote) float64 {
	if p.mode == ObservedBBO {
		switch {
		case theo >= obs.Ask:
			return obs.Ask
		case theo <= obs.Bid:
			return obs.Bid
		}
	}
	return obs.Mid()
}
