package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/ctd"
	"github.com/rwaltman/basisengine/internal/curve"
	"github.com/rwaltman/basisengine/internal/feed/treasury"
	"github.com/rwaltman/basisengine/internal/normalize"
	"github.com/rwaltman/basisengine/internal/orders"
	"github.com/rwaltman/basisengine/internal/rank"
	"github.com/rwaltman/basisengine/internal/spread"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// QuoteSource supplies the cash Treasury quote universe.
type QuoteSource interface {
	FetchSnapshot(ctx context.Context) (*treasury.Snapshot, error)
}

// FuturesSource supplies contract chains and listed spread quotes.
type FuturesSource interface {
	FetchChain(ctx context.Context, tenor contracts.TenorTag) ([]contracts.FuturesContract, error)
	FetchSpread(ctx context.Context, nearSymbol, farSymbol string) (contracts.SpreadQuote, error)
}

// BasketSource supplies deliverable baskets with conversion factors.
type BasketSource interface {
	FetchBasket(ctx context.Context, contract string, tenor contracts.TenorTag, deliveryMonth time.Time) (*contracts.DeliveryBasket, error)
}

// CurveStore persists curve snapshots and serves the most recent one back
// when a cycle cannot build a fresh curve. Optional; nil disables both
// persistence and the stale-curve fallback.
type CurveStore interface {
	SaveSnapshot(ctx context.Context, c *contracts.DiscountCurve, configHash string, exclusions []curve.Exclusion) error
	GetLatest(ctx context.Context) (*contracts.DiscountCurve, error)
}

// OpportunityStore persists ranked opportunities. Optional.
type OpportunityStore interface {
	SaveBatch(ctx context.Context, opps []contracts.SpreadOpportunity) error
}

// OrderStore persists constructed order requests. Optional.
type OrderStore interface {
	Save(ctx context.Context, order contracts.SpreadOrder) error
}

// SnapshotCache caches the published snapshot for cross-process readers.
// Optional.
type SnapshotCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Engine runs the refresh cycle: pull market data, rebuild the discount
// curve, re-select CTDs, re-price the configured pairs and publish a fresh
// ranked snapshot. Everything derived is tagged with the curve's as-of;
// nothing from an earlier cycle survives into the next snapshot.
type Engine struct {
	cfg     *strategyconfig.Config
	cfgHash string
	logger  *logger.Logger

	quotes  QuoteSource
	futures FuturesSource
	baskets BasketSource

	normalizer   *normalize.Normalizer
	bootstrapper *curve.Bootstrapper
	selector     *ctd.Selector
	pricer       *spread.Pricer
	ranker       *rank.Ranker
	constructor  *orders.Constructor

	curveStore CurveStore
	oppStore   OpportunityStore
	orderStore OrderStore
	cache      SnapshotCache

	// Baskets and conversion factors are fixed for a contract's life.
	basketMu     sync.Mutex
	basketByCtrt map[string]*contracts.DeliveryBasket

	snapshot *Published

	runMu   sync.Mutex
	running bool
}

// Deps bundles the engine's collaborators. Stores and cache may be nil.
type Deps struct {
	Quotes  QuoteSource
	Futures FuturesSource
	Baskets BasketSource

	CurveStore CurveStore
	OppStore   OpportunityStore
	OrderStore OrderStore
	Cache      SnapshotCache
}

// New wires an engine from strategy config and feed dependencies.
func New(cfg *strategyconfig.Config, cfgHash string, deps Deps, log *logger.Logger) (*Engine, error) {
	bootstrapper, err := curve.NewBootstrapper(cfg.Curve, log)
	if err != nil {
		return nil, fmt.Errorf("create bootstrapper: %w", err)
	}

	return &Engine{
		cfg:          cfg,
		cfgHash:      cfgHash,
		logger:       log,
		quotes:       deps.Quotes,
		futures:      deps.Futures,
		baskets:      deps.Baskets,
		normalizer:   normalize.New(cfg.Quotes, log),
		bootstrapper: bootstrapper,
		selector:     ctd.New(cfg.CTD, log),
		pricer:       spread.NewFromConfig(cfg, log),
		ranker:       rank.New(cfg, log),
		constructor:  orders.New(cfg, log),
		curveStore:   deps.CurveStore,
		oppStore:     deps.OppStore,
		orderStore:   deps.OrderStore,
		cache:        deps.Cache,
		basketByCtrt: make(map[string]*contracts.DeliveryBasket),
		snapshot:     NewPublished(),
	}, nil
}

// Snapshot returns the last published cycle result, nil before the first
// successful cycle.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// marketData is everything one cycle pulls before computing.
type marketData struct {
	treasury *treasury.Snapshot
	fronts   map[contracts.TenorTag]contracts.FuturesContract
	baskets  map[contracts.TenorTag]*contracts.DeliveryBasket
	spreads  map[string]contracts.SpreadQuote // keyed near/far pair key
}

// RunCycle executes one full refresh. Concurrent calls collapse: a cycle
// already in flight makes later callers fail fast rather than queue.
func (e *Engine) RunCycle(ctx context.Context) (*Snapshot, error) {
	e.runMu.Lock()
	if e.running {
		e.runMu.Unlock()
		return nil, fmt.Errorf("refresh cycle already running")
	}
	e.running = true
	e.runMu.Unlock()
	defer func() {
		e.runMu.Lock()
		e.running = false
		e.runMu.Unlock()
	}()

	started := time.Now()

	md, err := e.fetchMarketData(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch market data: %w", err)
	}

	asOf := md.treasury.AsOf
	norm := e.normalizer.Normalize(asOf, md.treasury.Quotes)

	var (
		crv        *contracts.DiscountCurve
		exclusions []curve.Exclusion
		staleCurve bool
	)
	result, err := e.bootstrapper.Build(asOf, norm.Accepted)
	switch {
	case err == nil:
		crv = result.Curve
		exclusions = result.Exclusions
		if e.curveStore != nil {
			if err := e.curveStore.SaveSnapshot(ctx, crv, e.cfgHash, exclusions); err != nil {
				e.logger.WithError(err).Warn("Failed to persist curve snapshot")
			}
		}
	case errors.Is(err, contracts.ErrInsufficientCurveData) && e.curveStore != nil:
		// The quote batch could not cover the curve; fall back to the
		// last persisted curve rather than skip the cycle. Everything
		// downstream stays tagged with the stale curve's as-of.
		fallback, ferr := e.curveStore.GetLatest(ctx)
		if ferr != nil {
			return nil, fmt.Errorf("bootstrap curve: %w (no stored fallback: %v)", err, ferr)
		}
		crv = fallback
		staleCurve = true
		e.logger.WithError(err).WithField("fallback_as_of", crv.AsOf()).Warn("Curve build failed, reusing last persisted curve")
	default:
		return nil, fmt.Errorf("bootstrap curve: %w", err)
	}

	quoteIndex := indexQuotes(norm.Accepted)
	ctds, err := e.selectCTDs(ctx, crv, md, quoteIndex)
	if err != nil {
		return nil, err
	}

	prices := e.pricePairs(crv, md, ctds, started)
	opps := e.ranker.Rank(crv.AsOf(), started, prices)
	built := e.constructor.Build(started, opps)

	e.persist(ctx, opps, built)

	snap := &Snapshot{
		CurveAsOf:     crv.AsOf(),
		Curve:         crv,
		StaleCurve:    staleCurve,
		Exclusions:    exclusions,
		Rejected:      norm.Rejected,
		CTDs:          ctds,
		Opportunities: opps,
		Orders:        built,
		GeneratedAt:   started,
		Elapsed:       time.Since(started),
	}
	e.snapshot.Store(snap)
	e.cacheSnapshot(ctx, snap)

	e.logger.WithFields(map[string]interface{}{
		"curve_as_of":   snap.CurveAsOf,
		"stale_curve":   snap.StaleCurve,
		"nodes":         crv.NodeCount(),
		"ctds":          len(ctds),
		"opportunities": len(opps),
		"orders":        len(built),
		"elapsed":       snap.Elapsed.String(),
	}).Info("Refresh cycle published")

	return snap, nil
}

// fetchMarketData pulls quotes, chains, baskets and spread quotes
// concurrently. Missing spread quotes only drop their pair; everything
// else is fatal for the cycle.
func (e *Engine) fetchMarketData(ctx context.Context) (*marketData, error) {
	md := &marketData{
		fronts:  make(map[contracts.TenorTag]contracts.FuturesContract),
		baskets: make(map[contracts.TenorTag]*contracts.DeliveryBasket),
		spreads: make(map[string]contracts.SpreadQuote),
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		snap, err := e.quotes.FetchSnapshot(gctx)
		if err != nil {
			return err
		}
		md.treasury = snap
		return nil
	})

	for _, spec := range e.cfg.Tenors {
		spec := spec
		g.Go(func() error {
			chain, err := e.futures.FetchChain(gctx, spec.Tag)
			if err != nil {
				return err
			}
			front, ok := frontContract(chain, time.Now())
			if !ok {
				return fmt.Errorf("%s: no live contract in chain", spec.Tag)
			}

			basket, err := e.basket(gctx, front)
			if err != nil {
				return err
			}

			mu.Lock()
			md.fronts[spec.Tag] = front
			md.baskets[spec.Tag] = basket
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Spread quotes need the front symbols, so they go in a second wave.
	g, gctx = errgroup.WithContext(ctx)
	for _, pair := range e.cfg.Pairs {
		pair := pair
		near, okN := md.fronts[pair.Near]
		far, okF := md.fronts[pair.Far]
		if !okN || !okF {
			continue
		}
		g.Go(func() error {
			quote, err := e.futures.FetchSpread(gctx, near.Symbol, far.Symbol)
			if err != nil {
				e.logger.WithError(err).WithFields(map[string]interface{}{
					"near": near.Symbol,
					"far":  far.Symbol,
				}).Warn("Spread quote unavailable, pair skipped this cycle")
				return nil
			}
			mu.Lock()
			md.spreads[pairKey(pair)] = quote
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return md, nil
}

// basket returns the deliverable basket for a contract, fetching once and
// reusing for the contract's life.
func (e *Engine) basket(ctx context.Context, front contracts.FuturesContract) (*contracts.DeliveryBasket, error) {
	e.basketMu.Lock()
	cached, ok := e.basketByCtrt[front.Symbol]
	e.basketMu.Unlock()
	if ok {
		return cached, nil
	}

	basket, err := e.baskets.FetchBasket(ctx, front.Symbol, front.Tenor, front.DeliveryMonth)
	if err != nil {
		return nil, fmt.Errorf("fetch basket %s: %w", front.Symbol, err)
	}

	e.basketMu.Lock()
	e.basketByCtrt[front.Symbol] = basket
	e.basketMu.Unlock()
	return basket, nil
}

// selectCTDs runs CTD selection per tenor concurrently against the shared
// immutable curve. A tenor with no eligible deliverable drops out; all
// tenors failing is fatal.
func (e *Engine) selectCTDs(
	ctx context.Context,
	crv *contracts.DiscountCurve,
	md *marketData,
	quotes map[string]contracts.SecurityQuote,
) (map[contracts.TenorTag]contracts.CTDResult, error) {
	ctds := make(map[contracts.TenorTag]contracts.CTDResult)
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, spec := range e.cfg.Tenors {
		spec := spec
		front, ok := md.fronts[spec.Tag]
		if !ok {
			continue
		}
		basket, ok := md.baskets[spec.Tag]
		if !ok {
			continue
		}
		g.Go(func() error {
			result, err := e.selector.Select(crv, spec, *basket, front, quotes)
			if err != nil {
				if errors.Is(err, contracts.ErrNoEligibleDeliverable) {
					e.logger.WithError(err).WithField("tenor", spec.Tag).Warn("Tenor dropped from cycle")
					return nil
				}
				return err
			}
			mu.Lock()
			ctds[spec.Tag] = result
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(ctds) == 0 {
		return nil, fmt.Errorf("%w: no tenor produced a CTD", contracts.ErrNoEligibleDeliverable)
	}
	return ctds, nil
}

// pricePairs prices each configured pair whose legs both selected a CTD.
// Per-pair failures (stale quote, curve mismatch) skip that pair only.
func (e *Engine) pricePairs(
	crv *contracts.DiscountCurve,
	md *marketData,
	ctds map[contracts.TenorTag]contracts.CTDResult,
	now time.Time,
) []spread.Price {
	prices := make([]spread.Price, 0, len(e.cfg.Pairs))
	for _, pair := range e.cfg.Pairs {
		near, okN := ctds[pair.Near]
		far, okF := ctds[pair.Far]
		if !okN || !okF {
			continue
		}
		obs, ok := md.spreads[pairKey(pair)]
		if !ok {
			continue
		}

		price, err := e.pricer.Pair(crv, near, far, obs, now)
		if err != nil {
			e.logger.WithError(err).WithFields(map[string]interface{}{
				"pair": string(pair.Near) + "/" + string(pair.Far),
			}).Warn("Pair skipped this cycle")
			continue
		}
		prices = append(prices, price)
	}
	return prices
}

// persist writes the cycle's outputs; failures log and move on, the
// published in-memory snapshot is the source of truth for readers.
func (e *Engine) persist(ctx context.Context, opps []contracts.SpreadOpportunity, built []contracts.SpreadOrder) {
	if e.oppStore != nil {
		if err := e.oppStore.SaveBatch(ctx, opps); err != nil {
			e.logger.WithError(err).Warn("Failed to persist opportunities")
		}
	}
	if e.orderStore != nil {
		for _, order := range built {
			if err := e.orderStore.Save(ctx, order); err != nil {
				e.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to persist order")
			}
		}
	}
}

func (e *Engine) cacheSnapshot(ctx context.Context, snap *Snapshot) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, "snapshot:latest", snap.View(), 10*time.Minute); err != nil {
		e.logger.WithError(err).Warn("Failed to cache snapshot")
	}
}

// frontContract picks the nearest contract still trading at now.
func frontContract(chain []contracts.FuturesContract, now time.Time) (contracts.FuturesContract, bool) {
	var front contracts.FuturesContract
	found := false
	for _, c := range chain {
		if !c.Expiry.After(now) {
			continue
		}
		if !found || c.Expiry.Before(front.Expiry) {
			front = c
			found = true
		}
	}
	return front, found
}

func indexQuotes(quotes []contracts.SecurityQuote) map[string]contracts.SecurityQuote {
	idx := make(map[string]contracts.SecurityQuote, len(quotes))
	for _, q := range quotes {
		idx[q.CUSIP] = q
	}
	return idx
}

func pairKey(p strategyconfig.PairSpec) string {
	return string(p.Near) + "/" + string(p.Far)
}
