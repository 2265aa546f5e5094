package commands

import (
	"fmt"

	"github.com/rwaltman/basisengine/internal/engine"
	"github.com/rwaltman/basisengine/internal/feed/cme"
	"github.com/rwaltman/basisengine/internal/feed/futures"
	"github.com/rwaltman/basisengine/internal/feed/treasury"
	"github.com/rwaltman/basisengine/internal/store"
	"github.com/rwaltman/basisengine/internal/strategyconfig"
	"github.com/rwaltman/basisengine/pkg/config"
	"github.com/rwaltman/basisengine/pkg/database"
	"github.com/rwaltman/basisengine/pkg/logger"
	"github.com/rwaltman/basisengine/pkg/redis"
)

// loadStrategy reads and validates the strategy config and returns it with
// its content hash.
func loadStrategy(log *logger.Logger) (*strategyconfig.Config, string, error) {
	strategy, _, err := strategyconfig.Load(strategyFile)
	if err != nil {
		return nil, "", fmt.Errorf("load strategy config: %w", err)
	}
	hash, err := strategyconfig.Hash(strategy)
	if err != nil {
		return nil, "", fmt.Errorf("hash strategy config: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"file":   strategyFile,
		"hash":   hash,
		"tenors": len(strategy.Tenors),
		"pairs":  len(strategy.Pairs),
	}).Info("Strategy config loaded")

	return strategy, hash, nil
}

// newFeedDeps wires the market-data clients.
func newFeedDeps(cfg *config.Config, log *logger.Logger) engine.Deps {
	return engine.Deps{
		Quotes:  treasury.NewClient(cfg.Treasury, log),
		Futures: futures.NewClient(cfg.Futures, log),
		Baskets: cme.NewClient(cfg.CME, log),
	}
}

// withStores attaches persistence and cache to the deps. The pool may be
// nil for store-less runs.
func withStores(deps engine.Deps, db *database.DB, cache *redis.Cache) engine.Deps {
	if db != nil {
		deps.CurveStore = store.NewCurveRepository(db.Pool)
		deps.OppStore = store.NewOpportunityRepository(db.Pool)
		deps.OrderStore = store.NewOrderRepository(db.Pool)
	}
	if cache != nil {
		deps.Cache = cache
	}
	return deps
}
