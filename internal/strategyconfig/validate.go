package strategyconfig

import (
	"fmt"
)

// ValidationError is a hard constraint violation; loading fails.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Tenors ===
	if len(cfg.Tenors) < 2 {
		return ValidationError{"tenors", "need at least two tenors to form a pair"}
	}
	seen := map[string]bool{}
	for i, t := range cfg.Tenors {
		field := fmt.Sprintf("tenors[%d]", i)
		if t.Tag == "" {
			return ValidationError{field + ".tag", "required"}
		}
		if seen[string(t.Tag)] {
			return ValidationError{field + ".tag", fmt.Sprintf("duplicate tenor %s", t.Tag)}
		}
		seen[string(t.Tag)] = true
		if t.Notional <= 0 {
			return ValidationError{field + ".notional", "must be > 0"}
		}
		if t.TickSize <= 0 {
			return ValidationError{field + ".tick_size", "must be > 0"}
		}
		w := t.DeliveryWindow
		if w.LowerOffsetYears < 0 || w.UpperOffsetYears <= w.LowerOffsetYears {
			return ValidationError{field + ".delivery_window", "need 0 <= lower < upper"}
		}
		if w.MaxOriginalMaturityYears <= 0 {
			return ValidationError{field + ".delivery_window.max_original_maturity_years", "must be > 0"}
		}
	}

	// === Pairs ===
	if len(cfg.Pairs) == 0 {
		return ValidationError{"pairs", "at least one pair required"}
	}
	for i, p := range cfg.Pairs {
		field := fmt.Sprintf("pairs[%d]", i)
		if p.Near == p.Far {
			return ValidationError{field, "near and far must differ"}
		}
		if !seen[string(p.Near)] {
			return ValidationError{field + ".near", fmt.Sprintf("tenor %s not in tenor set", p.Near)}
		}
		if !seen[string(p.Far)] {
			return ValidationError{field + ".far", fmt.Sprintf("tenor %s not in tenor set", p.Far)}
		}
	}

	// === Curve ===
	switch cfg.Curve.Interpolation {
	case "log_linear", "monotone_cubic":
	default:
		return ValidationError{"curve.interpolation", "must be log_linear or monotone_cubic"}
	}
	if cfg.Curve.ForwardRateFloor < -0.01 {
		return ValidationError{"curve.forward_rate_floor", "unreasonably negative"}
	}
	if cfg.Curve.ShortBucketMaxYears <= 0 || cfg.Curve.BellyBucketMaxYears <= cfg.Curve.ShortBucketMaxYears {
		return ValidationError{"curve", "need 0 < short_bucket_max_years < belly_bucket_max_years"}
	}
	if cfg.Curve.MinNodesShort < 1 || cfg.Curve.MinNodesBelly < 1 || cfg.Curve.MinNodesLong < 1 {
		return ValidationError{"curve.min_nodes", "every bucket needs at least one node"}
	}
	if cfg.Curve.SameMaturityEpsilonYears < 0 {
		return ValidationError{"curve.same_maturity_epsilon_years", "must be >= 0"}
	}

	// === Quotes ===
	if cfg.Quotes.MaxAge.Std() <= 0 {
		return ValidationError{"quotes.max_age", "must be > 0"}
	}

	// === CTD ===
	if cfg.CTD.TieToleranceBps < 0 {
		return ValidationError{"ctd.tie_tolerance_bps", "must be >= 0"}
	}

	// === Ranking ===
	if cfg.Ranking.MinNetEdgePoints <= 0 {
		return ValidationError{"ranking.min_net_edge_points", "must be > 0"}
	}
	if cfg.Ranking.DV01ResidualTolerance <= 0 {
		return ValidationError{"ranking.dv01_residual_tolerance", "must be > 0"}
	}

	// === Costs ===
	if cfg.Costs.ExchangeFeePerContract < 0 || cfg.Costs.ClearingFeePerContract < 0 {
		return ValidationError{"costs", "fees must be >= 0"}
	}
	if !cfg.Costs.UseQuotedSpread && cfg.Costs.FixedHalfSpreadPoints <= 0 {
		return ValidationError{"costs.fixed_half_spread_points", "must be > 0 when quoted spread disabled"}
	}

	// === Sizing ===
	if cfg.Sizing.MaxNearContracts < 1 {
		return ValidationError{"sizing.max_near_contracts", "must be >= 1"}
	}

	// === Orders ===
	if cfg.Orders.CostBufferPoints < 0 {
		return ValidationError{"orders.cost_buffer_points", "must be >= 0"}
	}
	if cfg.Orders.ActiveOrdersLimit < 1 {
		return ValidationError{"orders.active_orders_limit", "must be >= 1"}
	}

	return nil
}
