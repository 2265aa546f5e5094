package strategyconfig

import (
	"github.com/rwaltman/basisengine/internal/contracts"
)

// Config is the full strategy definition for one deployment. Everything
// the numeric core treats as "required configuration" lives here: the
// tenor set, the pair list, curve policy, tie-break and staleness
// thresholds, the cost model and sizing limits.
type Config struct {
	Meta       Meta         `yaml:"meta" json:"meta"`
	Tenors     []TenorSpec  `yaml:"tenors" json:"tenors"`
	Pairs      []PairSpec   `yaml:"pairs" json:"pairs"`
	Curve      CurvePolicy  `yaml:"curve" json:"curve"`
	Quotes     QuotePolicy  `yaml:"quotes" json:"quotes"`
	CTD        CTDPolicy    `yaml:"ctd" json:"ctd"`
	Ranking    RankingRules `yaml:"ranking" json:"ranking"`
	Costs      CostModel    `yaml:"costs" json:"costs"`
	Sizing     Sizing       `yaml:"sizing" json:"sizing"`
	Compliance Compliance   `yaml:"compliance" json:"compliance"`
	Orders     OrderRules   `yaml:"orders" json:"orders"`
}

// Meta identifies the strategy for audit.
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
}

// TenorSpec describes one futures tenor in the active set. The set's
// cardinality is configuration; nothing in the core assumes 4 or 5 legs.
type TenorSpec struct {
	Tag      contracts.TenorTag `yaml:"tag" json:"tag"`
	Notional float64            `yaml:"notional" json:"notional"`   // contract face value, USD
	TickSize float64            `yaml:"tick_size" json:"tick_size"` // minimum price increment, points

	// Deliverable window relative to contract expiry, plus the cap on the
	// security's original maturity at issue. Exchange eligibility rules.
	DeliveryWindow DeliveryWindow `yaml:"delivery_window" json:"delivery_window"`
}

// DeliveryWindow bounds remaining maturity (years past expiry) and
// original maturity for basket eligibility.
type DeliveryWindow struct {
	LowerOffsetYears         float64 `yaml:"lower_offset_years" json:"lower_offset_years"`
	UpperOffsetYears         float64 `yaml:"upper_offset_years" json:"upper_offset_years"`
	MaxOriginalMaturityYears float64 `yaml:"max_original_maturity_years" json:"max_original_maturity_years"`
}

// PairSpec is one diagonal calendar pair to evaluate, near leg first.
type PairSpec struct {
	Near contracts.TenorTag `yaml:"near" json:"near"`
	Far  contracts.TenorTag `yaml:"far" json:"far"`
}

// CurvePolicy governs bootstrapping.
type CurvePolicy struct {
	// Interpolation selects the variant: "log_linear" or "monotone_cubic".
	Interpolation string `yaml:"interpolation" json:"interpolation"`

	// ForwardRateFloor rejects any node whose implied forward against the
	// previous node falls below it. Typically 0.
	ForwardRateFloor float64 `yaml:"forward_rate_floor" json:"forward_rate_floor"`

	// Buckets split the maturity axis; MinNodes must be met per bucket or
	// curve construction fails with InsufficientCurveData.
	ShortBucketMaxYears float64 `yaml:"short_bucket_max_years" json:"short_bucket_max_years"`
	BellyBucketMaxYears float64 `yaml:"belly_bucket_max_years" json:"belly_bucket_max_years"`
	MinNodesShort       int     `yaml:"min_nodes_short" json:"min_nodes_short"`
	MinNodesBelly       int     `yaml:"min_nodes_belly" json:"min_nodes_belly"`
	MinNodesLong        int     `yaml:"min_nodes_long" json:"min_nodes_long"`

	// SameMaturityEpsilonYears treats two securities as sharing a maturity
	// when within this distance; the fresher/higher-quality quote wins.
	SameMaturityEpsilonYears float64 `yaml:"same_maturity_epsilon_years" json:"same_maturity_epsilon_years"`
}

// MinNodesTotal returns the curve-wide minimum node count.
func (p CurvePolicy) MinNodesTotal() int {
	return p.MinNodesShort + p.MinNodesBelly + p.MinNodesLong
}

// QuotePolicy governs raw quote acceptance.
type QuotePolicy struct {
	MaxAge     Duration              `yaml:"max_age" json:"max_age"`
	MinQuality contracts.QualityFlag `yaml:"min_quality" json:"min_quality"`
}

// CTDPolicy governs cheapest-to-deliver selection.
type CTDPolicy struct {
	// TieToleranceBps treats two candidates as tied when their implied
	// repo differs by less than this many basis points of price; the tie
	// breaks to the longer remaining maturity.
	TieToleranceBps float64 `yaml:"tie_tolerance_bps" json:"tie_tolerance_bps"`
}

// RankingRules filter and order priced pairs.
type RankingRules struct {
	// MinNetEdgePoints drops pairs whose edge net of costs is below this.
	// Must be > 0 so a zero-edge pair never ranks.
	MinNetEdgePoints float64 `yaml:"min_net_edge_points" json:"min_net_edge_points"`

	// DV01ResidualTolerance bounds |nearDV01*nearQty + farDV01*farQty|
	// in dollars per basis point for a sized opportunity.
	DV01ResidualTolerance float64 `yaml:"dv01_residual_tolerance" json:"dv01_residual_tolerance"`
}

// CostModel is the transaction-cost estimate per pair.
type CostModel struct {
	ExchangeFeePerContract float64 `yaml:"exchange_fee_per_contract" json:"exchange_fee_per_contract"` // USD
	ClearingFeePerContract float64 `yaml:"clearing_fee_per_contract" json:"clearing_fee_per_contract"` // USD

	// UseQuotedSpread charges the observed half bid/ask width; otherwise
	// FixedHalfSpreadPoints is charged.
	UseQuotedSpread       bool    `yaml:"use_quoted_spread" json:"use_quoted_spread"`
	FixedHalfSpreadPoints float64 `yaml:"fixed_half_spread_points" json:"fixed_half_spread_points"`
}

// Sizing bounds duration-neutral quantities.
type Sizing struct {
	MaxNearContracts int `yaml:"max_near_contracts" json:"max_near_contracts"`
}

// Compliance lists the tenor pairs permitted as Volcker risk-mitigating
// hedges. The ranker attaches the tag; enforcement is downstream.
type Compliance struct {
	PermittedPairs []PairSpec `yaml:"permitted_pairs" json:"permitted_pairs"`
}

// OrderRules govern order construction.
type OrderRules struct {
	// CostBufferPoints shades the limit price inside the edge.
	CostBufferPoints  float64 `yaml:"cost_buffer_points" json:"cost_buffer_points"`
	ActiveOrdersLimit int     `yaml:"active_orders_limit" json:"active_orders_limit"`
}

// Tenor returns the spec for a tag, if configured.
func (c *Config) Tenor(tag contracts.TenorTag) (TenorSpec, bool) {
	for _, t := range c.Tenors {
		if t.Tag == tag {
			return t, true
		}
	}
	return TenorSpec{}, false
}

// PairPermitted reports whether a pair is in the permitted-hedge list,
// in either leg order.
func (c *Config) PairPermitted(near, far contracts.TenorTag) bool {
	for _, p := range c.Compliance.PermittedPairs {
		if (p.Near == near && p.Far == far) || (p.Near == far && p.Far == near) {
			return true
		}
	}
	return false
}
