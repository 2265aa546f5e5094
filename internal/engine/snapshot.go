package engine

import (
	"sync/atomic"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/curve"
)

// Snapshot is one cycle's complete published output. Immutable after
// publication; readers get the pointer, never a lock.
type Snapshot struct {
	CurveAsOf time.Time
	Curve     *contracts.DiscountCurve
	// StaleCurve marks a cycle that reused the last persisted curve
	// because the quote batch could not cover a fresh one.
	StaleCurve bool
	Exclusions []curve.Exclusion
	Rejected   []contracts.RejectedQuote

	CTDs          map[contracts.TenorTag]contracts.CTDResult
	Opportunities []contracts.SpreadOpportunity
	Orders        []contracts.SpreadOrder

	GeneratedAt time.Time
	Elapsed     time.Duration
}

// View is the serializable form of a snapshot, for the API and the cache.
// The curve travels as its node set plus the interpolation rule.
type View struct {
	CurveAsOf     time.Time                                  `json:"curve_as_of"`
	StaleCurve    bool                                       `json:"stale_curve"`
	Interpolation string                                     `json:"interpolation"`
	Nodes         []contracts.CurveNode                      `json:"nodes"`
	Exclusions    []curve.Exclusion                          `json:"exclusions,omitempty"`
	RejectedCount int                                        `json:"rejected_count"`
	CTDs          map[contracts.TenorTag]contracts.CTDResult `json:"ctds"`
	Opportunities []contracts.SpreadOpportunity              `json:"opportunities"`
	Orders        []contracts.SpreadOrder                    `json:"orders"`
	GeneratedAt   time.Time                                  `json:"generated_at"`
	ElapsedMillis int64                                      `json:"elapsed_ms"`
}

// View converts the snapshot for serialization.
func (s *Snapshot) View() View {
	return View{
		CurveAsOf:     s.CurveAsOf,
		StaleCurve:    s.StaleCurve,
		Interpolation: s.Curve.InterpolationRule(),
		Nodes:         s.Curve.Nodes(),
		Exclusions:    s.Exclusions,
		RejectedCount: len(s.Rejected),
		CTDs:          s.CTDs,
		Opportunities: s.Opportunities,
		Orders:        s.Orders,
		GeneratedAt:   s.GeneratedAt,
		ElapsedMillis: s.Elapsed.Milliseconds(),
	}
}

// Published holds the latest snapshot behind an atomic pointer so readers
// never block the refresh cycle.
type Published struct {
	ptr atomic.Pointer[Snapshot]
}

// NewPublished creates an empty holder.
func NewPublished() *Published {
	return &Published{}
}

// Load returns the current snapshot, nil before the first publication.
func (p *Published) Load() *Snapshot {
	return p.ptr.Load()
}

// Store publishes a new snapshot.
func (p *Published) Store(s *Snapshot) {
	p.ptr.Store(s)
}
