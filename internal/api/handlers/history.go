package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

// CurveHistory lists persisted curve snapshots.
type CurveHistory interface {
	ListAsOf(ctx context.Context, limit int) ([]time.Time, error)
}

// OpportunityHistory reads persisted ranked sets.
type OpportunityHistory interface {
	GetLatest(ctx context.Context) ([]contracts.SpreadOpportunity, error)
	GetByCurve(ctx context.Context, curveAsOf time.Time) ([]contracts.SpreadOpportunity, error)
}

// OrderHistory reads the persisted order audit trail.
type OrderHistory interface {
	GetRecent(ctx context.Context, limit int) ([]contracts.SpreadOrder, error)
}

// HistoryHandler serves persisted cycle outputs, so past decisions stay
// reviewable after the in-memory snapshot has moved on.
type HistoryHandler struct {
	curves CurveHistory
	opps   OpportunityHistory
	orders OrderHistory
	logger *logger.Logger
}

// NewHistoryHandler creates the handler.
func NewHistoryHandler(curves CurveHistory, opps OpportunityHistory, orders OrderHistory, log *logger.Logger) *HistoryHandler {
	return &HistoryHandler{curves: curves, opps: opps, orders: orders, logger: log}
}

// GetCurves lists the as-of instants of stored curve snapshots, newest
// first.
// GET /api/history/curves?limit=N
func (h *HistoryHandler) GetCurves(w http.ResponseWriter, r *http.Request) {
	asOfs, err := h.curves.ListAsOf(r.Context(), historyLimit(r))
	if err != nil {
		h.logger.WithError(err).Error("Curve history query failed")
		respondError(w, http.StatusInternalServerError, "History unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"curve_as_of": asOfs})
}

// GetOpportunities returns a persisted ranked set: the one built against
// curve_as_of when given, the most recent otherwise.
// GET /api/history/opportunities?curve_as_of=RFC3339
func (h *HistoryHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	var (
		opps []contracts.SpreadOpportunity
		err  error
	)
	if raw := r.URL.Query().Get("curve_as_of"); raw != "" {
		asOf, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			respondError(w, http.StatusBadRequest, "curve_as_of must be RFC3339")
			return
		}
		opps, err = h.opps.GetByCurve(r.Context(), asOf)
	} else {
		opps, err = h.opps.GetLatest(r.Context())
	}
	if err != nil {
		h.logger.WithError(err).Error("Opportunity history query failed")
		respondError(w, http.StatusInternalServerError, "History unavailable")
		return
	}
	if opps == nil {
		opps = []contracts.SpreadOpportunity{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"opportunities": opps})
}

// GetOrders returns the most recently persisted order requests.
// GET /api/history/orders?limit=N
func (h *HistoryHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.GetRecent(r.Context(), historyLimit(r))
	if err != nil {
		h.logger.WithError(err).Error("Order history query failed")
		respondError(w, http.StatusInternalServerError, "History unavailable")
		return
	}
	if orders == nil {
		orders = []contracts.SpreadOrder{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

func historyLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultHistoryLimit
	}
	if n > maxHistoryLimit {
		return maxHistoryLimit
	}
	return n
}
