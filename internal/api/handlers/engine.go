package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/engine"
	"github.com/rwaltman/basisengine/pkg/logger"
)

// SnapshotCache reads the shared cached view, written on every publication
// and possibly by another engine instance. Optional.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
}

// EngineHandler serves the engine's published snapshot. Every response is
// read from the last completed cycle; handlers never trigger computation
// except the explicit refresh endpoint.
type EngineHandler struct {
	engine *engine.Engine
	cache  SnapshotCache
	logger *logger.Logger
}

// NewEngineHandler creates the handler. cache may be nil.
func NewEngineHandler(eng *engine.Engine, cache SnapshotCache, log *logger.Logger) *EngineHandler {
	return &EngineHandler{engine: eng, cache: cache, logger: log}
}

// GetSnapshot returns the full published snapshot. Before this process
// publishes its first cycle, the cached view stands in when one exists.
// GET /api/snapshot
func (h *EngineHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	if snap := h.engine.Snapshot(); snap != nil {
		respondJSON(w, http.StatusOK, snap.View())
		return
	}
	if h.cache != nil {
		var view engine.View
		ok, err := h.cache.Get(r.Context(), "snapshot:latest", &view)
		if err != nil {
			h.logger.WithError(err).Warn("Cached snapshot unreadable")
		} else if ok {
			respondJSON(w, http.StatusOK, view)
			return
		}
	}
	respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
}

// GetCurve returns the current discount curve's nodes.
// GET /api/curve
func (h *EngineHandler) GetCurve(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":         snap.CurveAsOf,
		"interpolation": snap.Curve.InterpolationRule(),
		"nodes":         snap.Curve.Nodes(),
		"exclusions":    snap.Exclusions,
	})
}

// GetCTDs returns all current CTD selections.
// GET /api/ctd
func (h *EngineHandler) GetCTDs(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
		return
	}
	respondJSON(w, http.StatusOK, snap.CTDs)
}

// GetCTD returns one tenor's CTD selection.
// GET /api/ctd/{tenor}
func (h *EngineHandler) GetCTD(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
		return
	}

	tenor := contracts.TenorTag(strings.ToUpper(mux.Vars(r)["tenor"]))
	result, ok := snap.CTDs[tenor]
	if !ok {
		respondError(w, http.StatusNotFound, "No CTD for tenor "+string(tenor))
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetOpportunities returns the current ranked opportunity set.
// GET /api/opportunities
func (h *EngineHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"curve_as_of":   snap.CurveAsOf,
		"generated_at":  snap.GeneratedAt,
		"opportunities": snap.Opportunities,
	})
}

// GetOrders returns the current cycle's constructed order requests.
// GET /api/orders
func (h *EngineHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "No cycle published yet")
		return
	}
	respondJSON(w, http.StatusOK, snap.Orders)
}

// Refresh runs a cycle immediately and returns the fresh snapshot.
// POST /api/refresh
func (h *EngineHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.engine.RunCycle(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("On-demand refresh failed")
		respondError(w, http.StatusInternalServerError, "Refresh failed: "+err.Error())
		return
	}
	respondJSON(w, http.StatusOK, snap.View())
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
