package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/pkg/logger"
)

var historyAsOf = time.Date(2026, 8, 26, 14, 30, 0, 0, time.UTC)

type fakeCurveHistory struct {
	asOfs     []time.Time
	gotLimit  int
	failQuery bool
}

func (f *fakeCurveHistory) ListAsOf(ctx context.Context, limit int) ([]time.Time, error) {
	f.gotLimit = limit
	if f.failQuery {
		return nil, context.DeadlineExceeded
	}
	return f.asOfs, nil
}

type fakeOppHistory struct {
	latest   []contracts.SpreadOpportunity
	curveKey time.Time
	byCurve  []contracts.SpreadOpportunity
}

func (f *fakeOppHistory) GetLatest(ctx context.Context) ([]contracts.SpreadOpportunity, error) {
	return f.latest, nil
}

func (f *fakeOppHistory) GetByCurve(ctx context.Context, curveAsOf time.Time) ([]contracts.SpreadOpportunity, error) {
	if !curveAsOf.Equal(f.curveKey) {
		return nil, nil
	}
	return f.byCurve, nil
}

type fakeOrderHistory struct {
	orders   []contracts.SpreadOrder
	gotLimit int
}

func (f *fakeOrderHistory) GetRecent(ctx context.Context, limit int) ([]contracts.SpreadOrder, error) {
	f.gotLimit = limit
	return f.orders, nil
}

func historyFixture() (*fakeCurveHistory, *fakeOppHistory, *fakeOrderHistory, *HistoryHandler) {
	curves := &fakeCurveHistory{asOfs: []time.Time{historyAsOf, historyAsOf.Add(-time.Minute)}}
	opps := &fakeOppHistory{
		latest:   []contracts.SpreadOpportunity{{Rank: 1, CurveAsOf: historyAsOf}},
		curveKey: historyAsOf,
		byCurve:  []contracts.SpreadOpportunity{{Rank: 1, CurveAsOf: historyAsOf}, {Rank: 2, CurveAsOf: historyAsOf}},
	}
	orders := &fakeOrderHistory{orders: []contracts.SpreadOrder{{ID: "ord-1", CurveAsOf: historyAsOf}}}
	return curves, opps, orders, NewHistoryHandler(curves, opps, orders, logger.Nop())
}

func TestHistoryGetCurves(t *testing.T) {
	curves, _, _, h := historyFixture()

	rec := httptest.NewRecorder()
	h.GetCurves(rec, httptest.NewRequest(http.MethodGet, "/api/history/curves", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"2026-08-26T14:30:00Z"`)
	assert.Equal(t, defaultHistoryLimit, curves.gotLimit)
}

func TestHistoryGetCurves_QueryFailure(t *testing.T) {
	curves, _, _, h := historyFixture()
	curves.failQuery = true

	rec := httptest.NewRecorder()
	h.GetCurves(rec, httptest.NewRequest(http.MethodGet, "/api/history/curves", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "History unavailable")
}

func TestHistoryGetOpportunities(t *testing.T) {
	_, _, _, h := historyFixture()

	// Latest set by default.
	rec := httptest.NewRecorder()
	h.GetOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/history/opportunities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rank":1`)
	assert.NotContains(t, rec.Body.String(), `"rank":2`)

	// A specific curve's set when asked for.
	rec = httptest.NewRecorder()
	h.GetOpportunities(rec, httptest.NewRequest(http.MethodGet,
		"/api/history/opportunities?curve_as_of=2026-08-26T14:30:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rank":2`)

	rec = httptest.NewRecorder()
	h.GetOpportunities(rec, httptest.NewRequest(http.MethodGet,
		"/api/history/opportunities?curve_as_of=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryGetOrders(t *testing.T) {
	_, _, orders, h := historyFixture()

	rec := httptest.NewRecorder()
	h.GetOrders(rec, httptest.NewRequest(http.MethodGet, "/api/history/orders?limit=3", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ord-1"`)
	assert.Equal(t, 3, orders.gotLimit)
}

func TestHistoryLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", defaultHistoryLimit},
		{"limit=50", 50},
		{"limit=0", defaultHistoryLimit},
		{"limit=-5", defaultHistoryLimit},
		{"limit=junk", defaultHistoryLimit},
		{"limit=9999", maxHistoryLimit},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/history/orders?"+tt.query, nil)
		assert.Equal(t, tt.want, historyLimit(req), tt.query)
	}
}
