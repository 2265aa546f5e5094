package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwaltman/basisengine/internal/contracts"
	"github.com/rwaltman/basisengine/internal/curve"
)

// CurveRepository persists curve snapshots. Append-only: a snapshot written
// for an as-of instant is never updated.
type CurveRepository struct {
	pool *pgxpool.Pool
}

// NewCurveRepository creates a curve repository.
func NewCurveRepository(pool *pgxpool.Pool) *CurveRepository {
	return &CurveRepository{pool: pool}
}

// SaveSnapshot stores a built curve with its exclusions and the hash of the
// strategy config it was built under. A repeat write for the same as-of is
// a no-op.
func (r *CurveRepository) SaveSnapshot(ctx context.Context, c *contracts.DiscountCurve, configHash string, exclusions []curve.Exclusion) error {
	nodes, err := json.Marshal(c.Nodes())
	if err != nil {
		return fmt.Errorf("marshal curve nodes: %w", err)
	}
	if exclusions == nil {
		exclusions = []curve.Exclusion{}
	}
	excl, err := json.Marshal(exclusions)
	if err != nil {
		return fmt.Errorf("marshal exclusions: %w", err)
	}

	query := `
		INSERT INTO basis.curve_snapshots (as_of, interpolation, config_hash, nodes, exclusions)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (as_of) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query, c.AsOf(), c.InterpolationRule(), configHash, nodes, excl)
	return err
}

// GetLatest reconstructs the most recent snapshot. Returns
// ErrInsufficientCurveData when no snapshot exists.
func (r *CurveRepository) GetLatest(ctx context.Context) (*contracts.DiscountCurve, error) {
	query := `
		SELECT as_of, interpolation, nodes
		FROM basis.curve_snapshots
		ORDER BY as_of DESC
		LIMIT 1
	`

	var (
		asOf      time.Time
		rule      string
		nodesJSON []byte
	)
	err := r.pool.QueryRow(ctx, query).Scan(&asOf, &rule, &nodesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no stored curve snapshot", contracts.ErrInsufficientCurveData)
	}
	if err != nil {
		return nil, err
	}

	var nodes []contracts.CurveNode
	if err := json.Unmarshal(nodesJSON, &nodes); err != nil {
		return nil, fmt.Errorf("unmarshal curve nodes: %w", err)
	}

	interp, ok := curve.NewInterpolator(rule)
	if !ok {
		return nil, fmt.Errorf("stored curve has unknown interpolation %q", rule)
	}
	return contracts.NewDiscountCurve(asOf, nodes, interp)
}

// PruneBefore deletes snapshots older than cutoff. Dependent opportunity
// rows must be pruned first.
func (r *CurveRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM basis.curve_snapshots WHERE as_of < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// ListAsOf returns the as-of instants of the most recent snapshots, newest
// first, up to limit.
func (r *CurveRepository) ListAsOf(ctx context.Context, limit int) ([]time.Time, error) {
	query := `
		SELECT as_of
		FROM basis.curve_snapshots
		ORDER BY as_of DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
