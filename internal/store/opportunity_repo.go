package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwaltman/basisengine/internal/contracts"
)

// OpportunityRepository persists ranked opportunities, one batch per curve
// snapshot. Opportunities are never updated; a new cycle writes new rows.
type OpportunityRepository struct {
	pool *pgxpool.Pool
}

// NewOpportunityRepository creates an opportunity repository.
func NewOpportunityRepository(pool *pgxpool.Pool) *OpportunityRepository {
	return &OpportunityRepository{pool: pool}
}

// SaveBatch stores the ranked set from one cycle.
func (r *OpportunityRepository) SaveBatch(ctx context.Context, opps []contracts.SpreadOpportunity) error {
	if len(opps) == 0 {
		return nil
	}

	query := `
		INSERT INTO basis.opportunities (curve_as_of, pair_key, rank, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, opp := range opps {
		payload, err := json.Marshal(opp)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", opp.PairKey(), err)
		}
		batch.Queue(query, opp.CurveAsOf, opp.PairKey(), opp.Rank, payload, opp.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range opps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert opportunity batch: %w", err)
		}
	}
	return nil
}

// GetByCurve returns the ranked set built against one curve snapshot, in
// rank order.
func (r *OpportunityRepository) GetByCurve(ctx context.Context, curveAsOf time.Time) ([]contracts.SpreadOpportunity, error) {
	query := `
		SELECT payload
		FROM basis.opportunities
		WHERE curve_as_of = $1
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query, curveAsOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// GetLatest returns the most recent ranked set, in rank order.
func (r *OpportunityRepository) GetLatest(ctx context.Context) ([]contracts.SpreadOpportunity, error) {
	query := `
		SELECT payload
		FROM basis.opportunities
		WHERE curve_as_of = (SELECT MAX(curve_as_of) FROM basis.opportunities)
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanOpportunities(rows)
}

// PruneBefore deletes opportunities built against curves older than cutoff.
func (r *OpportunityRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM basis.opportunities WHERE curve_as_of < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanOpportunities(rows pgx.Rows) ([]contracts.SpreadOpportunity, error) {
	var opps []contracts.SpreadOpportunity
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var opp contracts.SpreadOpportunity
		if err := json.Unmarshal(payload, &opp); err != nil {
			return nil, fmt.Errorf("unmarshal opportunity: %w", err)
		}
		opps = append(opps, opp)
	}
	return opps, rows.Err()
}
