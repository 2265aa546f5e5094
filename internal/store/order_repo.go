package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwaltman/basisengine/internal/contracts"
)

// OrderRepository persists constructed order requests for audit. Routing
// state lives with the execution venue, not here.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates an order repository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save stores one order request. Duplicate client IDs are rejected by the
// primary key, which is the point: an ID is never reused.
func (r *OrderRepository) Save(ctx context.Context, order contracts.SpreadOrder) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.ID, err)
	}

	query := `
		INSERT INTO basis.orders (id, curve_as_of, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = r.pool.Exec(ctx, query, order.ID, order.CurveAsOf, payload, order.CreatedAt)
	return err
}

// PruneBefore deletes orders created before cutoff.
func (r *OrderRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM basis.orders WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// GetRecent returns the most recently constructed orders, newest first.
func (r *OrderRepository) GetRecent(ctx context.Context, limit int) ([]contracts.SpreadOrder, error) {
	query := `
		SELECT payload
		FROM basis.orders
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []contracts.SpreadOrder
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var order contracts.SpreadOrder
		if err := json.Unmarshal(payload, &order); err != nil {
			return nil, fmt.Errorf("unmarshal order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}
