package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the engine's persistent tables. Curve snapshots and
// opportunities are append-only: one row per build, never updated.
const schema = `
CREATE SCHEMA IF NOT EXISTS basis;

CREATE TABLE IF NOT EXISTS basis.curve_snapshots (
	as_of         TIMESTAMPTZ PRIMARY KEY,
	interpolation TEXT        NOT NULL,
	config_hash   TEXT        NOT NULL,
	nodes         JSONB       NOT NULL,
	exclusions    JSONB       NOT NULL DEFAULT '[]',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS basis.opportunities (
	id          BIGSERIAL PRIMARY KEY,
	curve_as_of TIMESTAMPTZ NOT NULL REFERENCES basis.curve_snapshots(as_of),
	pair_key    TEXT        NOT NULL,
	rank        INT         NOT NULL,
	payload     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_opportunities_curve_as_of
	ON basis.opportunities (curve_as_of, rank);

CREATE TABLE IF NOT EXISTS basis.orders (
	id          TEXT PRIMARY KEY,
	curve_as_of TIMESTAMPTZ NOT NULL,
	payload     JSONB       NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

// Migrate creates the engine's tables if they do not exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
