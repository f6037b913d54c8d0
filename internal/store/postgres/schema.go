package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is idempotent and applied on every start.
const schema = `
CREATE TABLE IF NOT EXISTS builders (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DOUBLE PRECISION NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS executions (
	id          TEXT PRIMARY KEY,
	builder_id  TEXT NOT NULL REFERENCES builders(id),
	status      TEXT NOT NULL,
	created_at  DOUBLE PRECISION NOT NULL,
	updated_at  DOUBLE PRECISION NOT NULL,
	logs        TEXT[] NOT NULL DEFAULT '{}',
	metadata    JSONB NOT NULL DEFAULT '{}'::jsonb
);

CREATE TABLE IF NOT EXISTS activity (
	seq          BIGSERIAL PRIMARY KEY,
	type         TEXT NOT NULL,
	ts           DOUBLE PRECISION NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	builder_id   TEXT NOT NULL DEFAULT '',
	execution_id TEXT NOT NULL DEFAULT '',
	message      TEXT NOT NULL DEFAULT ''
);
`

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}
