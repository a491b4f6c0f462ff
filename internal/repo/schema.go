package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — DDL таблиц Elastix. Идемпотентен.
//
// executions.body хранится как json, а не jsonb: jsonb не сохраняет
// порядок ключей ответа.
const schema = `
CREATE TABLE IF NOT EXISTS datasources (
	id         UUID PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	config     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS executions (
	id            UUID PRIMARY KEY,
	datasource_id UUID NOT NULL REFERENCES datasources(id) ON DELETE CASCADE,
	action        JSONB NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('PENDING', 'RUNNING', 'SUCCEEDED', 'FAILED')),
	status_code   INTEGER NOT NULL DEFAULT 0,
	error_kind    TEXT,
	error         TEXT,
	body          JSON,
	duration_ms   BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS executions_datasource_created_idx
	ON executions (datasource_id, created_at DESC);

CREATE INDEX IF NOT EXISTS executions_pending_idx
	ON executions (created_at) WHERE status = 'PENDING';

CREATE INDEX IF NOT EXISTS executions_running_idx
	ON executions (started_at) WHERE status = 'RUNNING';

CREATE INDEX IF NOT EXISTS executions_finished_idx
	ON executions (finished_at) WHERE status IN ('SUCCEEDED', 'FAILED');
`

// EnsureSchema создаёт таблицы, если их нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
