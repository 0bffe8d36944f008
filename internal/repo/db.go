package repo

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS message_logs (
	id          BIGSERIAL PRIMARY KEY,
	message_id  TEXT NOT NULL,
	sender      TEXT NOT NULL,
	question    TEXT NOT NULL,
	reply       TEXT NOT NULL,
	delivered   BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_message_logs_created_at ON message_logs (created_at);
CREATE INDEX IF NOT EXISTS idx_message_logs_sender ON message_logs (sender);
`

// Open connects to postgres and makes sure the message log table exists.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
