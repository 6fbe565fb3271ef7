package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id            UUID PRIMARY KEY,
		event_type    TEXT NOT NULL,
		aggregate_id  TEXT NOT NULL,
		payload       JSONB NOT NULL,
		status        TEXT NOT NULL DEFAULT 'PENDING',
		error_message TEXT,
		retry_count   INT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		processed_at  TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_status_created
		ON outbox_events (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          UUID PRIMARY KEY,
		action      TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		changes     JSONB,
		metadata    JSONB,
		ip_address  TEXT NOT NULL DEFAULT '',
		user_agent  TEXT NOT NULL DEFAULT '',
		request_id  TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_logs_entity
		ON audit_logs (entity_type, entity_id, created_at DESC)`,
}

// Migrate creates the outbox and audit tables when missing.
func (r *BaseRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
