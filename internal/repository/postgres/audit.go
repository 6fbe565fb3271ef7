package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, action, entity_type, entity_id, changes, metadata,
			ip_address, user_agent, request_id, created_at
		) VALUES (:id, :action, :entity_type, :entity_id, :changes, :metadata,
			:ip_address, :user_agent, :request_id, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

func (r *auditRepository) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error) {
	query := `SELECT * FROM audit_logs WHERE 1=1`
	var args []interface{}

	if filters != nil {
		if filters.EntityType != "" {
			args = append(args, filters.EntityType)
			query += fmt.Sprintf(" AND entity_type = $%d", len(args))
		}
		if filters.EntityID != "" {
			args = append(args, filters.EntityID)
			query += fmt.Sprintf(" AND entity_id = $%d", len(args))
		}
		if filters.Action != "" {
			args = append(args, filters.Action)
			query += fmt.Sprintf(" AND action = $%d", len(args))
		}
	}

	limit := 100
	if filters != nil && filters.Limit > 0 && filters.Limit < 1000 {
		limit = filters.Limit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	logs := []*model.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
