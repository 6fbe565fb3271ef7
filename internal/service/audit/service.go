package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/httputil"
)

// Recorder is what domain services need to leave an audit trail.
type Recorder interface {
	Log(ctx context.Context, action, entityType, entityID string, opts *LogOptions) error
}

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes  interface{}
	Metadata interface{}
}

// Log creates an audit log entry. Caller details come from the request
// context when present.
func (s *Service) Log(ctx context.Context, action, entityType, entityID string, opts *LogOptions) error {
	var changes, metadata json.RawMessage
	var err error

	if opts != nil {
		if opts.Changes != nil {
			if changes, err = json.Marshal(opts.Changes); err != nil {
				return fmt.Errorf("failed to marshal audit changes: %w", err)
			}
		}
		if opts.Metadata != nil {
			if metadata, err = json.Marshal(opts.Metadata); err != nil {
				return fmt.Errorf("failed to marshal audit metadata: %w", err)
			}
		}
	}

	client := httputil.ClientInfoFrom(ctx)
	log := &model.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Changes:    changes,
		Metadata:   metadata,
		IPAddress:  client.IPAddress,
		UserAgent:  client.UserAgent,
		RequestID:  client.RequestID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, log); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters *model.AuditLogFilters) ([]*model.AuditLog, error) {
	logs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}
