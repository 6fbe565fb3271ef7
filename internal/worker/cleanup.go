package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

type CleanupConfig struct {
	OutboxRetention    time.Duration
	AuditRetentionDays int
	Interval           time.Duration
}

// CleanupWorker drops processed outbox events and audit entries that are
// past retention. A zero retention keeps everything of that kind.
type CleanupWorker struct {
	outbox repository.OutboxRepository
	audit  repository.AuditRepository
	config CleanupConfig
	logger *logger.Logger
	now    func() time.Time
}

func NewCleanupWorker(outbox repository.OutboxRepository, audit repository.AuditRepository, config CleanupConfig, log *logger.Logger) *CleanupWorker {
	if log == nil {
		log = logger.Nop()
	}
	if config.Interval <= 0 {
		config.Interval = 24 * time.Hour
	}
	return &CleanupWorker{
		outbox: outbox,
		audit:  audit,
		config: config,
		logger: log,
		now:    time.Now,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error(err, "Retention cleanup failed")
			}
		}
	}
}

func (w *CleanupWorker) RunOnce(ctx context.Context) error {
	var errs []error
	now := w.now()

	if w.outbox != nil && w.config.OutboxRetention > 0 {
		cutoff := now.Add(-w.config.OutboxRetention)
		rows, err := w.outbox.DeleteProcessedBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to clean up outbox events: %w", err))
		} else {
			w.logger.Info("Cleaned up outbox events", "rows", rows, "before", cutoff)
		}
	}

	if w.audit != nil && w.config.AuditRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -w.config.AuditRetentionDays)
		rows, err := w.audit.DeleteBefore(ctx, cutoff)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to clean up audit logs: %w", err))
		} else {
			w.logger.Info("Cleaned up audit logs", "rows", rows, "before", cutoff)
		}
	}

	return errors.Join(errs...)
}
