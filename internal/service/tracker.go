// Package service holds what the domain services share.
package service

import (
	"context"

	"github.com/jwalitptl/hospital-api/internal/service/audit"
	"github.com/jwalitptl/hospital-api/internal/service/event"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// Tracker emits the domain event and audit entry that follow a write. The
// write has already been committed, so failures are logged and not returned.
type Tracker struct {
	events  event.Emitter
	auditor audit.Recorder
	logger  *logger.Logger
}

func NewTracker(events event.Emitter, auditor audit.Recorder, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	return &Tracker{events: events, auditor: auditor, logger: log}
}

// Change describes one committed write.
type Change struct {
	Action     string
	EntityType string
	EntityID   string
	EventType  string
	Payload    interface{}
	Changes    interface{}
}

func (t *Tracker) Record(ctx context.Context, c Change) {
	if t.events != nil && c.EventType != "" {
		if err := t.events.Emit(ctx, c.EventType, c.EntityID, c.Payload); err != nil {
			t.logger.Error(err, "failed to emit event", "event_type", c.EventType, "entity_id", c.EntityID)
		}
	}
	if t.auditor != nil {
		var opts *audit.LogOptions
		if c.Changes != nil {
			opts = &audit.LogOptions{Changes: c.Changes}
		}
		if err := t.auditor.Log(ctx, c.Action, c.EntityType, c.EntityID, opts); err != nil {
			t.logger.Error(err, "failed to write audit log", "entity_type", c.EntityType, "entity_id", c.EntityID)
		}
	}
}
