package service

import (
	"context"

	"collab-docs-be/internal/pkg/logger"
	"collab-docs-be/pkg/events"
)

type IEventAuditService interface {
	Handle(ctx context.Context, event events.Event) error
}

// eventAuditService consumes the durable event stream and writes an audit
// trail. It is the read side of the NATS publishers scattered through the
// services and the hub.
type eventAuditService struct {
	logger logger.ILogger
}

func NewEventAuditService(log logger.ILogger) IEventAuditService {
	return &eventAuditService{logger: log}
}

func (s *eventAuditService) Handle(ctx context.Context, event events.Event) error {
	s.logger.Info("EventAudit", event.EventType(), event.Payload())
	return nil
}
