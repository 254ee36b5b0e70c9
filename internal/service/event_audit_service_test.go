package service

import (
	"context"
	"testing"
	"time"

	"collab-docs-be/pkg/events"
)

type recordingLogger struct {
	module  string
	message string
	details map[string]interface{}
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Info(module, message string, details map[string]interface{}) {
	l.module, l.message, l.details = module, message, details
}
func (l *recordingLogger) Warn(module, message string, details map[string]interface{})  {}
func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {}
func (l *recordingLogger) Sync() error                                                  { return nil }

func TestEventAuditLogsTypeAndPayload(t *testing.T) {
	log := &recordingLogger{}
	svc := NewEventAuditService(log)

	event := events.BaseEvent{
		Type:       events.TypeDocumentCreated,
		Data:       map[string]interface{}{"document_id": "d1"},
		OccurredAt: time.Now(),
	}

	if err := svc.Handle(context.Background(), event); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if log.message != events.TypeDocumentCreated {
		t.Errorf("logged message = %q, want %q", log.message, events.TypeDocumentCreated)
	}
	if log.details["document_id"] != "d1" {
		t.Errorf("logged details = %v", log.details)
	}
}
