package service

import (
	"context"
	"log"
	"time"

	"collab-docs-be/pkg/events"
	pktNats "collab-docs-be/pkg/nats"
)

// publishDomainEvent emits a NATS event when a publisher is wired. Failures
// are logged, never surfaced to the caller; domain events are best-effort.
func publishDomainEvent(ctx context.Context, pub *pktNats.Publisher, eventType string, data map[string]interface{}) {
	if pub == nil {
		return
	}
	evt := events.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
	if err := pub.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", eventType, err)
	}
}
