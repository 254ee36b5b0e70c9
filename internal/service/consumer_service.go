package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"collab-docs-be/internal/collab"
	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/repository/specification"
	"collab-docs-be/internal/repository/unitofwork"
	"collab-docs-be/pkg/events"
	pktNats "collab-docs-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// snapshotEvery controls how often the worker cuts a full DocumentVersion
// row in addition to the per-operation log.
const snapshotEvery = 50

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload collab.PersistDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal persist message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentID})
	if err != nil {
		log.Printf("[ERROR] Failed to load document %s: %v", payload.DocumentID, err)
		msg.Nack()
		return
	}
	if doc == nil {
		// Document deleted while the room was still flushing. Drop the message.
		log.Printf("[WARN] Document not found, dropping persist message: %s", payload.DocumentID)
		msg.Ack()
		return
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	version := int64(payload.Version)

	if err := uow.DocumentRepository().UpdateContent(ctx, payload.DocumentID, payload.Content, version); err != nil {
		log.Printf("[ERROR] Failed to update document %s: %v", payload.DocumentID, err)
		msg.Nack()
		return
	}

	authorId, _ := uuid.Parse(payload.Operation.AuthorID)
	opRow := &entity.DocumentOperation{
		Id:         uuid.New(),
		DocumentId: payload.DocumentID,
		UserId:     authorId,
		Version:    version,
		Operation:  payload.Operation,
		AppliedAt:  time.Now(),
	}
	if err := uow.DocumentOperationRepository().Create(ctx, opRow); err != nil {
		log.Printf("[ERROR] Failed to record operation for %s: %v", payload.DocumentID, err)
		msg.Nack()
		return
	}

	snapshotted := false
	if version > 0 && version%snapshotEvery == 0 {
		snapshot := &entity.DocumentVersion{
			Id:         uuid.New(),
			DocumentId: payload.DocumentID,
			Version:    version,
			Content:    payload.Content,
			CreatedAt:  time.Now(),
		}
		if err := uow.DocumentVersionRepository().Create(ctx, snapshot); err != nil {
			log.Printf("[ERROR] Failed to snapshot document %s at version %d: %v", payload.DocumentID, version, err)
			msg.Nack()
			return
		}
		snapshotted = true
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit persist transaction: %v", err)
		msg.Nack()
		return
	}

	if snapshotted && cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeDocumentPersisted,
			Data: map[string]interface{}{
				"document_id": payload.DocumentID,
				"version":     version,
			},
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish %s event: %v", events.TypeDocumentPersisted, err)
		}
	}

	msg.Ack()
}
