package bootstrap

import (
	"context"
	"log"

	"collab-docs-be/internal/collab"
	"collab-docs-be/internal/config"
	"collab-docs-be/internal/controller"
	"collab-docs-be/internal/handler"
	"collab-docs-be/internal/pkg/logger"
	"collab-docs-be/internal/repository/memory"
	"collab-docs-be/internal/repository/unitofwork"
	"collab-docs-be/internal/service"

	pktNats "collab-docs-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	DocumentController controller.IDocumentController
	CollabController   controller.ICollabController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	CollabHandler *handler.CollabHandler
	CollabHub     *collab.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	// Redis. Optional, only needed for multi-instance relay.
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis, cross-instance relay disabled: %v", err)
		rdb = nil
	}

	// 3. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Collab.PersistTopic)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Collab.PersistTopic,
		uowFactory,
		natsPub,
	)

	authService := service.NewAuthService(uowFactory, cfg.Auth.JwtSecret, cfg.Auth.TokenTTLHours, natsPub)
	documentService := service.NewDocumentService(uowFactory, natsPub)

	presenceRepo := memory.NewPresenceRepository()
	collabService := service.NewCollabService(uowFactory, presenceRepo)

	// 4. Session Hub
	hubLogger := logger.NewIsolatedLogger("logs/collab.log")
	var eventPublisher collab.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	hub := collab.NewHub(rdb, documentService, publisherService, presenceRepo, eventPublisher, hubLogger, collab.Options{
		OpLogLimit:     cfg.Collab.OperationLogLimit,
		SyncIntervalMs: cfg.Collab.SyncIntervalMs,
	})
	go hub.Run()

	// 4.5 Event audit trail, the durable read side of the NATS publishers.
	if natsSub != nil {
		auditService := service.NewEventAuditService(logger.NewIsolatedLogger("logs/events.log"))
		if err := natsSub.Subscribe("collab.>", "collab-audit", auditService.Handle); err != nil {
			log.Printf("[WARN] Failed to subscribe event audit consumer: %v", err)
		}
	}

	// 5. Controllers & Handlers
	return &Container{
		AuthController:     controller.NewAuthController(authService),
		DocumentController: controller.NewDocumentController(documentService),
		CollabController:   controller.NewCollabController(collabService),
		ConsumerService:    consumerService,
		CollabHandler:      handler.NewCollabHandler(hub, hubLogger),
		CollabHub:          hub,
	}
}
