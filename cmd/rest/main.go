package main

import (
	"context"
	"log"

	"collab-docs-be/internal/bootstrap"
	"collab-docs-be/internal/config"
	"collab-docs-be/internal/server"
	"collab-docs-be/internal/tracer"
	"collab-docs-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	go func() {
		log.Println("Background: Starting Persist Worker...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Persist Worker Error: %v", err)
		}
	}()

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
