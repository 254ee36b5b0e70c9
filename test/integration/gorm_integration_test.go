package integration

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/repository/specification"
	"collab-docs-be/internal/repository/unitofwork"
	"collab-docs-be/internal/service"
	"collab-docs-be/pkg/database"
	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) unitofwork.RepositoryFactory {
	t.Helper()

	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDB(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	return unitofwork.NewRepositoryFactory(gormDB)
}

func TestGormConnection(t *testing.T) {
	uowFactory := openTestDB(t)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.UserRepository())
	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.DocumentVersionRepository())
	assert.NotNil(t, uow.DocumentOperationRepository())
}

func TestDocumentLifecycle(t *testing.T) {
	uowFactory := openTestDB(t)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	owner := &entity.User{
		Id:           uuid.New(),
		Email:        "integration-" + uuid.NewString()[:8] + "@test.local",
		PasswordHash: "x",
		DisplayName:  "Integration",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, uow.UserRepository().Create(ctx, owner))
	defer uow.UserRepository().Delete(ctx, owner.Id)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "integration doc",
		Content:   "hello",
		OwnerId:   owner.Id,
		CreatedAt: time.Now(),
	}
	require.NoError(t, uow.DocumentRepository().Create(ctx, doc))
	defer uow.DocumentRepository().Delete(ctx, doc.Id)

	// Content advance with version guard.
	require.NoError(t, uow.DocumentRepository().UpdateContent(ctx, doc.Id, "hello world", 3))
	// Stale write must be a no-op.
	require.NoError(t, uow.DocumentRepository().UpdateContent(ctx, doc.Id, "stale", 1))

	found, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: doc.Id})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "hello world", found.Content)
	assert.Equal(t, int64(3), found.Version)

	// Operation log round-trips the full payload.
	opRow := &entity.DocumentOperation{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		UserId:     owner.Id,
		Version:    3,
		Operation:  ot.NewInsert(5, " world"),
		AppliedAt:  time.Now(),
	}
	require.NoError(t, uow.DocumentOperationRepository().Create(ctx, opRow))

	ops, err := uow.DocumentOperationRepository().FindAll(ctx, specification.ByDocumentID{DocumentID: doc.Id})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, ot.TypeInsert, ops[0].Operation.Type)
	assert.Equal(t, " world", ops[0].Operation.Content)
}

func TestVersionRestore(t *testing.T) {
	uowFactory := openTestDB(t)
	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)
	svc := service.NewDocumentService(uowFactory, nil)

	owner := &entity.User{
		Id:           uuid.New(),
		Email:        "restore-" + uuid.NewString()[:8] + "@test.local",
		PasswordHash: "x",
		DisplayName:  "Restore",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, uow.UserRepository().Create(ctx, owner))
	defer uow.UserRepository().Delete(ctx, owner.Id)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     "restorable doc",
		Content:   "first draft",
		OwnerId:   owner.Id,
		CreatedAt: time.Now(),
	}
	require.NoError(t, uow.DocumentRepository().Create(ctx, doc))
	defer uow.DocumentRepository().Delete(ctx, doc.Id)

	snapshot := &entity.DocumentVersion{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		Version:    1,
		Content:    "first draft",
		CreatedAt:  time.Now(),
	}
	require.NoError(t, uow.DocumentVersionRepository().Create(ctx, snapshot))

	// The document moves on past the snapshot.
	require.NoError(t, uow.DocumentRepository().UpdateContent(ctx, doc.Id, "second draft", 2))

	res, err := svc.RestoreVersion(ctx, owner.Id, doc.Id, 1)
	require.NoError(t, err)
	assert.Equal(t, "first draft", res.Content)
	assert.Equal(t, int64(3), res.Version)

	// Restoring an unknown snapshot fails cleanly.
	_, err = svc.RestoreVersion(ctx, owner.Id, doc.Id, 99)
	assert.Error(t, err)

	// The restore cut its own snapshot of the restored state.
	restored, err := uow.DocumentVersionRepository().FindOne(ctx,
		specification.ByDocumentID{DocumentID: doc.Id},
		specification.VersionEquals{Version: 3},
	)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, "first draft", restored.Content)
}
