package service

import (
	"context"
	"time"

	"collab-docs-be/internal/dto"
	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/pkg/serverutils"
	"collab-docs-be/internal/repository/specification"
	"collab-docs-be/internal/repository/unitofwork"
	"collab-docs-be/pkg/events"
	pktNats "collab-docs-be/pkg/nats"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentListItemResponse, error)
	Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateDocumentRequest) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	Search(ctx context.Context, userId uuid.UUID, query string) ([]*dto.DocumentListItemResponse, error)
	Versions(ctx context.Context, userId uuid.UUID, id uuid.UUID, limit int) ([]*dto.DocumentVersionResponse, error)
	RestoreVersion(ctx context.Context, userId uuid.UUID, id uuid.UUID, version int64) (*dto.DocumentResponse, error)

	// LoadDocument serves the session hub; any authenticated collaborator may
	// open a document, so no ownership check here.
	LoadDocument(ctx context.Context, documentID uuid.UUID) (string, int, error)
}

type documentService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *pktNats.Publisher
}

func NewDocumentService(uowFactory unitofwork.RepositoryFactory, eventPublisher *pktNats.Publisher) IDocumentService {
	return &documentService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (s *documentService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateDocumentRequest) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc := &entity.Document{
		Id:        uuid.New(),
		Title:     req.Title,
		Content:   req.Content,
		Version:   0,
		OwnerId:   userId,
		CreatedAt: time.Now(),
	}

	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return nil, err
	}

	publishDomainEvent(ctx, s.eventPublisher, events.TypeDocumentCreated, map[string]interface{}{
		"document_id": doc.Id.String(),
		"owner_id":    userId.String(),
	})

	return toDocumentResponse(doc), nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID) ([]*dto.DocumentListItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.OwnedByUser{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	return toDocumentList(docs), nil
}

func (s *documentService) Update(ctx context.Context, userId uuid.UUID, id uuid.UUID, req *dto.UpdateDocumentRequest) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	doc.Title = req.Title

	// A REST content replacement bypasses the operation pipeline, so it bumps
	// the version itself and cuts a snapshot of the new state.
	contentChanged := req.Content != nil && *req.Content != doc.Content
	if contentChanged {
		doc.Content = *req.Content
		doc.Version++
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return nil, err
	}

	if contentChanged {
		snapshot := &entity.DocumentVersion{
			Id:         uuid.New(),
			DocumentId: doc.Id,
			Version:    doc.Version,
			Content:    doc.Content,
			CreatedAt:  time.Now(),
		}
		if err := uow.DocumentVersionRepository().Create(ctx, snapshot); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwned(ctx, userId, id); err != nil {
		return err
	}

	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}

	publishDomainEvent(ctx, s.eventPublisher, events.TypeDocumentDeleted, map[string]interface{}{
		"document_id": id.String(),
		"owner_id":    userId.String(),
	})

	return nil
}

func (s *documentService) Search(ctx context.Context, userId uuid.UUID, query string) ([]*dto.DocumentListItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	docs, err := uow.DocumentRepository().FindAll(ctx,
		specification.OwnedByUser{UserID: userId},
		specification.DocumentSearchQuery{Query: query},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	return toDocumentList(docs), nil
}

func (s *documentService) Versions(ctx context.Context, userId uuid.UUID, id uuid.UUID, limit int) ([]*dto.DocumentVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwned(ctx, userId, id); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}

	versions, err := uow.DocumentVersionRepository().FindAll(ctx,
		specification.ByDocumentID{DocumentID: id},
		specification.OrderBy{Field: "version", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.DocumentVersionResponse, len(versions))
	for i, v := range versions {
		out[i] = &dto.DocumentVersionResponse{
			Id:        v.Id,
			Version:   v.Version,
			Content:   v.Content,
			CreatedAt: v.CreatedAt,
		}
	}
	return out, nil
}

// RestoreVersion rewinds a document to a stored snapshot. The restore itself
// advances the version (it is a new edit, not time travel), and the restored
// state is snapshotted so the operation is itself undoable.
func (s *documentService) RestoreVersion(ctx context.Context, userId uuid.UUID, id uuid.UUID, version int64) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}

	snapshot, err := uow.DocumentVersionRepository().FindOne(ctx,
		specification.ByDocumentID{DocumentID: id},
		specification.VersionEquals{Version: version},
	)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, serverutils.ErrNotFound
	}

	doc.Content = snapshot.Content
	doc.Version++

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return nil, err
	}

	restored := &entity.DocumentVersion{
		Id:         uuid.New(),
		DocumentId: doc.Id,
		Version:    doc.Version,
		Content:    doc.Content,
		CreatedAt:  time.Now(),
	}
	if err := uow.DocumentVersionRepository().Create(ctx, restored); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) LoadDocument(ctx context.Context, documentID uuid.UUID) (string, int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentID})
	if err != nil {
		return "", 0, err
	}
	if doc == nil {
		return "", 0, serverutils.ErrNotFound
	}

	return doc.Content, int(doc.Version), nil
}

func (s *documentService) findOwned(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, serverutils.ErrNotFound
	}
	if doc.OwnerId != userId {
		return nil, serverutils.ErrForbidden
	}

	return doc, nil
}

func toDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:        doc.Id,
		Title:     doc.Title,
		Content:   doc.Content,
		Version:   doc.Version,
		OwnerId:   doc.OwnerId,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func toDocumentList(docs []*entity.Document) []*dto.DocumentListItemResponse {
	out := make([]*dto.DocumentListItemResponse, len(docs))
	for i, d := range docs {
		out[i] = &dto.DocumentListItemResponse{
			Id:        d.Id,
			Title:     d.Title,
			Version:   d.Version,
			UpdatedAt: d.UpdatedAt,
		}
	}
	return out
}
