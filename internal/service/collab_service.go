package service

import (
	"context"
	"strings"

	"collab-docs-be/internal/collab"
	"collab-docs-be/internal/dto"
	"collab-docs-be/internal/pkg/serverutils"
	"collab-docs-be/internal/repository/specification"
	"collab-docs-be/internal/repository/unitofwork"
	"collab-docs-be/pkg/ot"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ICollabService interface {
	ActiveUsers(ctx context.Context, documentID uuid.UUID) ([]*dto.ActiveUserResponse, error)
	Stats(ctx context.Context, userId uuid.UUID, documentID uuid.UUID) (*dto.DocumentStatsResponse, error)
	Transform(req *dto.TransformRequest) (*dto.TransformResponse, error)
	Compose(req *dto.ComposeRequest) (*dto.ComposeResponse, error)
	Invert(req *dto.InvertRequest) (*dto.InvertResponse, error)
}

type collabService struct {
	uowFactory unitofwork.RepositoryFactory
	presence   collab.PresenceStore
}

func NewCollabService(uowFactory unitofwork.RepositoryFactory, presence collab.PresenceStore) ICollabService {
	return &collabService{
		uowFactory: uowFactory,
		presence:   presence,
	}
}

func (s *collabService) ActiveUsers(ctx context.Context, documentID uuid.UUID) ([]*dto.ActiveUserResponse, error) {
	states := s.presence.List(documentID)

	out := make([]*dto.ActiveUserResponse, len(states))
	for i, st := range states {
		out[i] = &dto.ActiveUserResponse{
			UserId:         st.UserID.String(),
			Color:          st.Color,
			CursorPosition: st.Position,
			SelectionStart: st.SelectionStart,
			SelectionEnd:   st.SelectionEnd,
			UpdatedAt:      st.UpdatedAt,
		}
	}
	return out, nil
}

func (s *collabService) Stats(ctx context.Context, userId uuid.UUID, documentID uuid.UUID) (*dto.DocumentStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: documentID})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, serverutils.ErrNotFound
	}

	versionCount, err := uow.DocumentVersionRepository().Count(ctx, specification.ByDocumentID{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	operationCount, err := uow.DocumentOperationRepository().Count(ctx, specification.ByDocumentID{DocumentID: documentID})
	if err != nil {
		return nil, err
	}

	return &dto.DocumentStatsResponse{
		DocumentId:     documentID,
		Version:        doc.Version,
		ContentLength:  len([]rune(doc.Content)),
		WordCount:      len(strings.Fields(doc.Content)),
		VersionCount:   versionCount,
		OperationCount: operationCount,
		ActiveUsers:    len(s.presence.List(documentID)),
		LastActivity:   doc.UpdatedAt,
	}, nil
}

// Transform rebases one operation against a sequence of concurrent
// operations. Exposed for client debugging and conformance checks.
func (s *collabService) Transform(req *dto.TransformRequest) (*dto.TransformResponse, error) {
	if err := req.Operation.Validate(); err != nil {
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, err.Error())
	}
	for _, against := range req.Against {
		if err := against.Validate(); err != nil {
			return nil, serverutils.NewApiError(fiber.StatusBadRequest, err.Error())
		}
	}

	result := ot.TransformAgainstQueue(req.Operation, req.Against)
	return &dto.TransformResponse{Result: result}, nil
}

// Compose merges two sequential operations into one where the algebra
// allows it.
func (s *collabService) Compose(req *dto.ComposeRequest) (*dto.ComposeResponse, error) {
	if err := req.First.Validate(); err != nil {
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, err.Error())
	}
	if err := req.Second.Validate(); err != nil {
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, err.Error())
	}

	result := ot.Compose(req.First, req.Second)
	return &dto.ComposeResponse{Result: result}, nil
}

// Invert computes the undo of an operation against the document state it
// was applied to.
func (s *collabService) Invert(req *dto.InvertRequest) (*dto.InvertResponse, error) {
	if err := req.Operation.Validate(); err != nil {
		return nil, serverutils.NewApiError(fiber.StatusBadRequest, err.Error())
	}

	result := req.Operation.Invert(req.Document)
	return &dto.InvertResponse{Result: result}, nil
}
