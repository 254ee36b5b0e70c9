package service

import (
	"context"
	"testing"

	"collab-docs-be/internal/dto"
	"collab-docs-be/internal/pkg/serverutils"
	"collab-docs-be/internal/repository/memory"
	"collab-docs-be/pkg/ot"
	"collab-docs-be/pkg/store"

	"github.com/google/uuid"
)

func TestTransformEndpointRebasesOperation(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.TransformRequest{
		Operation: ot.NewDelete(2, 1),
		Against:   []ot.Operation{ot.NewInsert(0, "AA")},
	}

	res, err := svc.Transform(req)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if res.Result.Position != 4 || res.Result.Length != 1 {
		t.Errorf("result = %+v, want delete at 4 len 1", res.Result)
	}
}

func TestTransformEndpointRejectsInvalidOperation(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.TransformRequest{
		Operation: ot.Operation{Type: ot.TypeInsert, Position: -1, Content: "x", Length: 1},
		Against:   []ot.Operation{ot.NewInsert(0, "AA")},
	}

	if _, err := svc.Transform(req); err == nil {
		t.Fatal("expected validation error")
	} else if _, ok := err.(*serverutils.ApiError); !ok {
		t.Errorf("error type = %T, want *serverutils.ApiError", err)
	}
}

func TestComposeEndpointMergesAdjacentInserts(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.ComposeRequest{
		First:  ot.NewInsert(2, "ab"),
		Second: ot.NewInsert(4, "cd"),
	}

	res, err := svc.Compose(req)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if res.Result.Position != 2 || res.Result.Content != "abcd" {
		t.Errorf("result = %+v, want insert \"abcd\" at 2", res.Result)
	}
}

func TestComposeEndpointRejectsInvalidOperation(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.ComposeRequest{
		First:  ot.NewInsert(0, "a"),
		Second: ot.Operation{Type: ot.TypeDelete, Position: -1, Length: 1},
	}

	if _, err := svc.Compose(req); err == nil {
		t.Fatal("expected validation error")
	} else if _, ok := err.(*serverutils.ApiError); !ok {
		t.Errorf("error type = %T, want *serverutils.ApiError", err)
	}
}

func TestInvertEndpointRecoversDeletedText(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.InvertRequest{
		Operation: ot.NewDelete(5, 6),
		Document:  "hello world",
	}

	res, err := svc.Invert(req)
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	if res.Result.Type != ot.TypeInsert || res.Result.Position != 5 || res.Result.Content != " world" {
		t.Errorf("result = %+v, want insert \" world\" at 5", res.Result)
	}
}

func TestInvertEndpointRejectsInvalidOperation(t *testing.T) {
	svc := NewCollabService(nil, memory.NewPresenceRepository())

	req := &dto.InvertRequest{
		Operation: ot.Operation{Type: ot.TypeInsert, Position: -1, Content: "x", Length: 1},
		Document:  "abc",
	}

	if _, err := svc.Invert(req); err == nil {
		t.Fatal("expected validation error")
	} else if _, ok := err.(*serverutils.ApiError); !ok {
		t.Errorf("error type = %T, want *serverutils.ApiError", err)
	}
}

func TestActiveUsersReadsPresence(t *testing.T) {
	presence := memory.NewPresenceRepository()
	svc := NewCollabService(nil, presence)

	docID := uuid.New()
	userID := uuid.New()
	presence.Save(&store.CursorState{
		DocumentID: docID,
		UserID:     userID,
		Position:   4,
		Color:      "#4ECDC4",
	})

	users, err := svc.ActiveUsers(context.Background(), docID)
	if err != nil {
		t.Fatalf("ActiveUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].UserId != userID.String() || users[0].CursorPosition != 4 || users[0].Color != "#4ECDC4" {
		t.Errorf("user = %+v", users[0])
	}
}
