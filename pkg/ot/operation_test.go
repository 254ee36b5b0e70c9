package ot

import (
	"encoding/json"
	"testing"
)

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		op      Operation
		want    string
		wantErr bool
	}{
		{"insert at start", "bc", NewInsert(0, "a"), "abc", false},
		{"insert at end", "ab", NewInsert(2, "c"), "abc", false},
		{"insert in middle", "ac", NewInsert(1, "b"), "abc", false},
		{"insert out of range", "ab", NewInsert(5, "x"), "", true},
		{"delete middle", "hello", NewDelete(1, 2), "hlo", false},
		{"delete truncated past end", "abc", NewDelete(1, 10), "a", false},
		{"delete out of range", "abc", NewDelete(7, 1), "", true},
		{"retain untouched", "abc", NewRetain(3), "abc", false},
		{"unicode insert", "héllo", NewInsert(2, "ñ"), "héñllo", false},
		{"unicode delete", "héllo", NewDelete(1, 2), "hlo", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op.Apply(tt.doc)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := []Operation{
		NewInsert(0, "hi"),
		NewDelete(3, 1),
		NewRetain(4),
	}
	for _, op := range valid {
		if err := op.Validate(); err != nil {
			t.Fatalf("valid op %+v rejected: %v", op, err)
		}
	}

	invalid := []Operation{
		{Type: TypeInsert, Position: 0},                             // no content
		{Type: TypeInsert, Position: 0, Content: "ab", Length: 5},   // length mismatch
		{Type: TypeDelete, Position: 2},                             // zero length
		{Type: TypeDelete, Position: 2, Length: 1, Content: "x"},    // content on delete
		{Type: TypeDelete, Position: -1, Length: 1},                 // negative position
		{Type: TypeInsert, Position: 0, Content: "a", Length: -1},   // negative length
		{Type: "replace", Position: 0, Content: "doc", Length: 3},   // unknown kind
	}
	for _, op := range invalid {
		if err := op.Validate(); err == nil {
			t.Fatalf("invalid op %+v accepted", op)
		}
	}
}

func TestAuthorIDIsPlainString(t *testing.T) {
	op := NewInsert(0, "x")
	op.AuthorID = "7f9c24e5-2b3a-4d6e-8f01-23456789abcd"

	raw, err := json.Marshal(op)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		AuthorID string `json:"author_id"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.AuthorID != op.AuthorID {
		t.Fatalf("author_id round-tripped as %q, want %q", decoded.AuthorID, op.AuthorID)
	}

	var back Operation
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if back.AuthorID != op.AuthorID {
		t.Fatalf("got %q, want %q", back.AuthorID, op.AuthorID)
	}
}

func TestComposeAdjacentInserts(t *testing.T) {
	a := NewInsert(1, "ab")
	b := NewInsert(3, "cd")
	got := Compose(a, b)
	if got.Type != TypeInsert || got.Position != 1 || got.Content != "abcd" {
		t.Fatalf("got %+v", got)
	}
}

func TestComposeFallsBackToSecond(t *testing.T) {
	a := NewInsert(1, "ab")
	b := NewDelete(0, 2)
	if got := Compose(a, b); got.Type != TypeDelete {
		t.Fatalf("got %+v, want the delete", got)
	}
}

func TestInvert(t *testing.T) {
	doc := "hello world"

	ins := NewInsert(5, " there")
	applied, err := ins.Apply(doc)
	if err != nil {
		t.Fatal(err)
	}
	undone, err := ins.Invert(doc).Apply(applied)
	if err != nil {
		t.Fatal(err)
	}
	if undone != doc {
		t.Fatalf("insert undo got %q, want %q", undone, doc)
	}

	del := NewDelete(5, 6)
	applied, err = del.Apply(doc)
	if err != nil {
		t.Fatal(err)
	}
	inv := del.Invert(doc)
	if inv.Content != " world" {
		t.Fatalf("recovered %q, want %q", inv.Content, " world")
	}
	undone, err = inv.Apply(applied)
	if err != nil {
		t.Fatal(err)
	}
	if undone != doc {
		t.Fatalf("delete undo got %q, want %q", undone, doc)
	}
}
