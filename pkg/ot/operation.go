package ot

import (
	"fmt"
	"time"
)

// Type is the operation kind over a character-offset text model.
type Type string

const (
	TypeInsert Type = "insert"
	TypeDelete Type = "delete"
	TypeRetain Type = "retain"
)

// Operation is the atomic edit primitive exchanged between clients and the
// session hub. Position and Length are rune offsets/counts, not bytes.
// Timestamp is advisory only and never used for ordering decisions.
type Operation struct {
	Type      Type      `json:"type"`
	Position  int       `json:"position"`
	Content   string    `json:"content,omitempty"`
	Length    int       `json:"length"`
	Version   int       `json:"version"`
	AuthorID  string    `json:"author_id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

func NewInsert(position int, content string) Operation {
	return Operation{
		Type:      TypeInsert,
		Position:  position,
		Content:   content,
		Length:    len([]rune(content)),
		Timestamp: time.Now(),
	}
}

func NewDelete(position, length int) Operation {
	return Operation{
		Type:      TypeDelete,
		Position:  position,
		Length:    length,
		Timestamp: time.Now(),
	}
}

func NewRetain(length int) Operation {
	return Operation{
		Type:      TypeRetain,
		Length:    length,
		Timestamp: time.Now(),
	}
}

// Validate checks the structural invariants of an operation.
func (op Operation) Validate() error {
	if op.Position < 0 {
		return fmt.Errorf("operation position must be non-negative, got %d", op.Position)
	}
	if op.Length < 0 {
		return fmt.Errorf("operation length must be non-negative, got %d", op.Length)
	}
	switch op.Type {
	case TypeInsert:
		if op.Content == "" {
			return fmt.Errorf("insert operation must have content")
		}
		if op.Length != len([]rune(op.Content)) {
			return fmt.Errorf("insert length %d does not match content length %d", op.Length, len([]rune(op.Content)))
		}
	case TypeDelete:
		if op.Length == 0 {
			return fmt.Errorf("delete operation must have positive length")
		}
		if op.Content != "" {
			return fmt.Errorf("delete operation must not carry content")
		}
	case TypeRetain:
		// Retain skips characters; position is unused.
	default:
		return fmt.Errorf("unknown operation type: %s", op.Type)
	}
	return nil
}

// Apply applies the operation to doc and returns the resulting text.
// Out-of-range positions are an error; a delete reaching past the end of the
// document is truncated rather than rejected, so a slightly stale delete can
// still land (the reconciliation channel bounds any resulting drift).
func (op Operation) Apply(doc string) (string, error) {
	runes := []rune(doc)
	switch op.Type {
	case TypeInsert:
		if op.Position < 0 || op.Position > len(runes) {
			return "", fmt.Errorf("insert position %d out of range [0,%d]", op.Position, len(runes))
		}
		return string(runes[:op.Position]) + op.Content + string(runes[op.Position:]), nil
	case TypeDelete:
		if op.Position < 0 || op.Position > len(runes) {
			return "", fmt.Errorf("delete position %d out of range [0,%d]", op.Position, len(runes))
		}
		end := op.Position + op.Length
		if end > len(runes) {
			end = len(runes)
		}
		return string(runes[:op.Position]) + string(runes[end:]), nil
	case TypeRetain:
		return doc, nil
	default:
		// Unknown kinds are a no-op rather than a session-fatal error.
		return doc, nil
	}
}

// Compose merges two adjacent insert operations produced against the same
// state into one. For any other pair the second operation wins, matching the
// whole-history semantics of the hub log.
func Compose(a, b Operation) Operation {
	if a.Type == TypeInsert && b.Type == TypeInsert {
		if a.Position <= b.Position {
			merged := NewInsert(a.Position, a.Content+b.Content)
			merged.AuthorID = a.AuthorID
			merged.Version = b.Version
			return merged
		}
		merged := NewInsert(b.Position, b.Content+a.Content)
		merged.AuthorID = b.AuthorID
		merged.Version = b.Version
		return merged
	}
	return b
}

// Invert produces the operation that undoes op when applied to the document
// state op was applied to. doc must be that pre-apply state so deleted text
// can be recovered.
func (op Operation) Invert(doc string) Operation {
	switch op.Type {
	case TypeInsert:
		inv := NewDelete(op.Position, op.Length)
		inv.AuthorID = op.AuthorID
		return inv
	case TypeDelete:
		runes := []rune(doc)
		end := op.Position + op.Length
		if end > len(runes) {
			end = len(runes)
		}
		removed := ""
		if op.Position >= 0 && op.Position <= len(runes) {
			removed = string(runes[op.Position:end])
		}
		inv := NewInsert(op.Position, removed)
		inv.AuthorID = op.AuthorID
		return inv
	default:
		return op
	}
}
