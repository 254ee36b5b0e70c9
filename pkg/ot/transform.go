package ot

// Transform rebases a against b so that a can be applied after b to a
// document both operations were generated against. Insert ties at the same
// position keep a in place; the hub's receipt order decides the final
// interleaving for concurrent same-position inserts.
//
// Retain never displaces positions, and operations of unknown kind pass
// through unchanged instead of failing the session.
func Transform(a, b Operation) Operation {
	if b.Type == TypeRetain || a.Type == TypeRetain {
		return a
	}

	switch a.Type {
	case TypeInsert:
		switch b.Type {
		case TypeInsert:
			if a.Position <= b.Position {
				return a
			}
			a.Position += len([]rune(b.Content))
			return a
		case TypeDelete:
			if a.Position <= b.Position {
				return a
			}
			if a.Position > b.Position+b.Length {
				a.Position -= b.Length
				return a
			}
			// Insert landed inside the deleted region; clamp to its start.
			a.Position = b.Position
			return a
		}
	case TypeDelete:
		switch b.Type {
		case TypeInsert:
			if a.Position < b.Position {
				return a
			}
			a.Position += len([]rune(b.Content))
			return a
		case TypeDelete:
			if a.Position+a.Length <= b.Position {
				return a
			}
			if a.Position >= b.Position+b.Length {
				a.Position -= b.Length
				return a
			}
			// Overlapping deletions reduce to the non-overlapping remainder.
			start := maxInt(a.Position, b.Position)
			end := minInt(a.Position+a.Length, b.Position+b.Length)
			overlap := end - start
			a.Length = maxInt(0, a.Length-overlap)
			if a.Position >= b.Position {
				a.Position = b.Position
			}
			return a
		}
	}
	return a
}

// TransformPair derives both bottom sides of the transformation diamond for
// two operations generated against the same base document.
func TransformPair(a, b Operation) (Operation, Operation) {
	return Transform(a, b), Transform(b, a)
}

// TransformAgainstQueue rebases op against every operation in queue, in queue
// order, yielding the operation that is safe to apply after all of them.
func TransformAgainstQueue(op Operation, queue []Operation) Operation {
	for _, queued := range queue {
		op = Transform(op, queued)
	}
	return op
}

// TransformPosition maps a caret offset through op, the same displacement the
// operation applies to text. Used to keep cursors in place across remote
// edits.
func TransformPosition(pos int, op Operation) int {
	switch op.Type {
	case TypeInsert:
		if op.Position <= pos {
			return pos + len([]rune(op.Content))
		}
	case TypeDelete:
		if op.Position < pos {
			if pos <= op.Position+op.Length {
				return op.Position
			}
			return pos - op.Length
		}
	}
	return pos
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
