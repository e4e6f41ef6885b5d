package delta

// peekKind is the coarse type an opIterator reports at PeekType: Retain,
// Insert (InsertText and InsertCode collapse together here) or Delete.
// Retain also serves as the sentinel reported once the iterator is
// exhausted — callers MUST pair every peek with HasNext, never treat a
// Retain peek as proof of a live Retain op.
type peekKind int

const (
	peekRetain peekKind = iota
	peekInsert
	peekDelete
)

// exhaustedPeekLength is returned by PeekLength once the iterator is
// exhausted: large enough to never be the winner of a min() against a
// live iterator, per spec.
const exhaustedPeekLength = 1 << 62

// opIterator is a single-pass (index, offset) cursor over a Delta's
// operations, generalizing the teacher's ot/transform.go iter to carry
// attributes and the InsertCode variant. It owns no data of its own.
type opIterator struct {
	ops    []Op
	index  int
	offset int
}

func newOpIterator(ops []Op) *opIterator {
	return &opIterator{ops: ops}
}

// HasNext reports whether there is a non-empty operation remaining.
func (it *opIterator) HasNext() bool {
	return it.index < len(it.ops) && it.PeekLength() > 0
}

// PeekType reports the coarse kind of the current op, or the Retain
// sentinel once exhausted.
func (it *opIterator) PeekType() peekKind {
	if it.index >= len(it.ops) {
		return peekRetain
	}
	op := it.ops[it.index]
	switch {
	case op.IsInsert():
		return peekInsert
	case op.Type == OpDelete:
		return peekDelete
	default:
		return peekRetain
	}
}

// PeekLength reports the remaining length of the current op (full length
// minus the internal offset), or exhaustedPeekLength once exhausted.
func (it *opIterator) PeekLength() int {
	if it.index >= len(it.ops) {
		return exhaustedPeekLength
	}
	return it.ops[it.index].Length() - it.offset
}

// Next consumes and returns the entire remainder of the current op.
func (it *opIterator) Next() Op {
	return it.NextN(it.PeekLength())
}

// NextN consumes and returns a fragment of length min(n, PeekLength()) of
// the current op, advancing the cursor and rolling over to the next op
// when the current one is exhausted. For Retain and Delete this returns
// the same variant with the clamped length (attributes copied for
// Retain). For InsertText it slices the original string by UTF-16
// code-unit offset. For InsertCode the code is returned unchanged with
// length 1 — codes are atomic.
func (it *opIterator) NextN(n int) Op {
	if it.index >= len(it.ops) {
		invariantf("delta: opIterator.NextN called past exhaustion")
	}
	op := it.ops[it.index]
	remaining := op.Length() - it.offset
	if n <= 0 || n > remaining {
		n = remaining
	}

	var out Op
	switch op.Type {
	case OpRetain:
		out = Retain(n, op.Attrs)
	case OpDelete:
		out = Delete(n)
	case OpInsertText:
		out = InsertText(utf16Slice(op.Text, it.offset, it.offset+n), op.Attrs)
	case OpInsertCode:
		out = InsertCode(op.N, op.Attrs)
	default:
		invariantf("delta: opIterator.NextN encountered unknown op type %v", op.Type)
	}

	if n >= remaining {
		it.index++
		it.offset = 0
	} else {
		it.offset += n
	}
	return out
}
