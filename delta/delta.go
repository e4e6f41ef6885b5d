package delta

// Delta is an ordered sequence of operations describing a change from a
// base document to a target document. A Delta whose BaseLength is zero
// (inserts only) is also a Document: the canonical representation of the
// document's content. Delta values are immutable once constructed — every
// method that would mutate returns a new Delta.
type Delta struct {
	Ops []Op
}

// New builds a Delta from a literal op sequence.
func New(ops ...Op) Delta {
	return Delta{Ops: ops}
}

// BaseLength is the sum of the lengths of Retain and Delete ops: the
// length of the document this Delta expects as input.
func (d Delta) BaseLength() int {
	n := 0
	for _, op := range d.Ops {
		switch op.Type {
		case OpRetain, OpDelete:
			n += op.Length()
		}
	}
	return n
}

// TargetLength is the sum of the lengths of Retain, InsertText and
// InsertCode ops: the length of the document this Delta produces.
func (d Delta) TargetLength() int {
	n := 0
	for _, op := range d.Ops {
		switch op.Type {
		case OpRetain, OpInsertText, OpInsertCode:
			n += op.Length()
		}
	}
	return n
}

// IsDocument reports whether d contains only inserts, i.e. is the
// canonical representation of a concrete document value.
func (d Delta) IsDocument() bool {
	return d.BaseLength() == 0
}

// Append returns a Delta with op appended. A zero-length op is a no-op:
// this package never produces or accepts zero-length operations.
func (d Delta) Append(op Op) Delta {
	if op.Length() == 0 {
		return d
	}
	ops := make([]Op, len(d.Ops), len(d.Ops)+1)
	copy(ops, d.Ops)
	return Delta{Ops: append(ops, op)}
}

// Prepend returns a Delta with op inserted before all existing ops.
func (d Delta) Prepend(op Op) Delta {
	if op.Length() == 0 {
		return d
	}
	ops := make([]Op, 0, len(d.Ops)+1)
	ops = append(ops, op)
	ops = append(ops, d.Ops...)
	return Delta{Ops: ops}
}

// Equal compares two Deltas structurally over their operation sequences.
func (d Delta) Equal(other Delta) bool {
	if len(d.Ops) != len(other.Ops) {
		return false
	}
	for i := range d.Ops {
		if !d.Ops[i].Equal(other.Ops[i]) {
			return false
		}
	}
	return true
}
