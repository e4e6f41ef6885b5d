package delta

import "github.com/pkg/errors"

// Compose folds two sequentially-applicable Deltas into one equivalent
// Delta: for any document D, Compose(D, Compose(a, b)) must equal
// Compose(Compose(D, a), b). Requires a.TargetLength() == b.BaseLength();
// a mismatch is reported as ErrIncompatibleDeltas, the one recoverable
// error this package raises. When either side has no ops the other side is
// returned unchanged, before the length check is made.
//
// Grounded on the rule ordering of other_examples'
// shiv248-operational-transformation-go__compose.go, generalized from
// plain Retain/Insert/Delete to the four-case attributed union and to
// attribute-map composition.
func Compose(a, b Delta) (Delta, error) {
	if len(a.Ops) == 0 {
		return b, nil
	}
	if len(b.Ops) == 0 {
		return a, nil
	}
	if a.TargetLength() != b.BaseLength() {
		return Delta{}, errors.Wrapf(ErrIncompatibleDeltas,
			"compose: a.targetLength=%d b.baseLength=%d", a.TargetLength(), b.BaseLength())
	}

	ita := newOpIterator(a.Ops)
	itb := newOpIterator(b.Ops)
	var out []Op

	for ita.HasNext() || itb.HasNext() {
		switch {
		case itb.PeekType() == peekInsert:
			// Right-insert passes through verbatim.
			out = append(out, itb.Next())

		case ita.PeekType() == peekDelete:
			// Left-delete passes through verbatim.
			out = append(out, ita.Next())

		default:
			if !ita.HasNext() || !itb.HasNext() {
				invariantf("delta: compose reached lockstep with an exhausted side")
			}
			n := min(ita.PeekLength(), itb.PeekLength())
			oa := ita.NextN(n)
			ob := itb.NextN(n)

			switch {
			case oa.Type == OpRetain && ob.Type == OpRetain:
				out = append(out, Retain(n, ComposeAttributes(oa.Attrs, ob.Attrs, true)))
			case oa.Type == OpRetain && ob.Type == OpDelete:
				out = append(out, Delete(n))
			case oa.Type == OpInsertText && ob.Type == OpRetain:
				out = append(out, InsertText(oa.Text, ComposeAttributes(oa.Attrs, ob.Attrs, false)))
			case oa.Type == OpInsertCode && ob.Type == OpRetain:
				out = append(out, InsertCode(oa.N, ComposeAttributes(oa.Attrs, ob.Attrs, false)))
			case oa.IsInsert() && ob.Type == OpDelete:
				// Cancel character-for-character: emit nothing.
			default:
				invariantf("delta: compose hit an unreachable op pair %s/%s", oa.Type, ob.Type)
			}
		}
	}

	result := Normalize(Delta{Ops: out})
	if result.TargetLength() != b.TargetLength() {
		invariantf("delta: compose postcondition violated: targetLength=%d want=%d",
			result.TargetLength(), b.TargetLength())
	}
	return result, nil
}
