package delta

// Transform rewrites o — a Delta made against the same base document as t —
// so that it can be applied after t and reach the same merged document
// t's side reaches. priority breaks ties when both sides insert at the
// same position: true means t wins (t is the "earlier" edit from the
// caller's point of view).
//
// Convergence: Compose(t, Transform(t, o, false)) must equal
// Compose(o, Transform(o, t, true)).
//
// Grounded on the teacher's ot/transform.go Transform (insert-passthrough
// rules, lockstep retain/delete rules), generalized from the teacher's
// string-comparison insert tie-break to the caller-supplied priority flag
// and to attribute-aware Retain/Retain transform.
func Transform(t, o Delta, priority bool) Delta {
	itT := newOpIterator(t.Ops)
	itO := newOpIterator(o.Ops)
	var out []Op

	for itT.HasNext() || itO.HasNext() {
		switch {
		case itT.PeekType() == peekInsert && (priority || itO.PeekType() != peekInsert):
			// t's insert shifts o's position forward; o must retain past it.
			op := itT.Next()
			out = append(out, Retain(op.Length(), nil))

		case itO.PeekType() == peekInsert:
			out = append(out, itO.Next())

		default:
			if !itT.HasNext() || !itO.HasNext() {
				invariantf("delta: transform reached lockstep with an exhausted side")
			}
			n := min(itT.PeekLength(), itO.PeekLength())
			a := itT.NextN(n)
			b := itO.NextN(n)

			switch {
			case a.Type == OpDelete:
				// t already deleted these characters; o's view of them is void.
			case b.Type == OpDelete:
				out = append(out, Delete(n))
			case a.Type == OpRetain && b.Type == OpRetain:
				out = append(out, Retain(n, TransformAttributes(a.Attrs, b.Attrs, priority)))
			default:
				invariantf("delta: transform hit an unreachable op pair %s/%s", a.Type, b.Type)
			}
		}
	}

	return Normalize(Delta{Ops: out})
}
