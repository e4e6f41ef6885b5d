package delta

// TransformPosition adjusts a caret index p against an edit d that has
// just been applied, so a collaborator's remote caret stays correct.
// priority breaks ties the same way Transform's does: when an insertion
// happens exactly at the caret, priority=true means the caret yields to it
// (stays put) unless the insertion is strictly before the caret already.
//
// New relative to the teacher, which tracks no cursor state; the concrete
// caller is server.Session's handleOp, which stores the adjusted carets in
// presence.Cache (see SPEC_FULL.md §4.5).
func TransformPosition(d Delta, p int, priority bool) int {
	index := p
	offset := 0
	for _, op := range d.Ops {
		if offset > p {
			break
		}
		switch op.Type {
		case OpDelete:
			index -= min(op.N, index-offset)
		case OpInsertText, OpInsertCode:
			length := op.Length()
			if offset < p || !priority {
				index += length
				offset += length
			}
		case OpRetain:
			offset += op.N
		}
	}
	return index
}
