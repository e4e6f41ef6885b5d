package ot

import (
	"github.com/pkg/errors"

	"github.com/collabhq/deltacollab/delta"
)

// Document represents a collaborative document with its full edit history.
// Content is always a Document-shaped Delta (BaseLength 0): the canonical
// representation of the text plus its attributes.
type Document struct {
	Content delta.Delta
	Version int
	History []delta.Delta
}

// NewDocument creates a new document with the given initial content.
func NewDocument(content delta.Delta) *Document {
	return &Document{Content: content}
}

// Apply folds edit into the document's content, appending it to history.
// Applying is composing: the document is itself a Delta, and Compose(doc,
// edit) is exactly what advances it.
func (d *Document) Apply(edit delta.Delta) error {
	if isNoop(edit) {
		return nil
	}
	result, err := delta.Compose(d.Content, edit)
	if err != nil {
		return errors.Wrapf(err, "apply to document v%d", d.Version)
	}
	d.Content = result
	d.Version++
	d.History = append(d.History, edit)
	return nil
}

// isNoop reports whether edit is a pure, unattributed retain — it changes
// neither the document's text nor its attributes.
func isNoop(edit delta.Delta) bool {
	for _, op := range edit.Ops {
		if op.Type != delta.OpRetain || len(op.Attrs) > 0 {
			return false
		}
	}
	return true
}
