package broadcast

import (
	"encoding/json"
	"time"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/deltawire"
)

// DocOpEvent is published whenever a session accepts and applies an edit,
// so every other server instance subscribed to the document's topic can
// replay it to its own directly-connected clients.
type DocOpEvent struct {
	DocID     string
	Revision  int
	AuthorID  string
	Ops       delta.Delta
	AppliedAt time.Time
}

// docOpEventWire is the JSON-native shape of a DocOpEvent: Ops crosses the
// wire boundary through deltawire the same way ServerMessage's Op does.
type docOpEventWire struct {
	DocID     string          `json:"docId"`
	Revision  int             `json:"revision"`
	AuthorID  string          `json:"authorId"`
	Ops       json.RawMessage `json:"ops"`
	AppliedAt time.Time       `json:"appliedAt"`
}

func (e DocOpEvent) MarshalJSON() ([]byte, error) {
	ops, err := deltawire.Marshal(e.Ops)
	if err != nil {
		return nil, err
	}
	return json.Marshal(docOpEventWire{
		DocID:     e.DocID,
		Revision:  e.Revision,
		AuthorID:  e.AuthorID,
		Ops:       ops,
		AppliedAt: e.AppliedAt,
	})
}

func (e *DocOpEvent) UnmarshalJSON(b []byte) error {
	var w docOpEventWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ops, err := deltawire.Unmarshal(w.Ops)
	if err != nil {
		return err
	}
	e.DocID = w.DocID
	e.Revision = w.Revision
	e.AuthorID = w.AuthorID
	e.Ops = ops
	e.AppliedAt = w.AppliedAt
	return nil
}
