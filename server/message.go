package server

import (
	"encoding/json"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/deltawire"
)

// Message types exchanged over WebSocket.
const (
	MsgJoin  = "join"
	MsgLeave = "leave"
	MsgOp    = "op"
	MsgAck   = "ack"
	MsgDoc   = "doc"
	MsgError = "error"
)

// ClientMessage is a message from client to server.
type ClientMessage struct {
	Type     string
	DocID    string
	Revision int
	Op       delta.Delta
	Cursor   *int
}

// ServerMessage is a message from server to client.
type ServerMessage struct {
	Type     string
	DocID    string
	Content  delta.Delta
	Revision int
	Op       delta.Delta
	ClientID string
	Name     string
	Color    string
	Message  string
	Cursor   *int
	Clients  []ClientInfo
}

// ClientInfo describes a connected user.
type ClientInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// The wire-shape structs carry Op/Content across the JSON boundary through
// deltawire, since delta.Delta itself never implements json.Marshaler.

type clientMessageWire struct {
	Type     string          `json:"type"`
	DocID    string          `json:"docId,omitempty"`
	Revision int             `json:"revision"`
	Op       json.RawMessage `json:"op,omitempty"`
	Cursor   *int            `json:"cursor,omitempty"`
}

type serverMessageWire struct {
	Type     string          `json:"type"`
	DocID    string          `json:"docId,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Revision int             `json:"revision"`
	Op       json.RawMessage `json:"op,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Color    string          `json:"color,omitempty"`
	Message  string          `json:"message,omitempty"`
	Cursor   *int            `json:"cursor,omitempty"`
	Clients  []ClientInfo    `json:"clients,omitempty"`
}

func (m ClientMessage) MarshalJSON() ([]byte, error) {
	op, err := deltawire.Marshal(m.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(clientMessageWire{
		Type:     m.Type,
		DocID:    m.DocID,
		Revision: m.Revision,
		Op:       op,
		Cursor:   m.Cursor,
	})
}

func (m *ClientMessage) UnmarshalJSON(b []byte) error {
	var w clientMessageWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	op := delta.Delta{}
	if len(w.Op) > 0 {
		var err error
		op, err = deltawire.Unmarshal(w.Op)
		if err != nil {
			return err
		}
	}
	m.Type = w.Type
	m.DocID = w.DocID
	m.Revision = w.Revision
	m.Op = op
	m.Cursor = w.Cursor
	return nil
}

func (m *ServerMessage) UnmarshalJSON(b []byte) error {
	var w serverMessageWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	content, err := deltawire.Unmarshal(w.Content)
	if err != nil {
		return err
	}
	op, err := deltawire.Unmarshal(w.Op)
	*m = ServerMessage{Type: w.Type, DocID: w.DocID, Content: content, Revision: w.Revision, Op: op,
		ClientID: w.ClientID, Name: w.Name, Color: w.Color, Message: w.Message, Cursor: w.Cursor, Clients: w.Clients}
	return err
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := m.MarshalJSON()
	return b
}

func (m ServerMessage) MarshalJSON() ([]byte, error) {
	content, err := deltawire.Marshal(m.Content)
	if err != nil {
		return nil, err
	}
	op, err := deltawire.Marshal(m.Op)
	if err != nil {
		return nil, err
	}
	return json.Marshal(serverMessageWire{
		Type:     m.Type,
		DocID:    m.DocID,
		Content:  content,
		Revision: m.Revision,
		Op:       op,
		ClientID: m.ClientID,
		Name:     m.Name,
		Color:    m.Color,
		Message:  m.Message,
		Cursor:   m.Cursor,
		Clients:  m.Clients,
	})
}
