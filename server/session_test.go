package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/ot"
	"github.com/collabhq/deltacollab/store"
)

func ctx() context.Context { return context.Background() }

// mockClient creates a client without a real WebSocket connection, for testing.
func mockClient(id string) *Client {
	return &Client{
		ID:    id,
		Name:  "Test " + id,
		Color: "#000000",
		send:  make(chan []byte, 256),
	}
}

// recvMsg reads one message from a mock client's send channel with timeout.
func recvMsg(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
		return ServerMessage{}
	}
}

func newTestSession(docID string, content delta.Delta, st store.DocumentStore) *Session {
	engine := &ot.JupiterEngine{}
	return newSession(docID, content, 0, nil, engine, st, nil, nil)
}

func TestSession_JoinAndReceiveDoc(t *testing.T) {
	st := store.NewMemoryStore()
	hello := delta.New(delta.InsertText("hello", nil))
	st.Create(ctx(), "doc1", hello)
	s := newTestSession("doc1", hello, st)
	go s.Run()
	defer close(s.stop)

	c := mockClient("c1")
	s.join <- c
	msg := recvMsg(t, c)

	if msg.Type != MsgDoc {
		t.Fatalf("expected doc message, got %q", msg.Type)
	}
	if !msg.Content.Equal(hello) {
		t.Errorf("content = %+v, want %+v", msg.Content, hello)
	}
	if msg.Revision != 0 {
		t.Errorf("revision = %d, want 0", msg.Revision)
	}
}

func TestSession_OpTransformAndBroadcast(t *testing.T) {
	st := store.NewMemoryStore()
	abc := delta.New(delta.InsertText("abc", nil))
	st.Create(ctx(), "doc1", abc)
	s := newTestSession("doc1", abc, st)
	go s.Run()
	defer close(s.stop)

	c1 := mockClient("c1")
	c2 := mockClient("c2")
	s.join <- c1
	s.join <- c2
	recvMsg(t, c1) // doc
	recvMsg(t, c2) // doc
	recvMsg(t, c1) // c2 join notification

	// c1 sends an insert at position 0
	op := delta.New(delta.InsertText("X", nil), delta.Retain(3, nil))
	s.incoming <- opMessage{client: c1, msg: ClientMessage{Type: MsgOp, DocID: "doc1", Revision: 0, Op: op}}

	// c1 should get ack
	ack := recvMsg(t, c1)
	if ack.Type != MsgAck {
		t.Fatalf("expected ack, got %q", ack.Type)
	}
	if ack.Revision != 1 {
		t.Errorf("ack revision = %d, want 1", ack.Revision)
	}

	// c2 should get the op
	bcast := recvMsg(t, c2)
	if bcast.Type != MsgOp {
		t.Fatalf("expected op, got %q", bcast.Type)
	}
	if bcast.Revision != 1 {
		t.Errorf("broadcast revision = %d, want 1", bcast.Revision)
	}
	if bcast.ClientID != "c1" {
		t.Errorf("broadcast clientId = %q, want %q", bcast.ClientID, "c1")
	}

	// Verify document state
	want := delta.New(delta.InsertText("Xabc", nil))
	if !s.doc.Content.Equal(want) {
		t.Errorf("doc content = %+v, want %+v", s.doc.Content, want)
	}
}

func TestSession_ConcurrentOps(t *testing.T) {
	st := store.NewMemoryStore()
	abc := delta.New(delta.InsertText("abc", nil))
	st.Create(ctx(), "doc1", abc)
	s := newTestSession("doc1", abc, st)
	go s.Run()
	defer close(s.stop)

	c1 := mockClient("c1")
	c2 := mockClient("c2")
	s.join <- c1
	s.join <- c2
	recvMsg(t, c1) // doc
	recvMsg(t, c2) // doc
	recvMsg(t, c1) // c2 join notification

	// Both at revision 0:
	// c1 inserts "X" at pos 0: "Xabc"
	// c2 inserts "Y" at pos 3: "abcY"
	s.incoming <- opMessage{
		client: c1,
		msg: ClientMessage{Type: MsgOp, DocID: "doc1", Revision: 0,
			Op: delta.New(delta.InsertText("X", nil), delta.Retain(3, nil))},
	}
	recvMsg(t, c1) // ack
	recvMsg(t, c2) // broadcast

	s.incoming <- opMessage{
		client: c2,
		msg: ClientMessage{Type: MsgOp, DocID: "doc1", Revision: 0,
			Op: delta.New(delta.Retain(3, nil), delta.InsertText("Y", nil))},
	}
	recvMsg(t, c2) // ack
	recvMsg(t, c1) // broadcast

	// After both ops, doc should be "XabcY"
	want := delta.New(delta.InsertText("XabcY", nil))
	if !s.doc.Content.Equal(want) {
		t.Errorf("doc content = %+v, want %+v", s.doc.Content, want)
	}
}

func TestSession_LeaveNotification(t *testing.T) {
	st := store.NewMemoryStore()
	st.Create(ctx(), "doc1", delta.Delta{})
	s := newTestSession("doc1", delta.Delta{}, st)
	go s.Run()
	defer close(s.stop)

	c1 := mockClient("c1")
	c2 := mockClient("c2")
	s.join <- c1
	s.join <- c2
	recvMsg(t, c1) // doc
	recvMsg(t, c2) // doc
	recvMsg(t, c1) // c2 join

	s.leave <- c2
	msg := recvMsg(t, c1)
	if msg.Type != MsgLeave {
		t.Fatalf("expected leave, got %q", msg.Type)
	}
	if msg.ClientID != "c2" {
		t.Errorf("leave clientId = %q, want %q", msg.ClientID, "c2")
	}
}
