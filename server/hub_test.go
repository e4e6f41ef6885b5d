package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/ot"
	"github.com/collabhq/deltacollab/store"
)

func TestHub_CreateSessionOnJoin(t *testing.T) {
	st := store.NewMemoryStore()
	engine := &ot.JupiterEngine{}
	hub := NewHub(st, engine, nil, nil)
	go hub.Run()

	c := mockClient("c1")
	c.hub = hub
	hub.joinDoc <- joinRequest{client: c, docID: "new-doc"}

	// Wait a bit for the async join to be processed
	time.Sleep(100 * time.Millisecond)

	// Client should receive a doc message
	select {
	case data := <-c.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.Type != MsgDoc {
			t.Errorf("expected doc, got %q", msg.Type)
		}
		if msg.DocID != "new-doc" {
			t.Errorf("docId = %q, want %q", msg.DocID, "new-doc")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}

	// Session should exist
	s := hub.GetSession("new-doc")
	if s == nil {
		t.Error("session not created")
	}
}

func TestHub_JoinExistingDoc(t *testing.T) {
	st := store.NewMemoryStore()
	want := delta.New(delta.InsertText("hello world", nil))
	st.Create(ctx(), "existing", want)
	engine := &ot.JupiterEngine{}
	hub := NewHub(st, engine, nil, nil)
	go hub.Run()

	c := mockClient("c1")
	c.hub = hub
	hub.joinDoc <- joinRequest{client: c, docID: "existing"}

	time.Sleep(100 * time.Millisecond)

	select {
	case data := <-c.send:
		var msg ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		if !msg.Content.Equal(want) {
			t.Errorf("content = %+v, want %+v", msg.Content, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout")
	}
}
