package server

import (
	"context"
	"sync"

	"github.com/apex/log"

	"github.com/collabhq/deltacollab/broadcast"
	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/ot"
	"github.com/collabhq/deltacollab/presence"
	"github.com/collabhq/deltacollab/store"
)

type joinRequest struct {
	client *Client
	docID  string
}

// Hub manages document sessions and routes clients to the right session.
type Hub struct {
	store      store.DocumentStore
	engine     ot.Engine
	presence   *presence.Cache
	dispatcher *broadcast.Dispatcher
	sessions   map[string]*Session
	mu         sync.RWMutex

	joinDoc chan joinRequest
}

// NewHub creates a Hub. presence and dispatcher may be nil, disabling
// cross-instance presence tracking and event fan-out respectively (a
// single-instance dev deployment).
func NewHub(st store.DocumentStore, engine ot.Engine, pc *presence.Cache, dispatcher *broadcast.Dispatcher) *Hub {
	return &Hub{
		store:      st,
		engine:     engine,
		presence:   pc,
		dispatcher: dispatcher,
		sessions:   make(map[string]*Session),
		joinDoc:    make(chan joinRequest, 64),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for req := range h.joinDoc {
		h.handleJoinDoc(req)
	}
}

func (h *Hub) handleJoinDoc(req joinRequest) {
	h.mu.Lock()
	s, ok := h.sessions[req.docID]
	if !ok {
		ctx := context.Background()
		if _, err := h.store.Get(ctx, req.docID); err != nil {
			if err := h.store.Create(ctx, req.docID, delta.Delta{}); err != nil {
				log.WithField("docID", req.docID).WithError(err).Error("hub: failed to create document")
				h.mu.Unlock()
				req.client.sendError("failed to create document")
				return
			}
		}

		info, err := h.store.Get(ctx, req.docID)
		if err != nil {
			log.WithField("docID", req.docID).WithError(err).Error("hub: failed to load document")
			h.mu.Unlock()
			req.client.sendError("failed to load document")
			return
		}
		history, err := h.store.GetOperations(ctx, req.docID, 0)
		if err != nil {
			log.WithField("docID", req.docID).WithError(err).Error("hub: failed to load history")
			h.mu.Unlock()
			req.client.sendError("failed to load document history")
			return
		}

		s = newSession(req.docID, info.Content, info.Version, history, h.engine, h.store, h.presence, h.dispatcher)
		h.sessions[req.docID] = s
		go s.Run()
	}
	h.mu.Unlock()

	s.join <- req.client
}

// GetSession returns the session for a document, if active.
func (h *Hub) GetSession(docID string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[docID]
}
