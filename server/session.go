package server

import (
	"context"
	"time"

	"github.com/apex/log"

	"github.com/collabhq/deltacollab/broadcast"
	"github.com/collabhq/deltacollab/delta"
	"github.com/collabhq/deltacollab/ot"
	"github.com/collabhq/deltacollab/presence"
	"github.com/collabhq/deltacollab/store"
)

// presenceTTL is the lifetime given to a collaborator's presence entry,
// refreshed on each join, and to their cached cursor, refreshed on each
// applied op.
const presenceTTL = 30 * time.Second

type opMessage struct {
	client *Client
	msg    ClientMessage
}

// Session manages collaboration for a single document.
// All operations are serialized through a single goroutine.
type Session struct {
	docID      string
	doc        *ot.Document
	engine     ot.Engine
	store      store.DocumentStore
	presence   *presence.Cache
	dispatcher *broadcast.Dispatcher
	clients    map[*Client]bool
	cursors    map[*Client]int

	incoming chan opMessage
	join     chan *Client
	leave    chan *Client
	stop     chan struct{}
}

func newSession(docID string, content delta.Delta, version int, history []delta.Delta, engine ot.Engine, st store.DocumentStore, pc *presence.Cache, dispatcher *broadcast.Dispatcher) *Session {
	doc := ot.NewDocument(content)
	doc.Version = version
	doc.History = history
	return &Session{
		docID:      docID,
		doc:        doc,
		engine:     engine,
		store:      st,
		presence:   pc,
		dispatcher: dispatcher,
		clients:    make(map[*Client]bool),
		cursors:    make(map[*Client]int),
		incoming:   make(chan opMessage, 64),
		join:       make(chan *Client, 16),
		leave:      make(chan *Client, 16),
		stop:       make(chan struct{}),
	}
}

// Run is the session's main loop. It serializes all operations.
func (s *Session) Run() {
	for {
		select {
		case c := <-s.join:
			s.handleJoin(c)
		case c := <-s.leave:
			s.handleLeave(c)
		case om := <-s.incoming:
			s.handleOp(om)
		case <-s.stop:
			return
		}
	}
}

func (s *Session) handleJoin(c *Client) {
	s.clients[c] = true
	s.cursors[c] = 0
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	if s.presence != nil {
		ctx := context.Background()
		if err := s.presence.Join(ctx, s.docID, c.ID, c.Name, presenceTTL); err != nil {
			log.WithField("docID", s.docID).WithField("clientID", c.ID).WithError(err).
				Warn("session: failed to record presence")
		}
	}

	// Send current document state to the joining client.
	clients := s.clientInfos()
	c.sendMsg(ServerMessage{
		Type:     MsgDoc,
		DocID:    s.docID,
		Content:  s.doc.Content,
		Revision: s.doc.Version,
		Clients:  clients,
	})

	// Notify other clients about the new user.
	for other := range s.clients {
		if other != c {
			other.sendMsg(ServerMessage{
				Type:     MsgJoin,
				ClientID: c.ID,
				Name:     c.Name,
				Color:    c.Color,
			})
		}
	}
}

func (s *Session) handleLeave(c *Client) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	delete(s.cursors, c)
	c.mu.Lock()
	c.session = nil
	c.mu.Unlock()
	close(c.send)

	if s.presence != nil {
		ctx := context.Background()
		if err := s.presence.Leave(ctx, s.docID, c.ID); err != nil {
			log.WithField("docID", s.docID).WithField("clientID", c.ID).WithError(err).
				Warn("session: failed to clear presence")
		}
	}

	// Notify others.
	for other := range s.clients {
		other.sendMsg(ServerMessage{
			Type:     MsgLeave,
			ClientID: c.ID,
		})
	}
}

func (s *Session) handleOp(om opMessage) {
	// Transform the client's operation against server history.
	transformed, err := s.engine.TransformIncoming(om.msg.Op, om.msg.Revision, s.doc.History)
	if err != nil {
		log.WithField("docID", s.docID).WithError(err).Error("session: transform error")
		om.client.sendError("transform error: " + err.Error())
		return
	}

	// Apply to the document.
	if err := s.doc.Apply(transformed); err != nil {
		log.WithField("docID", s.docID).WithError(err).Error("session: apply error")
		om.client.sendError("apply error: " + err.Error())
		return
	}

	// Keep every connected collaborator's caret correct across the edit
	// that was just applied, ourselves included if the client reported one.
	if om.msg.Cursor != nil {
		s.cursors[om.client] = delta.TransformPosition(transformed, *om.msg.Cursor, true)
	}
	for c, pos := range s.cursors {
		if c == om.client {
			continue
		}
		s.cursors[c] = delta.TransformPosition(transformed, pos, false)
	}
	if s.presence != nil {
		ctx := context.Background()
		for c, pos := range s.cursors {
			if err := s.presence.SetCursor(ctx, s.docID, c.ID, pos, presenceTTL); err != nil {
				log.WithField("docID", s.docID).WithField("clientID", c.ID).WithError(err).
					Warn("session: failed to persist cursor")
			}
		}
	}

	// Persist: the store composes transformed onto its own copy of the
	// content, so this doubles as a cross-check against s.doc's in-memory
	// compose above — a mismatch means the store and this session have
	// diverged.
	ctx := context.Background()
	if storedContent, storedVersion, err := s.store.ApplyOperation(ctx, s.docID, transformed); err != nil {
		log.WithField("docID", s.docID).WithError(err).Error("session: failed to persist operation")
	} else if storedVersion != s.doc.Version || !storedContent.Equal(s.doc.Content) {
		log.WithField("docID", s.docID).WithField("storedVersion", storedVersion).
			WithField("docVersion", s.doc.Version).Error("session: store content diverged from in-memory document")
	}

	// Ack the sender.
	om.client.sendMsg(ServerMessage{
		Type:     MsgAck,
		Revision: s.doc.Version,
	})

	// Broadcast to other directly-connected clients.
	for c := range s.clients {
		if c != om.client {
			pos := s.cursors[c]
			c.sendMsg(ServerMessage{
				Type:     MsgOp,
				DocID:    s.docID,
				Revision: s.doc.Version,
				Op:       transformed,
				ClientID: om.client.ID,
				Cursor:   &pos,
			})
		}
	}

	// Fan the accepted edit out to other server instances.
	if s.dispatcher != nil {
		evt := broadcast.DocOpEvent{
			DocID:     s.docID,
			Revision:  s.doc.Version,
			AuthorID:  om.client.ID,
			Ops:       transformed,
			AppliedAt: time.Now(),
		}
		if err := s.dispatcher.Enqueue(ctx, evt); err != nil {
			log.WithField("docID", s.docID).WithError(err).Warn("session: failed to enqueue broadcast event")
		}
	}
}

func (s *Session) clientInfos() []ClientInfo {
	infos := make([]ClientInfo, 0, len(s.clients))
	for c := range s.clients {
		infos = append(infos, c.Info())
	}
	return infos
}
