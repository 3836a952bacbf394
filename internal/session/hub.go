// Package session serves live editing sessions over websockets: every open
// document gets a room that runs its circuit in real time, streams node
// states to the connected clients and answers their hit-test queries.
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/engine"
)

// DocumentLoader fetches the latest version of a document.
type DocumentLoader func(ctx context.Context, documentID string) (*document.Document, error)

// DocumentSaver persists an encoded document.
type DocumentSaver func(ctx context.Context, documentID string, data []byte) error

type Hub struct {
	mu         sync.RWMutex
	rooms      map[string]*Room // documentID -> room
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	doneOnce   sync.Once

	load    DocumentLoader
	save    DocumentSaver
	options engine.Options
}

func NewHub(load DocumentLoader, save DocumentSaver, opts engine.Options) *Hub {
	return &Hub{
		rooms:      make(map[string]*Room),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		load:       load,
		save:       save,
		options:    opts,
	}
}

// Run serves joins and leaves until ctx is done, then stops every room.
func (h *Hub) Run(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.Stop()
			return nil
		}
	}
}

// Open returns the room of a document, loading it on first use.
func (h *Hub) Open(ctx context.Context, documentID string) (*Room, error) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	h.mu.RUnlock()
	if ok {
		return room, nil
	}

	doc, err := h.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	room, err = NewRoom(documentID, doc, h.options)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	// Another client may have opened it meanwhile.
	if existing, ok := h.rooms[documentID]; ok {
		return existing, nil
	}
	h.rooms[documentID] = room
	return room, nil
}

// Register hands the client to Run. It returns without joining once Run
// has exited.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Discard drops a room opened for a connection that never joined. Rooms
// that gained clients or were replaced are left alone.
func (h *Hub) Discard(room *Room) {
	h.mu.Lock()
	current, ok := h.rooms[room.documentID]
	orphan := ok && current == room && len(room.clients) == 0
	if orphan {
		delete(h.rooms, room.documentID)
	}
	h.mu.Unlock()

	if orphan {
		room.Stop()
		slog.Debug("discarded unused room", "document", room.documentID)
	}
}

// Stop halts every simulation and saves documents with unsaved edits.
func (h *Hub) Stop() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.RUnlock()

	for _, room := range rooms {
		room.Stop()
		h.persist(room)
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		// The room emptied between Open and Register.
		room = client.Room()
		h.rooms[client.DocumentID] = room
	} else {
		// A newer room may have replaced the one the client opened.
		client.setRoom(room)
	}
	room.clients[client.ClientID] = client
	h.mu.Unlock()

	welcome, _ := json.Marshal(room.welcome(client.ClientID))
	client.Send(&Message{Type: TypeWelcome, DocumentID: client.DocumentID, Payload: welcome})

	joinPayload, _ := json.Marshal(PresenceJoinPayload{
		UserID:      client.UserID,
		DisplayName: client.DisplayName,
	})
	joinMsg := &Message{
		Type:    TypePresenceJoin,
		UserID:  client.UserID,
		Payload: joinPayload,
	}
	h.broadcastToRoom(client.DocumentID, joinMsg, client.ClientID)

	slog.Info("client joined", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.DocumentID]
	if !ok {
		h.mu.Unlock()
		return
	}

	if _, ok := room.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room.clients, client.ClientID)
	client.close()
	room.presence.Remove(client.UserID)

	empty := len(room.clients) == 0
	if empty {
		delete(h.rooms, client.DocumentID)
	}
	h.mu.Unlock()

	if empty {
		room.Stop()
		go h.persist(room)
	}

	leavePayload, _ := json.Marshal(PresenceLeavePayload{
		UserID: client.UserID,
	})
	leaveMsg := &Message{
		Type:    TypePresenceLeave,
		UserID:  client.UserID,
		Payload: leavePayload,
	}
	h.broadcastToRoom(client.DocumentID, leaveMsg, "")

	slog.Info("client left", "user", client.UserID, "document", client.DocumentID)
}

func (h *Hub) persist(room *Room) {
	if h.save == nil {
		return
	}
	data, seq, ok := room.DirtyDocument()
	if !ok {
		return
	}
	if err := h.save(context.Background(), room.documentID, data); err != nil {
		slog.Error("save document", "document", room.documentID, "error", err)
		return
	}
	room.MarkSaved(seq)
	slog.Info("document saved", "document", room.documentID, "seq", seq)
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	room := sender.Room()

	switch msg.Type {
	case TypePresenceUpdate:
		h.handlePresenceUpdate(sender, msg)

	case TypeSimStart:
		id := sender.DocumentID
		if room.Start(func(update SimStatePayload) { h.broadcastState(id, update) }) {
			h.broadcastState(id, room.Snapshot())
		}

	case TypeSimStop:
		if room.Stop() {
			h.broadcastState(sender.DocumentID, room.Snapshot())
		}

	case TypeSimReset:
		snap, err := room.Reset()
		if err != nil {
			sender.SendError(err)
		}
		h.broadcastState(sender.DocumentID, snap)

	case TypeSignalToggle, TypeSignalSet:
		var p SignalPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.SendError(err)
			return
		}
		value := &p.Value
		if msg.Type == TypeSignalToggle {
			value = nil
		}
		update, err := room.SetSignal(p.ID, value)
		if err != nil {
			sender.SendError(err)
			return
		}
		h.broadcastState(sender.DocumentID, update)

	case TypeSelectPoint:
		var p SelectPointPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.SendError(err)
			return
		}
		sel, err := room.SelectPoint(p.X, p.Y, p.View)
		h.replySelection(sender, msg, sel, err)

	case TypeSelectRect:
		var p SelectRectPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			sender.SendError(err)
			return
		}
		sel, err := room.SelectRect(p.Rect, p.View)
		h.replySelection(sender, msg, sel, err)

	case TypeOpSubmit:
		h.handleOperation(sender, msg)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", sender.UserID)
	}
}

func (h *Hub) handlePresenceUpdate(sender *Client, msg *Message) {
	var presence PresencePayload
	if err := json.Unmarshal(msg.Payload, &presence); err != nil {
		slog.Warn("invalid presence payload", "error", err)
		return
	}

	presence.DisplayName = sender.DisplayName
	sender.Room().presence.Update(sender.UserID, &presence)
	h.broadcastPresence(sender, &presence)
}

func (h *Hub) broadcastPresence(sender *Client, presence *PresencePayload) {
	outPayload, _ := json.Marshal(presence)
	outMsg := &Message{
		Type:    TypePresenceUpdate,
		UserID:  sender.UserID,
		Payload: outPayload,
	}
	h.broadcastToRoom(sender.DocumentID, outMsg, sender.ClientID)
}

// replySelection answers the sender and shows the selection to the others.
func (h *Hub) replySelection(sender *Client, req *Message, sel SelectionPayload, err error) {
	if err != nil {
		sender.SendError(err)
		return
	}
	payload, _ := json.Marshal(sel)
	sender.Send(&Message{Type: TypeSelection, Seq: req.Seq, Payload: payload})

	presence := sender.Room().presence.Select(sender.UserID, sender.DisplayName, sel.IDs)
	h.broadcastPresence(sender, presence)
}

func (h *Hub) handleOperation(sender *Client, msg *Message) {
	var submit OperationSubmitPayload
	if err := json.Unmarshal(msg.Payload, &submit); err != nil {
		sender.SendError(err)
		return
	}
	op := submit.Operation

	seq, snap, err := sender.Room().Apply(op)
	if err != nil {
		nack, _ := json.Marshal(OperationNackPayload{OperationID: op.ID, Reason: err.Error()})
		sender.Send(&Message{Type: TypeOpNack, Payload: nack})
		return
	}

	ack, _ := json.Marshal(OperationAckPayload{
		OperationID:     op.ID,
		ServerSeq:       seq,
		ServerTimestamp: GetServerTimestamp(),
	})
	sender.Send(&Message{Type: TypeOpAck, Seq: seq, Payload: ack})

	broadcast, _ := json.Marshal(OperationBroadcastPayload{Operation: op, UserID: sender.UserID, ServerSeq: seq})
	h.broadcastToRoom(sender.DocumentID, &Message{Type: TypeOpBroadcast, UserID: sender.UserID, Seq: seq, Payload: broadcast}, sender.ClientID)

	if snap != nil {
		h.broadcastState(sender.DocumentID, *snap)
	}
}

func (h *Hub) broadcastState(documentID string, state SimStatePayload) {
	payload, err := json.Marshal(state)
	if err != nil {
		slog.Error("marshal simulation state", "error", err)
		return
	}
	h.broadcastToRoom(documentID, &Message{Type: TypeSimState, DocumentID: documentID, Payload: payload}, "")
}

func (h *Hub) broadcastToRoom(documentID string, msg *Message, excludeClientID string) {
	h.mu.RLock()
	room, ok := h.rooms[documentID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	clients := make([]*Client, 0, len(room.clients))
	for _, c := range room.clients {
		if c.ClientID != excludeClientID {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Send(msg)
	}
}
