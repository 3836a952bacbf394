package session

import (
	"encoding/json"

	"github.com/inamate/logicsketch/internal/engine"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/graph"
	"github.com/inamate/logicsketch/internal/simulation"
)

type Message struct {
	Type       string          `json:"type"`
	DocumentID string          `json:"documentId,omitempty"`
	ClientID   string          `json:"clientId,omitempty"`
	UserID     string          `json:"userId,omitempty"`
	Seq        int64           `json:"seq,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

type PresencePayload struct {
	Cursor      *CursorPos `json:"cursor,omitempty"`
	Selection   []string   `json:"selection,omitempty"`
	DisplayName string     `json:"displayName,omitempty"`
}

type CursorPos struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PresenceStatePayload struct {
	Presences map[string]*PresencePayload `json:"presences"`
}

type PresenceJoinPayload struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

type PresenceLeavePayload struct {
	UserID string `json:"userId"`
}

const (
	TypePresenceUpdate = "presence.update"
	TypePresenceState  = "presence.state"
	TypePresenceJoin   = "presence.join"
	TypePresenceLeave  = "presence.leave"
	TypeError          = "error"

	// Connection
	TypeWelcome = "welcome"

	// Simulation
	TypeSimState     = "sim.state"
	TypeSimStart     = "sim.start"
	TypeSimStop      = "sim.stop"
	TypeSimReset     = "sim.reset"
	TypeSignalToggle = "signal.toggle"
	TypeSignalSet    = "signal.set"

	// Hit testing
	TypeSelectPoint = "select.point"
	TypeSelectRect  = "select.rect"
	TypeSelection   = "selection"

	// Document edits
	TypeOpSubmit    = "op.submit"
	TypeOpAck       = "op.ack"
	TypeOpNack      = "op.nack"
	TypeOpBroadcast = "op.broadcast"
)

// WelcomePayload is sent to a client right after it joins a room.
type WelcomePayload struct {
	ClientID string               `json:"clientId"`
	Seq      int64                `json:"seq"`
	Gates    []string             `json:"gates"`
	State    SimStatePayload      `json:"state"`
	Presence PresenceStatePayload `json:"presence"`
}

// SimStatePayload carries node states. Full snapshots list every node;
// per-tick updates list only the nodes that changed.
type SimStatePayload struct {
	Cycle    int64                       `json:"cycle"`
	Running  bool                        `json:"running"`
	Full     bool                        `json:"full,omitempty"`
	States   map[string]simulation.Bool3 `json:"states"`
	Warnings []graph.Warning             `json:"warnings,omitempty"`
	Errors   []string                    `json:"errors,omitempty"`
}

type SignalPayload struct {
	ID    string           `json:"id"`
	Value simulation.Bool3 `json:"value"`
}

// SelectPointPayload asks for the shape and point under a screen position,
// using the sender's own view.
type SelectPointPayload struct {
	X    float64     `json:"x"`
	Y    float64     `json:"y"`
	View engine.View `json:"view"`
}

type SelectRectPayload struct {
	Rect geometry.Rect2 `json:"rect"`
	View engine.View    `json:"view"`
}

// SelectionPayload answers a select request.
type SelectionPayload struct {
	ShapeID string         `json:"shapeId,omitempty"`
	PointID string         `json:"pointId,omitempty"`
	IDs     []string       `json:"ids"`
	Bounds  geometry.Rect2 `json:"bounds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// --- Operation Types ---

// Operation is a document edit submitted by a client.
type Operation struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	ClientSeq int64  `json:"clientSeq"`

	// For point.move
	PointID string  `json:"pointId,omitempty"`
	X       float64 `json:"x,omitempty"`
	Y       float64 `json:"y,omitempty"`

	// For shape.*
	ShapeID string `json:"shapeId,omitempty"`

	// For shape.style
	Style json.RawMessage `json:"style,omitempty"`

	// For shape.property
	Key   string  `json:"key,omitempty"`
	Value *string `json:"value,omitempty"`

	// For shape.create
	Shape    json.RawMessage `json:"shape,omitempty"`
	Points   json.RawMessage `json:"points,omitempty"`
	ParentID string          `json:"parentId,omitempty"`
	Index    *int            `json:"index,omitempty"`

	// For document.rename
	Name string `json:"name,omitempty"`
}

// OperationSubmitPayload is the payload for op.submit messages
type OperationSubmitPayload struct {
	Operation Operation `json:"operation"`
}

// OperationAckPayload is the payload for op.ack messages
type OperationAckPayload struct {
	OperationID     string `json:"operationId"`
	ServerSeq       int64  `json:"serverSeq"`
	ServerTimestamp int64  `json:"serverTimestamp"`
}

// OperationNackPayload is the payload for op.nack messages
type OperationNackPayload struct {
	OperationID string `json:"operationId"`
	Reason      string `json:"reason"`
}

// OperationBroadcastPayload is the payload for op.broadcast messages
type OperationBroadcastPayload struct {
	Operation Operation `json:"operation"`
	UserID    string    `json:"userId"`
	ServerSeq int64     `json:"serverSeq"`
}
