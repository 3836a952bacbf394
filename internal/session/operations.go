package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/inamate/logicsketch/internal/document"
)

var (
	ErrUnknownOperation = errors.New("unknown operation type")
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("already exists")
)

// DocumentState holds the authoritative document of a room. It is not
// locked itself; the owning room serializes access.
type DocumentState struct {
	doc       *document.Document
	serverSeq int64
	opLog     []Operation
	dirty     bool
}

// NewDocumentState creates a new document state from an initial document
func NewDocumentState(doc *document.Document) *DocumentState {
	return &DocumentState{
		doc:   doc,
		opLog: make([]Operation, 0),
	}
}

func (ds *DocumentState) Document() *document.Document { return ds.doc }

func (ds *DocumentState) Seq() int64 { return ds.serverSeq }

// Dirty reports whether edits were applied since the last MarkSaved.
func (ds *DocumentState) Dirty() bool { return ds.dirty }

func (ds *DocumentState) MarkSaved() { ds.dirty = false }

// ApplyOperation applies an operation and returns the new server sequence.
// rewired is true when the edit may change the circuit, so the simulation
// must be recompiled rather than just re-hit-tested.
func (ds *DocumentState) ApplyOperation(op Operation) (seq int64, rewired bool, err error) {
	switch op.Type {
	case "point.move":
		err = ds.applyMove(op)
	case "shape.style":
		err = ds.applyStyle(op)
	case "shape.property":
		rewired = true
		err = ds.applyProperty(op)
	case "shape.create":
		rewired = true
		err = ds.applyCreate(op)
	case "shape.delete":
		rewired = true
		err = ds.applyDelete(op)
	case "document.rename":
		ds.doc.Name = op.Name
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownOperation, op.Type)
	}
	if err != nil {
		return 0, false, err
	}

	ds.serverSeq++
	ds.opLog = append(ds.opLog, op)
	ds.doc.Version++
	ds.doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	ds.dirty = true
	return ds.serverSeq, rewired, nil
}

func (ds *DocumentState) applyMove(op Operation) error {
	p, ok := ds.doc.Points[op.PointID]
	if !ok {
		return fmt.Errorf("point %s: %w", op.PointID, ErrNotFound)
	}
	p.X = op.X
	p.Y = op.Y
	ds.doc.Points[op.PointID] = p
	return nil
}

func (ds *DocumentState) applyStyle(op Operation) error {
	s, ok := ds.doc.Shapes[op.ShapeID]
	if !ok {
		return fmt.Errorf("shape %s: %w", op.ShapeID, ErrNotFound)
	}

	var changes map[string]interface{}
	if err := json.Unmarshal(op.Style, &changes); err != nil {
		return fmt.Errorf("invalid style: %w", err)
	}

	if v, ok := changes["fill"].(string); ok {
		s.Style.Fill = v
	}
	if v, ok := changes["stroke"].(string); ok {
		s.Style.Stroke = v
	}
	if v, ok := changes["strokeWidth"].(float64); ok {
		s.Style.StrokeWidth = v
	}

	ds.doc.Shapes[op.ShapeID] = s
	return nil
}

// applyProperty sets a shape property, or removes it when Value is nil.
func (ds *DocumentState) applyProperty(op Operation) error {
	s, ok := ds.doc.Shapes[op.ShapeID]
	if !ok {
		return fmt.Errorf("shape %s: %w", op.ShapeID, ErrNotFound)
	}
	if op.Key == "" {
		return errors.New("property key is required")
	}

	props := make(map[string]string, len(s.Properties)+1)
	for k, v := range s.Properties {
		props[k] = v
	}
	if op.Value == nil {
		delete(props, op.Key)
	} else {
		props[op.Key] = *op.Value
	}
	s.Properties = props

	ds.doc.Shapes[op.ShapeID] = s
	return nil
}

// applyCreate adds a shape with its new points, either at the top level or
// into a parent group.
func (ds *DocumentState) applyCreate(op Operation) error {
	var s document.Shape
	if err := json.Unmarshal(op.Shape, &s); err != nil {
		return fmt.Errorf("invalid shape: %w", err)
	}
	if s.ID == "" {
		return errors.New("shape id is required")
	}
	if _, ok := ds.doc.Shapes[s.ID]; ok {
		return fmt.Errorf("shape %s: %w", s.ID, ErrDuplicate)
	}
	var points []document.Point
	if len(op.Points) > 0 {
		if err := json.Unmarshal(op.Points, &points); err != nil {
			return fmt.Errorf("invalid points: %w", err)
		}
	}

	var parent document.Shape
	if op.ParentID != "" {
		var ok bool
		if parent, ok = ds.doc.Shapes[op.ParentID]; !ok {
			return fmt.Errorf("parent %s: %w", op.ParentID, ErrNotFound)
		}
	}

	known := func(id string) bool {
		if _, ok := ds.doc.Points[id]; ok {
			return true
		}
		return slices.ContainsFunc(points, func(p document.Point) bool { return p.ID == id })
	}
	for _, pid := range s.Points {
		if !known(pid) {
			return fmt.Errorf("%w: point %s", document.ErrDanglingReference, pid)
		}
	}
	for _, c := range s.Connectors {
		if !known(c.PointID) {
			return fmt.Errorf("%w: point %s", document.ErrDanglingReference, c.PointID)
		}
	}
	for _, cid := range s.Children {
		if _, ok := ds.doc.Shapes[cid]; !ok {
			return fmt.Errorf("%w: shape %s", document.ErrDanglingReference, cid)
		}
	}

	for _, p := range points {
		ds.doc.AddPoint(p)
	}

	if op.ParentID == "" {
		ds.doc.Layers = insertAt(ds.doc.Layers, op.Index, s.ID)
		ds.doc.Shapes[s.ID] = s
		return nil
	}

	ds.doc.Shapes[s.ID] = s
	parent.Children = insertAt(parent.Children, op.Index, s.ID)
	ds.doc.Shapes[op.ParentID] = parent
	return nil
}

// applyDelete removes a shape and every reference to it. Its points are kept
// because other shapes may share them.
func (ds *DocumentState) applyDelete(op Operation) error {
	if _, ok := ds.doc.Shapes[op.ShapeID]; !ok {
		return fmt.Errorf("shape %s: %w", op.ShapeID, ErrNotFound)
	}

	delete(ds.doc.Shapes, op.ShapeID)
	ds.doc.Layers = slices.DeleteFunc(ds.doc.Layers, func(id string) bool { return id == op.ShapeID })
	for id, s := range ds.doc.Shapes {
		if slices.Contains(s.Children, op.ShapeID) {
			s.Children = slices.DeleteFunc(slices.Clone(s.Children), func(c string) bool { return c == op.ShapeID })
			ds.doc.Shapes[id] = s
		}
	}
	return nil
}

func insertAt(ids []string, index *int, id string) []string {
	if index != nil && *index >= 0 && *index <= len(ids) {
		return slices.Insert(ids, *index, id)
	}
	return append(ids, id)
}

// GetServerTimestamp returns the current server timestamp
func GetServerTimestamp() int64 {
	return time.Now().UnixMilli()
}
