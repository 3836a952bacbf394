// Package diagram serves stored documents over HTTP: ownership and
// membership, snapshots, and one-shot engine queries against the latest
// snapshot.
package diagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/engine"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/graph"
	"github.com/inamate/logicsketch/internal/simulation"
	"github.com/inamate/logicsketch/internal/store"
	"github.com/inamate/logicsketch/internal/typeid"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrForbidden         = errors.New("forbidden")
	ErrNotMember         = errors.New("not a document member")
	ErrUserNotFound      = errors.New("user not found")
	ErrCannotRemoveOwner = errors.New("cannot remove document owner")
	ErrInvalidDocument   = errors.New("invalid document")
	ErrTooManyTicks      = errors.New("too many ticks")
)

// PlaygroundID is the shared document anyone may open without an account.
// It starts as the sample latch and is never persisted.
const PlaygroundID = "doc_playground"

// Store is the persistence the service needs. *store.Queries implements it.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateDocument(ctx context.Context, id, name, ownerID string) (store.Document, error)
	GetDocument(ctx context.Context, id string) (store.Document, error)
	ListDocumentsForUser(ctx context.Context, userID string) ([]store.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	AddDocumentMember(ctx context.Context, documentID, userID string, role store.Role) error
	GetDocumentMember(ctx context.Context, documentID, userID string) (store.Member, error)
	ListDocumentMembers(ctx context.Context, documentID string) ([]store.Member, error)
	RemoveDocumentMember(ctx context.Context, documentID, userID string) error
	CreateSnapshot(ctx context.Context, s store.Snapshot) (store.Snapshot, error)
	GetLatestSnapshot(ctx context.Context, documentID string) (store.Snapshot, error)
}

// Options configures the engines the service builds per request.
type Options struct {
	Resolution int64
	HitRadius  float64
	MaxTicks   int
}

type Service struct {
	store      Store
	opts       Options
	playground []byte
}

func NewService(s Store, opts Options) *Service {
	if opts.MaxTicks <= 0 {
		opts.MaxTicks = 10000
	}
	sample := document.NewSampleDocument()
	sample.ID = PlaygroundID
	playground, _ := json.Marshal(sample)
	return &Service{store: s, opts: opts, playground: playground}
}

type Diagram struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Member struct {
	UserID      string `json:"userId"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Diagram, error) {
	docID := typeid.NewDocumentID()

	dbDoc, err := s.store.CreateDocument(ctx, docID, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.store.AddDocumentMember(ctx, docID, ownerID, store.RoleOwner); err != nil {
		return nil, fmt.Errorf("add owner as member: %w", err)
	}

	empty := document.NewEmptyDocument(docID, name)
	now := time.Now().UTC().Format(time.RFC3339)
	empty.CreatedAt, empty.UpdatedAt = now, now
	docJSON, err := json.Marshal(empty)
	if err != nil {
		return nil, fmt.Errorf("marshal empty document: %w", err)
	}

	_, err = s.store.CreateSnapshot(ctx, store.Snapshot{
		ID:         typeid.NewSnapshotID(),
		DocumentID: docID,
		Version:    1,
		Document:   docJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create initial snapshot: %w", err)
	}

	return toDiagram(dbDoc), nil
}

func (s *Service) Get(ctx context.Context, docID, userID string) (*Diagram, error) {
	if err := s.checkMembership(ctx, docID, userID); err != nil {
		return nil, err
	}
	dbDoc, err := s.getDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	return toDiagram(dbDoc), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Diagram, error) {
	dbDocs, err := s.store.ListDocumentsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	diagrams := make([]Diagram, len(dbDocs))
	for i, d := range dbDocs {
		diagrams[i] = *toDiagram(d)
	}
	return diagrams, nil
}

func (s *Service) Delete(ctx context.Context, docID, userID string) error {
	if err := s.checkOwner(ctx, docID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *Service) InviteByEmail(ctx context.Context, docID, ownerID, inviteeEmail string) error {
	if err := s.checkOwner(ctx, docID, ownerID); err != nil {
		return err
	}

	invitee, err := s.store.GetUserByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	err = s.store.AddDocumentMember(ctx, docID, invitee.ID, store.RoleEditor)
	if errors.Is(err, store.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *Service) ListMembers(ctx context.Context, docID, userID string) ([]Member, error) {
	if err := s.checkMembership(ctx, docID, userID); err != nil {
		return nil, err
	}

	dbMembers, err := s.store.ListDocumentMembers(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	members := make([]Member, len(dbMembers))
	for i, m := range dbMembers {
		members[i] = Member{
			UserID:      m.UserID,
			Role:        string(m.Role),
			DisplayName: m.DisplayName,
			Email:       m.Email,
		}
	}
	return members, nil
}

func (s *Service) RemoveMember(ctx context.Context, docID, ownerID, targetUserID string) error {
	if err := s.checkOwner(ctx, docID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return ErrCannotRemoveOwner
	}
	if err := s.store.RemoveDocumentMember(ctx, docID, targetUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// IsMember reports whether userID may open docID.
func (s *Service) IsMember(ctx context.Context, docID, userID string) error {
	return s.checkMembership(ctx, docID, userID)
}

func (s *Service) GetLatestSnapshot(ctx context.Context, docID, userID string) (json.RawMessage, error) {
	if err := s.checkMembership(ctx, docID, userID); err != nil {
		return nil, err
	}
	snap, err := s.store.GetLatestSnapshot(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Document, nil
}

// SaveSnapshot validates data as a document and stores it as the next
// version.
func (s *Service) SaveSnapshot(ctx context.Context, docID, userID string, data []byte) (int32, error) {
	if err := s.checkMembership(ctx, docID, userID); err != nil {
		return 0, err
	}
	if _, err := document.Parse(data); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return s.saveVersion(ctx, docID, data)
}

// LoadDocument reads the latest snapshot of a document for a live session.
func (s *Service) LoadDocument(ctx context.Context, docID string) (*document.Document, error) {
	if docID == PlaygroundID {
		return document.Parse(s.playground)
	}
	snap, err := s.store.GetLatestSnapshot(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return document.Parse(snap.Document)
}

// SaveDocument persists a live session's document. The playground is
// discarded.
func (s *Service) SaveDocument(ctx context.Context, docID string, data []byte) error {
	if docID == PlaygroundID {
		return nil
	}
	_, err := s.saveVersion(ctx, docID, data)
	return err
}

func (s *Service) saveVersion(ctx context.Context, docID string, data []byte) (int32, error) {
	next := int32(1)
	current, err := s.store.GetLatestSnapshot(ctx, docID)
	switch {
	case err == nil:
		next = current.Version + 1
	case !errors.Is(err, store.ErrNotFound):
		return 0, fmt.Errorf("get snapshot: %w", err)
	}

	_, err = s.store.CreateSnapshot(ctx, store.Snapshot{
		ID:         typeid.NewSnapshotID(),
		DocumentID: docID,
		Version:    next,
		Document:   data,
	})
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}
	return next, nil
}

// --- Engine queries ---

type HitTestResult struct {
	ShapeID string `json:"shapeId"`
	PointID string `json:"pointId"`
}

type SelectResult struct {
	IDs    []string       `json:"ids"`
	Bounds geometry.Rect2 `json:"bounds"`
}

type SimulateRequest struct {
	Ticks   int                         `json:"ticks"`
	Signals map[string]simulation.Bool3 `json:"signals"`
}

type SimulateResult struct {
	Cycle    int64                       `json:"cycle"`
	States   map[string]simulation.Bool3 `json:"states"`
	Warnings []graph.Warning             `json:"warnings"`
	Error    string                      `json:"error,omitempty"`
}

func (s *Service) HitTest(ctx context.Context, docID, userID string, x, y float64, view engine.View) (*HitTestResult, error) {
	e, err := s.openEngine(ctx, docID, userID, view)
	if err != nil {
		return nil, err
	}
	shapeID, err := e.HitTest(x, y)
	if err != nil {
		return nil, err
	}
	pointID, err := e.HitTestPoint(x, y)
	if err != nil {
		return nil, err
	}
	return &HitTestResult{ShapeID: shapeID, PointID: pointID}, nil
}

func (s *Service) Select(ctx context.Context, docID, userID string, rect geometry.Rect2, view engine.View) (*SelectResult, error) {
	e, err := s.openEngine(ctx, docID, userID, view)
	if err != nil {
		return nil, err
	}
	ids, err := e.SelectRect(rect)
	if err != nil {
		return nil, err
	}
	return &SelectResult{IDs: ids, Bounds: e.SelectionBounds()}, nil
}

// Simulate compiles the latest snapshot, drives the requested signals and
// runs the clock. Node errors are reported in the result, not as a failure.
func (s *Service) Simulate(ctx context.Context, docID, userID string, req SimulateRequest) (*SimulateResult, error) {
	if req.Ticks < 0 || req.Ticks > s.opts.MaxTicks {
		return nil, fmt.Errorf("%w: %d (max %d)", ErrTooManyTicks, req.Ticks, s.opts.MaxTicks)
	}
	e, err := s.openEngine(ctx, docID, userID, engine.DefaultView())
	if err != nil {
		return nil, err
	}
	if err := e.Compile(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	for id, v := range req.Signals {
		if err := e.SetSignal(id, v); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}

	res := &SimulateResult{}
	if err := e.Run(req.Ticks); err != nil {
		res.Error = err.Error()
	}
	res.Cycle = e.Cycle()
	res.States = e.States()
	res.Warnings = e.Warnings()
	return res, nil
}

func (s *Service) openEngine(ctx context.Context, docID, userID string, view engine.View) (*engine.Engine, error) {
	if docID != PlaygroundID {
		if err := s.checkMembership(ctx, docID, userID); err != nil {
			return nil, err
		}
	}
	doc, err := s.LoadDocument(ctx, docID)
	if err != nil {
		return nil, err
	}
	e, err := engine.New(engine.Options{Resolution: s.opts.Resolution, HitRadius: s.opts.HitRadius})
	if err != nil {
		return nil, err
	}
	e.SetDocument(doc)
	e.SetView(view)
	return e, nil
}

func (s *Service) getDocument(ctx context.Context, docID string) (store.Document, error) {
	dbDoc, err := s.store.GetDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return dbDoc, ErrNotFound
		}
		return dbDoc, fmt.Errorf("get document: %w", err)
	}
	return dbDoc, nil
}

func (s *Service) checkOwner(ctx context.Context, docID, userID string) error {
	dbDoc, err := s.getDocument(ctx, docID)
	if err != nil {
		return err
	}
	if dbDoc.OwnerID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) checkMembership(ctx context.Context, docID, userID string) error {
	_, err := s.store.GetDocumentMember(ctx, docID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotMember
		}
		return fmt.Errorf("check membership: %w", err)
	}
	return nil
}

func toDiagram(d store.Document) *Diagram {
	return &Diagram{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
