package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

func (q *Queries) CreateUser(ctx context.Context, u User) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (id, email, password, display_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, password, display_name, created_at`,
		u.ID, u.Email, u.Password, u.DisplayName)
	var out User
	err := row.Scan(&out.ID, &out.Email, &out.Password, &out.DisplayName, &out.CreatedAt)
	return out, translate(err, "create user")
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return q.getUser(ctx, `WHERE email = $1`, email)
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	return q.getUser(ctx, `WHERE id = $1`, id)
}

func (q *Queries) getUser(ctx context.Context, where string, arg string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT id, email, password, display_name, created_at FROM users `+where, arg)
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, translate(err, "get user")
}

func (q *Queries) CreateDocument(ctx context.Context, id, name, ownerID string) (Document, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO documents (id, name, owner_id)
		VALUES ($1, $2, $3)
		RETURNING id, name, owner_id, created_at, updated_at`,
		id, name, ownerID)
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, translate(err, "create document")
}

func (q *Queries) GetDocument(ctx context.Context, id string) (Document, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at, updated_at
		FROM documents WHERE id = $1`, id)
	var d Document
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, translate(err, "get document")
}

func (q *Queries) ListDocumentsForUser(ctx context.Context, userID string) ([]Document, error) {
	rows, err := q.db.Query(ctx, `
		SELECT d.id, d.name, d.owner_id, d.created_at, d.updated_at
		FROM documents d
		JOIN document_members m ON m.document_id = d.id
		WHERE m.user_id = $1
		ORDER BY d.updated_at DESC`, userID)
	if err != nil {
		return nil, translate(err, "list documents")
	}
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Document, error) {
		var d Document
		err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
		return d, err
	})
	return docs, translate(err, "list documents")
}

func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return translate(err, "delete document")
	}
	if tag.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows, "delete document")
	}
	return nil
}

func (q *Queries) AddDocumentMember(ctx context.Context, documentID, userID string, role Role) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO document_members (document_id, user_id, role)
		VALUES ($1, $2, $3)`, documentID, userID, string(role))
	return translate(err, "add member")
}

func (q *Queries) GetDocumentMember(ctx context.Context, documentID, userID string) (Member, error) {
	row := q.db.QueryRow(ctx, `
		SELECT m.document_id, m.user_id, m.role, u.display_name, u.email
		FROM document_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.document_id = $1 AND m.user_id = $2`, documentID, userID)
	var m Member
	err := row.Scan(&m.DocumentID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
	return m, translate(err, "get member")
}

func (q *Queries) ListDocumentMembers(ctx context.Context, documentID string) ([]Member, error) {
	rows, err := q.db.Query(ctx, `
		SELECT m.document_id, m.user_id, m.role, u.display_name, u.email
		FROM document_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.document_id = $1
		ORDER BY u.display_name`, documentID)
	if err != nil {
		return nil, translate(err, "list members")
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Member, error) {
		var m Member
		err := row.Scan(&m.DocumentID, &m.UserID, &m.Role, &m.DisplayName, &m.Email)
		return m, err
	})
	return members, translate(err, "list members")
}

func (q *Queries) RemoveDocumentMember(ctx context.Context, documentID, userID string) error {
	_, err := q.db.Exec(ctx, `
		DELETE FROM document_members WHERE document_id = $1 AND user_id = $2`, documentID, userID)
	return translate(err, "remove member")
}

// CreateSnapshot stores a new version of a document's content and bumps the
// document's update time.
func (q *Queries) CreateSnapshot(ctx context.Context, s Snapshot) (Snapshot, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO snapshots (id, document_id, version, document)
		VALUES ($1, $2, $3, $4)
		RETURNING id, document_id, version, document, created_at`,
		s.ID, s.DocumentID, s.Version, s.Document)
	var out Snapshot
	if err := row.Scan(&out.ID, &out.DocumentID, &out.Version, &out.Document, &out.CreatedAt); err != nil {
		return out, translate(err, "create snapshot")
	}
	_, err := q.db.Exec(ctx, `UPDATE documents SET updated_at = now() WHERE id = $1`, s.DocumentID)
	return out, translate(err, "touch document")
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, documentID string) (Snapshot, error) {
	row := q.db.QueryRow(ctx, `
		SELECT id, document_id, version, document, created_at
		FROM snapshots
		WHERE document_id = $1
		ORDER BY version DESC
		LIMIT 1`, documentID)
	var s Snapshot
	err := row.Scan(&s.ID, &s.DocumentID, &s.Version, &s.Document, &s.CreatedAt)
	return s, translate(err, "get snapshot")
}
