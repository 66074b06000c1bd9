package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blockmark/internal/domain"
)

// MaxRevisions is how many revisions are kept per document.
const MaxRevisions = 40

// RevisionStore keeps a linear save history per document.
type RevisionStore struct {
	db  *DB
	max int
}

func NewRevisionStore(db *DB) *RevisionStore {
	return &RevisionStore{db: db, max: MaxRevisions}
}

// PushRevision records content as the newest revision of documentID and
// prunes the oldest ones over the limit.
func (s *RevisionStore) PushRevision(ctx context.Context, documentID, label string, content domain.Document) (*domain.Revision, error) {
	encoded, err := encodeContent(content)
	if err != nil {
		return nil, err
	}

	var (
		parent sql.NullString
		seq    int
	)
	err = s.db.Conn().QueryRowContext(ctx, s.db.rebind(
		`SELECT id, seq FROM document_revisions WHERE document_id = ? ORDER BY seq DESC LIMIT 1`),
		documentID,
	).Scan(&parent, &seq)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("latest revision: %w", err)
	}

	rev := &domain.Revision{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Seq:        seq + 1,
		Label:      label,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	if parent.Valid {
		rev.ParentID = &parent.String
	}

	_, err = s.db.Conn().ExecContext(ctx, s.db.rebind(
		`INSERT INTO document_revisions (id, document_id, parent_id, seq, label, content_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		rev.ID, rev.DocumentID, rev.ParentID, rev.Seq, rev.Label, encoded, rev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert revision: %w", err)
	}

	s.pruneIfNeeded(ctx, documentID)
	return rev, nil
}

// ListRevisions returns the history of a document, newest first.
func (s *RevisionStore) ListRevisions(ctx context.Context, documentID string) ([]domain.Revision, error) {
	rows, err := s.db.Conn().QueryContext(ctx, s.db.rebind(
		`SELECT id, document_id, parent_id, seq, label, content_json, created_at
		 FROM document_revisions WHERE document_id = ? ORDER BY seq DESC`), documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Revision
	for rows.Next() {
		rev, err := scanRevision(rows)
		if err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out = append(out, *rev)
	}
	return out, rows.Err()
}

func (s *RevisionStore) GetRevision(ctx context.Context, id string) (*domain.Revision, error) {
	row := s.db.Conn().QueryRowContext(ctx, s.db.rebind(
		`SELECT id, document_id, parent_id, seq, label, content_json, created_at
		 FROM document_revisions WHERE id = ?`), id)
	rev, err := scanRevision(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("revision %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

// ClearRevisions removes the whole history of a document.
func (s *RevisionStore) ClearRevisions(ctx context.Context, documentID string) error {
	_, err := s.db.Conn().ExecContext(ctx, s.db.rebind(
		`DELETE FROM document_revisions WHERE document_id = ?`), documentID)
	if err != nil {
		return fmt.Errorf("clear revisions: %w", err)
	}
	return nil
}

func scanRevision(sc scanner) (*domain.Revision, error) {
	var (
		rev     domain.Revision
		parent  sql.NullString
		content string
	)
	if err := sc.Scan(&rev.ID, &rev.DocumentID, &parent, &rev.Seq, &rev.Label, &content, &rev.CreatedAt); err != nil {
		return nil, err
	}
	if parent.Valid {
		rev.ParentID = &parent.String
	}
	doc, err := domain.ParseDocument([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("revision %s: %w", rev.ID, err)
	}
	rev.Content = doc
	return &rev, nil
}

// pruneIfNeeded drops the oldest revisions over the limit. The new oldest
// revision loses its parent.
func (s *RevisionStore) pruneIfNeeded(ctx context.Context, documentID string) {
	var count int
	s.db.Conn().QueryRowContext(ctx, s.db.rebind(
		`SELECT COUNT(*) FROM document_revisions WHERE document_id = ?`), documentID).Scan(&count)
	if count <= s.max {
		return
	}

	// Collect ids first; the single SQLite connection is held while rows are open.
	rows, err := s.db.Conn().QueryContext(ctx, s.db.rebind(
		`SELECT id FROM document_revisions WHERE document_id = ? ORDER BY seq ASC LIMIT ?`),
		documentID, count-s.max,
	)
	if err != nil {
		return
	}
	var ids []string
	for rows.Next() {
		var id string
		if rows.Scan(&id) == nil {
			ids = append(ids, id)
		}
	}
	rows.Close()

	for _, id := range ids {
		s.db.Conn().ExecContext(ctx, s.db.rebind(
			`UPDATE document_revisions SET parent_id = NULL WHERE parent_id = ?`), id)
		s.db.Conn().ExecContext(ctx, s.db.rebind(
			`DELETE FROM document_revisions WHERE id = ?`), id)
	}
}
