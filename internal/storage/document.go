package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blockmark/internal/domain"
)

// DocumentStore implements domain.DocumentStore over SQL.
type DocumentStore struct {
	db *DB
}

func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

const documentColumns = `id, title, required, content_json, created_at, updated_at`

func (s *DocumentStore) CreateDocument(ctx context.Context, d *domain.StoredDocument) error {
	content, err := encodeContent(d.Content)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err = s.db.Conn().ExecContext(ctx, s.db.rebind(
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		d.ID, d.Title, d.Required, content, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *DocumentStore) GetDocument(ctx context.Context, id string) (*domain.StoredDocument, error) {
	row := s.db.Conn().QueryRowContext(ctx, s.db.rebind(
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`), id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (s *DocumentStore) ListDocuments(ctx context.Context) ([]domain.StoredDocument, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.StoredDocument
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

func (s *DocumentStore) UpdateDocument(ctx context.Context, d *domain.StoredDocument) error {
	content, err := encodeContent(d.Content)
	if err != nil {
		return err
	}
	d.UpdatedAt = time.Now().UTC()
	res, err := s.db.Conn().ExecContext(ctx, s.db.rebind(
		`UPDATE documents SET title = ?, required = ?, content_json = ?, updated_at = ? WHERE id = ?`),
		d.Title, d.Required, content, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res, "document", d.ID)
}

func (s *DocumentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.Conn().ExecContext(ctx, s.db.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res, "document", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(sc scanner) (*domain.StoredDocument, error) {
	var (
		d       domain.StoredDocument
		content string
	)
	if err := sc.Scan(&d.ID, &d.Title, &d.Required, &content, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	doc, err := domain.ParseDocument([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", d.ID, err)
	}
	d.Content = doc
	return &d, nil
}

func encodeContent(doc domain.Document) (string, error) {
	if doc == nil {
		doc = domain.Document{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return nil
}
