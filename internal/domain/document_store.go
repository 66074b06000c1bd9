package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// StoredDocument is a persisted document with its editing policy.
type StoredDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Required  bool      `json:"required"`
	Content   Document  `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type DocumentStore interface {
	CreateDocument(ctx context.Context, d *StoredDocument) error
	GetDocument(ctx context.Context, id string) (*StoredDocument, error)
	ListDocuments(ctx context.Context) ([]StoredDocument, error)
	UpdateDocument(ctx context.Context, d *StoredDocument) error
	DeleteDocument(ctx context.Context, id string) error
}

// Revision is a saved snapshot of a document's content. Each revision points
// at the one saved before it.
type Revision struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	ParentID   *string   `json:"parentId"`
	Seq        int       `json:"seq"`
	Label      string    `json:"label"`
	Content    Document  `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

type RevisionStore interface {
	PushRevision(ctx context.Context, documentID, label string, content Document) (*Revision, error)
	ListRevisions(ctx context.Context, documentID string) ([]Revision, error)
	GetRevision(ctx context.Context, id string) (*Revision, error)
	ClearRevisions(ctx context.Context, documentID string) error
}
