package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"blockmark/internal/domain"
	"blockmark/internal/editor"
)

// DocumentService manages stored documents and their editing policy.
type DocumentService struct {
	store           domain.DocumentStore
	revisions       domain.RevisionStore
	emitter         EventEmitter
	defaultRequired bool
}

func NewDocumentService(store domain.DocumentStore, emitter EventEmitter, defaultRequired bool) *DocumentService {
	if emitter == nil {
		emitter = LogEmitter{}
	}
	return &DocumentService{store: store, emitter: emitter, defaultRequired: defaultRequired}
}

// SetRevisions enables save history. Without a revision store saves keep no
// history.
func (s *DocumentService) SetRevisions(r domain.RevisionStore) {
	s.revisions = r
}

// Summary is the listing form of a document.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Required  bool   `json:"required"`
	Blocks    int    `json:"blocks"`
	UpdatedAt string `json:"updatedAt"`
}

func summarize(d domain.StoredDocument) Summary {
	return Summary{
		ID:        d.ID,
		Title:     d.Title,
		Required:  d.Required,
		Blocks:    len(d.Content),
		UpdatedAt: d.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Create stores a new document holding one empty paragraph.
func (s *DocumentService) Create(ctx context.Context, title string) (*domain.StoredDocument, error) {
	content, err := editor.New(editor.Config{}).Save()
	if err != nil {
		return nil, err
	}
	return s.create(ctx, title, content, "create")
}

// Import stores a document read from its JSON form. The content goes through
// an editor load/save, so unknown block types are dropped and payloads are
// normalized.
func (s *DocumentService) Import(ctx context.Context, title string, raw []byte) (*domain.StoredDocument, error) {
	doc, err := domain.ParseDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("import document: %w", err)
	}
	ed := editor.New(editor.Config{})
	ed.Load(doc)
	content, err := ed.Save()
	if err != nil {
		return nil, err
	}
	if len(content) < len(doc) {
		log.Printf("[IMPORT] %q: dropped %d unsupported block(s)", title, len(doc)-len(content))
	}
	return s.create(ctx, title, content, "import")
}

func (s *DocumentService) create(ctx context.Context, title string, content domain.Document, label string) (*domain.StoredDocument, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled"
	}
	d := &domain.StoredDocument{
		ID:       uuid.NewString(),
		Title:    title,
		Required: s.defaultRequired,
		Content:  content,
	}
	if err := s.store.CreateDocument(ctx, d); err != nil {
		return nil, err
	}
	s.record(ctx, d.ID, label, content)
	s.emitter.Emit(ctx, EventDocumentCreated, summarize(*d))
	return d, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.StoredDocument, error) {
	return s.store.GetDocument(ctx, id)
}

func (s *DocumentService) List(ctx context.Context) ([]Summary, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(docs))
	for _, d := range docs {
		out = append(out, summarize(d))
	}
	return out, nil
}

func (s *DocumentService) Rename(ctx context.Context, id, title string) error {
	return s.update(ctx, id, func(d *domain.StoredDocument) {
		if t := strings.TrimSpace(title); t != "" {
			d.Title = t
		}
	})
}

// SetRequired changes whether the document may be saved empty.
func (s *DocumentService) SetRequired(ctx context.Context, id string, required bool) error {
	return s.update(ctx, id, func(d *domain.StoredDocument) { d.Required = required })
}

// SaveContent replaces the stored content.
func (s *DocumentService) SaveContent(ctx context.Context, id string, content domain.Document) error {
	return s.saveContent(ctx, id, content, "save")
}

func (s *DocumentService) saveContent(ctx context.Context, id string, content domain.Document, label string) error {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	d.Content = content
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return err
	}
	s.record(ctx, id, label, content)
	s.emitter.Emit(ctx, EventDocumentSaved, summarize(*d))
	return nil
}

func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if s.revisions != nil {
		if err := s.revisions.ClearRevisions(ctx, id); err != nil {
			log.Printf("[REVISION] clear %s: %v", id, err)
		}
	}
	s.emitter.Emit(ctx, EventDocumentDeleted, map[string]string{"id": id})
	return nil
}

// ExportHTML renders the stored content as static HTML.
func (s *DocumentService) ExportHTML(ctx context.Context, id string) (string, error) {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return editor.RenderHTML(d.Content), nil
}

// ───── Revisions ─────

// Revisions lists the save history of a document, newest first.
func (s *DocumentService) Revisions(ctx context.Context, id string) ([]domain.Revision, error) {
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	if s.revisions == nil {
		return nil, nil
	}
	return s.revisions.ListRevisions(ctx, id)
}

// RestoreRevision saves the content of an earlier revision as the current
// content. The restore itself becomes a new revision.
func (s *DocumentService) RestoreRevision(ctx context.Context, id, revisionID string) (*domain.StoredDocument, error) {
	if s.revisions == nil {
		return nil, fmt.Errorf("revision %s: %w", revisionID, domain.ErrNotFound)
	}
	rev, err := s.revisions.GetRevision(ctx, revisionID)
	if err != nil {
		return nil, err
	}
	if rev.DocumentID != id {
		return nil, fmt.Errorf("revision %s of document %s: %w", revisionID, id, domain.ErrNotFound)
	}
	if err := s.saveContent(ctx, id, rev.Content, "restore"); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, id)
}

// record never fails the save it follows.
func (s *DocumentService) record(ctx context.Context, id, label string, content domain.Document) {
	if s.revisions == nil {
		return
	}
	if _, err := s.revisions.PushRevision(ctx, id, label, content); err != nil {
		log.Printf("[REVISION] %s %s: %v", label, id, err)
	}
}

func (s *DocumentService) update(ctx context.Context, id string, fn func(*domain.StoredDocument)) error {
	d, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	fn(d)
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventDocumentUpdated, summarize(*d))
	return nil
}
