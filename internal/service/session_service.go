package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/editor"
)

// ─────────────────────────────────────────────────────────────
// Editing sessions: one live editor per open document
// ─────────────────────────────────────────────────────────────

// Session holds the live editor of one document. Every event runs under
// the session lock, one at a time.
type Session struct {
	id string

	mu       sync.Mutex
	editor   *editor.Editor
	rev      uint64
	savedRev uint64
}

func (s *Session) ID() string { return s.id }

// Do runs fn against the editor and marks the session dirty.
func (s *Session) Do(fn func(ed *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rev++
	return fn(s.editor)
}

// dispatch applies work arriving off the event loop, such as a settled
// upload, as one more edit.
func (s *Session) dispatch(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rev++
	fn()
}

// View runs fn against the editor without marking it dirty.
func (s *Session) View(fn func(ed *editor.Editor) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.editor)
}

func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rev != s.savedRev
}

// SessionService owns the open sessions and writes them back to the store.
type SessionService struct {
	docs     *DocumentService
	uploader blocks.Uploader

	mu       sync.Mutex
	sessions map[string]*Session
	guard    flushGuard
}

func NewSessionService(docs *DocumentService, uploader blocks.Uploader) *SessionService {
	return &SessionService{docs: docs, uploader: uploader, sessions: make(map[string]*Session)}
}

// Open returns the session for id, loading the document on first use.
func (s *SessionService) Open(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess := &Session{id: id}
	sess.editor = editor.New(editor.Config{
		Required: d.Required,
		Uploader: s.uploader,
		Dispatch: sess.dispatch,
	})
	sess.editor.Load(d.Content)
	s.sessions[id] = sess
	return sess, nil
}

// Get returns an open session.
func (s *SessionService) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// OpenIDs lists open documents.
func (s *SessionService) OpenIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Flush saves a session's content. The document's required policy applies:
// an empty required document is not written and editor.ErrEmptyDocument is
// returned.
func (s *SessionService) Flush(ctx context.Context, id string) error {
	sess, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("flush %s: session not open", id)
	}
	sess.mu.Lock()
	rev := sess.rev
	content, err := sess.editor.Save()
	sess.mu.Unlock()
	if err != nil {
		return err
	}

	if err := s.docs.SaveContent(ctx, id, content); err != nil {
		return err
	}

	sess.mu.Lock()
	if rev > sess.savedRev {
		sess.savedRev = rev
	}
	sess.mu.Unlock()
	return nil
}

// FlushDirty saves every dirty session that is not already being flushed
// and returns how many were written.
func (s *SessionService) FlushDirty(ctx context.Context) (int, error) {
	var (
		saved int
		errs  []error
	)
	for _, id := range s.OpenIDs() {
		sess, ok := s.Get(id)
		if !ok || !sess.Dirty() {
			continue
		}
		if !s.guard.TryLock(id) {
			continue
		}
		err := s.Flush(ctx, id)
		s.guard.Unlock(id)
		if err != nil {
			log.Printf("[AUTOSAVE] %s: %v", id, err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		saved++
	}
	if len(errs) > 0 {
		return saved, fmt.Errorf("flush dirty sessions: %d failed: %w", len(errs), errs[0])
	}
	return saved, nil
}

// SetRequired applies a new policy to the stored document and the open
// session, if any.
func (s *SessionService) SetRequired(ctx context.Context, id string, required bool) error {
	if err := s.docs.SetRequired(ctx, id, required); err != nil {
		return err
	}
	if sess, ok := s.Get(id); ok {
		return sess.View(func(ed *editor.Editor) error {
			ed.SetRequired(required)
			return nil
		})
	}
	return nil
}

// Close drops a session, saving it first when save is set and it is dirty.
func (s *SessionService) Close(ctx context.Context, id string, save bool) error {
	sess, ok := s.Get(id)
	if !ok {
		return nil
	}
	if save && sess.Dirty() {
		if err := s.Flush(ctx, id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Restore writes an earlier revision back as the document content. An open
// session is reloaded with it and unsaved edits are discarded.
func (s *SessionService) Restore(ctx context.Context, id, revisionID string) (*domain.StoredDocument, error) {
	d, err := s.docs.RestoreRevision(ctx, id, revisionID)
	if err != nil {
		return nil, err
	}
	if sess, ok := s.Get(id); ok {
		sess.mu.Lock()
		sess.editor.Load(d.Content)
		sess.rev++
		sess.savedRev = sess.rev
		sess.mu.Unlock()
	}
	return d, nil
}

// Forget drops a session without saving, used when its document is deleted.
func (s *SessionService) Forget(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Shutdown waits for running flushes and writes back remaining dirty sessions.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.guard.WaitAll(ctx)
	if _, err := s.FlushDirty(ctx); err != nil {
		log.Printf("[AUTOSAVE] shutdown: %v", err)
	}
}
