// Package editor holds the block sequence of one document and the facade the
// host application talks to.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

var (
	ErrEmptyDocument    = errors.New("editor cannot be empty")
	ErrUnknownBlockType = errors.New("unknown block type")
	ErrReadOnly         = errors.New("editor is read-only")
)

type Config struct {
	Required bool
	ReadOnly bool
	Uploader blocks.Uploader
	Context  context.Context
	Now      func() time.Time
	// Dispatch applies late upload results; see blocks.Options.
	Dispatch func(func())
}

// Editor is the document facade: load, save, validate and the passthroughs
// to the block manager.
type Editor struct {
	manager  *Manager
	uploader *uploaderSlot
	required bool
}

// New returns an editor holding one empty paragraph.
func New(cfg Config) *Editor {
	slot := &uploaderSlot{u: cfg.Uploader}
	e := &Editor{
		manager: NewManager(blocks.Options{
			Uploader: slot,
			Context:  cfg.Context,
			Now:      cfg.Now,
			Dispatch: cfg.Dispatch,
		}),
		uploader: slot,
		required: cfg.Required,
	}
	if _, err := e.manager.insert(domain.BlockTypeParagraph, nil, -1); err != nil {
		log.Printf("[EDITOR] initial paragraph: %v", err)
	}
	e.manager.SetReadOnly(cfg.ReadOnly)
	return e
}

// Load replaces every block with one block per entry. Entries of unknown
// type are logged and skipped.
func (e *Editor) Load(doc domain.Document) {
	e.manager.Reset()
	for _, entry := range doc {
		if !blocks.Known(entry.Type) {
			log.Printf("[EDITOR] load: unknown block type %q, skipped", entry.Type)
			continue
		}
		if _, err := e.manager.insert(entry.Type, entry.Data, -1); err != nil {
			log.Printf("[EDITOR] load: %v", err)
		}
	}
}

// Clear empties the document.
func (e *Editor) Clear() { e.Load(nil) }

// Save returns the document. A required document without content fails
// with ErrEmptyDocument.
func (e *Editor) Save() (domain.Document, error) {
	doc := e.manager.Save()
	if e.required && !HasContent(doc) {
		return nil, ErrEmptyDocument
	}
	return doc, nil
}

// Content returns the current blocks without applying the required policy.
func (e *Editor) Content() domain.Document {
	return e.manager.Save()
}

// Validate reports whether Save would succeed.
func (e *Editor) Validate() bool {
	return e.ValidationError() == nil
}

// ValidationError is nil when the document may be saved.
func (e *Editor) ValidationError() error {
	if e.required && !HasContent(e.manager.Save()) {
		return ErrEmptyDocument
	}
	return nil
}

func (e *Editor) SetRequired(required bool) { e.required = required }
func (e *Editor) Required() bool            { return e.required }

func (e *Editor) SetReadOnly(ro bool) { e.manager.SetReadOnly(ro) }
func (e *Editor) ReadOnly() bool      { return e.manager.ReadOnly() }

// SetUploader swaps the upload collaborator for every image block.
func (e *Editor) SetUploader(u blocks.Uploader) {
	e.uploader.set(u)
}

// ───── Manager passthroughs ─────

// AddBlock inserts a block after index after (negative for the end). A nil
// data starts the block from its defaults.
func (e *Editor) AddBlock(t domain.BlockType, data domain.BlockData, after int) (*Instance, error) {
	return e.manager.Insert(t, data, after)
}

// AddKind inserts a registered kind, such as "orderedList", with its
// default data.
func (e *Editor) AddKind(key string, after int) (*Instance, error) {
	def, ok := blocks.Lookup(key)
	if !ok {
		log.Printf("[EDITOR] unknown block kind %q", key)
		return nil, fmt.Errorf("add block: %w: %q", ErrUnknownBlockType, key)
	}
	return e.manager.Insert(def.Type, def.DefaultData(), after)
}

// RemoveBlock deletes the block at index. The last block is never removed.
func (e *Editor) RemoveBlock(index int) bool {
	return e.manager.DeleteAt(index)
}

func (e *Editor) Blocks() []*Instance           { return e.manager.Blocks() }
func (e *Editor) Block(id string) *Instance     { return e.manager.Lookup(id) }
func (e *Editor) IndexOf(id string) int         { return e.manager.IndexOf(id) }
func (e *Editor) Selection() *surface.Selection { return e.manager.Selection() }
func (e *Editor) Surface() *surface.Surface     { return e.manager.Surface() }

// ActiveBlock is the index of the block holding the caret, or -1.
func (e *Editor) ActiveBlock() int {
	return e.manager.IndexOfSurface(e.Selection().Active())
}

// HTML exports the current content without validating it.
func (e *Editor) HTML() string {
	return RenderHTML(e.manager.Save())
}

// HasContent reports whether doc holds any non-whitespace text, an uploaded
// image or an embedded video.
func HasContent(doc domain.Document) bool {
	for _, entry := range doc {
		switch d := entry.Data.(type) {
		case domain.ParagraphData:
			if !domain.IsBlank(d.Text) {
				return true
			}
		case domain.ListData:
			for _, it := range d.Items {
				if !domain.IsBlank(it) {
					return true
				}
			}
		case domain.TableData:
			for _, c := range d.Cells {
				if !domain.IsBlank(c.Text) {
					return true
				}
			}
		case domain.ImageData:
			if strings.TrimSpace(d.Src) != "" {
				return true
			}
		case domain.YouTubeData:
			if blocks.ExtractVideoID(d.URL) != "" {
				return true
			}
		}
	}
	return false
}

// uploaderSlot lets SetUploader reach image blocks built earlier.
type uploaderSlot struct {
	mu sync.RWMutex
	u  blocks.Uploader
}

func (s *uploaderSlot) set(u blocks.Uploader) {
	s.mu.Lock()
	s.u = u
	s.mu.Unlock()
}

func (s *uploaderSlot) Upload(ctx context.Context, f blocks.File) *blocks.Task {
	s.mu.RLock()
	u := s.u
	s.mu.RUnlock()
	if u == nil {
		return blocks.Failed(blocks.ErrNoUploader)
	}
	return u.Upload(ctx, f)
}
