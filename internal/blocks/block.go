// Package blocks implements the editable block variants and the registry the
// document manager builds them from.
package blocks

import (
	"context"
	"time"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

// Block is one live, editable unit of a document.
type Block interface {
	Type() domain.BlockType
	// Render returns the block's root surface. Repeated calls return the same
	// handle.
	Render() *surface.Surface
	// Save returns a copy of the current data. It never changes the block.
	Save() domain.BlockData
}

// Callbacks are the structural signals a block sends to its manager.
type Callbacks struct {
	OnEnter     func()
	OnBackspace func()
}

func (c Callbacks) enter() {
	if c.OnEnter != nil {
		c.OnEnter()
	}
}

func (c Callbacks) backspace() {
	if c.OnBackspace != nil {
		c.OnBackspace()
	}
}

// Options carries the collaborators a block may need.
type Options struct {
	Selection *surface.Selection
	Uploader  Uploader
	Context   context.Context
	Now       func() time.Time
	// Dispatch runs work that arrives off the event loop, such as a settled
	// upload, in the host's event order. Without it the work runs directly.
	Dispatch func(func())
}

func (o Options) selection() *surface.Selection {
	if o.Selection == nil {
		return surface.NewSelection()
	}
	return o.Selection
}

func (o Options) context() context.Context {
	if o.Context == nil {
		return context.Background()
	}
	return o.Context
}

func (o Options) dispatcher() func(func()) {
	if o.Dispatch == nil {
		return func(fn func()) { fn() }
	}
	return o.Dispatch
}

func (o Options) clock() func() time.Time {
	if o.Now == nil {
		return time.Now
	}
	return o.Now
}

// ───── Optional capabilities ─────

// Splitter is implemented by blocks that hand content to the block inserted
// after them on Enter.
type Splitter interface {
	TakePendingSplit() ([]domain.TextSegment, bool)
}

// Merger is implemented by blocks that hand their content to the previous
// block on Backspace.
type Merger interface {
	TakePendingMerge() ([]domain.TextSegment, bool)
}

// Appender accepts merged content at its end.
type Appender interface {
	AppendSegments(segs []domain.TextSegment)
}

// Focusable names the surface that takes the caret when focus moves to the
// block. A nil result means the root surface.
type Focusable interface {
	FocusSurface(atEnd bool) *surface.Surface
}

// Destroyer is told when its block leaves the document.
type Destroyer interface {
	Destroy()
}

// ReadOnlySetter blocks refuse their own actions while read-only.
type ReadOnlySetter interface {
	SetReadOnly(bool)
}

// ───── Shared text surfaces ─────

// textSurface builds an editable surface showing segs whose paste handler
// inserts normalized plain text at the caret.
func textSurface(tag string, segs []domain.TextSegment, sel *surface.Selection) *surface.Surface {
	s := surface.NewEditable(tag, codec.Render(segs))
	s.OnPaste(func(raw string) { pastePlain(sel, s, raw) })
	return s
}

func pastePlain(sel *surface.Selection, s *surface.Surface, raw string) {
	text := codec.NormalizePaste(raw)
	if text == "" {
		return
	}
	if !sel.Has(s) {
		sel.Focus(s)
		surface.PlaceCaretAtEnd(sel, s)
	}
	if sel.InsertText(text) {
		s.Input()
	}
}

// caretOffset is the caret position in s, or the end of s when the caret is
// elsewhere.
func caretOffset(sel *surface.Selection, s *surface.Surface) int {
	if sel.Has(s) {
		return sel.Offset()
	}
	return domain.RuneLen(s.Segments())
}

func cloneItems(items [][]domain.TextSegment) [][]domain.TextSegment {
	out := make([][]domain.TextSegment, len(items))
	for i, it := range items {
		out[i] = domain.CloneSegments(it)
	}
	return out
}
