// Package surface models the editable regions a block renders into. The host
// dispatches input, keydown and paste events to a surface one at a time.
package surface

import (
	"strings"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
)

// Keys a surface reacts to.
const (
	KeyEnter     = "Enter"
	KeyBackspace = "Backspace"
	KeyTab       = "Tab"
)

type KeyEvent struct {
	Key   string
	Shift bool
}

// Surface is one region of rendered block output. Editable surfaces hold
// inline markup; containers hold child surfaces.
type Surface struct {
	tag      string
	attrs    map[string]string
	markup   string
	editable bool
	readOnly bool
	children []*Surface

	onInput   func()
	onKeyDown func(KeyEvent) bool
	onPaste   func(string)
}

func New(tag string) *Surface {
	return &Surface{tag: tag, attrs: map[string]string{}}
}

// NewEditable returns a surface whose markup the user can change.
func NewEditable(tag, markup string) *Surface {
	s := New(tag)
	s.editable = true
	s.markup = markup
	return s
}

func (s *Surface) Tag() string     { return s.tag }
func (s *Surface) SetTag(t string) { s.tag = t }
func (s *Surface) Editable() bool  { return s.editable && !s.readOnly }

func (s *Surface) Attr(key string) string { return s.attrs[key] }

func (s *Surface) SetAttr(key, value string) {
	if value == "" {
		delete(s.attrs, key)
		return
	}
	s.attrs[key] = value
}

func (s *Surface) Markup() string          { return s.markup }
func (s *Surface) SetMarkup(markup string) { s.markup = markup }

// Segments returns the styled text leaves of the surface, blank ones included.
func (s *Surface) Segments() []domain.TextSegment {
	return codec.Leaves(s.markup)
}

// Text is the surface's plain text content.
func (s *Surface) Text() string {
	return domain.PlainText(s.Segments())
}

// HasContent reports whether the surface holds any text at all.
func (s *Surface) HasContent() bool {
	return s.Text() != ""
}

// ───── Tree ─────

func (s *Surface) Children() []*Surface { return s.children }

func (s *Surface) Child(i int) *Surface {
	if i < 0 || i >= len(s.children) {
		return nil
	}
	return s.children[i]
}

func (s *Surface) Append(children ...*Surface) {
	for _, c := range children {
		c.setReadOnly(s.readOnly)
	}
	s.children = append(s.children, children...)
}

func (s *Surface) InsertChild(i int, c *Surface) {
	if i < 0 || i > len(s.children) {
		i = len(s.children)
	}
	c.setReadOnly(s.readOnly)
	s.children = append(s.children, nil)
	copy(s.children[i+1:], s.children[i:])
	s.children[i] = c
}

func (s *Surface) RemoveChild(i int) {
	if i < 0 || i >= len(s.children) {
		return
	}
	s.children = append(s.children[:i], s.children[i+1:]...)
}

// IndexOf returns the position of c among the direct children, or -1.
func (s *Surface) IndexOf(c *Surface) int {
	for i, child := range s.children {
		if child == c {
			return i
		}
	}
	return -1
}

func (s *Surface) ClearChildren() { s.children = nil }

// Contains reports whether t is s or one of its descendants.
func (s *Surface) Contains(t *Surface) bool {
	if t == nil {
		return false
	}
	if s == t {
		return true
	}
	for _, c := range s.children {
		if c.Contains(t) {
			return true
		}
	}
	return false
}

// SetReadOnly locks or unlocks the surface and everything below it. Events
// dispatched to a locked surface are ignored.
func (s *Surface) SetReadOnly(ro bool) { s.setReadOnly(ro) }

func (s *Surface) setReadOnly(ro bool) {
	s.readOnly = ro
	for _, c := range s.children {
		c.setReadOnly(ro)
	}
}

// ───── Events ─────

func (s *Surface) OnInput(fn func())               { s.onInput = fn }
func (s *Surface) OnKeyDown(fn func(KeyEvent) bool) { s.onKeyDown = fn }
func (s *Surface) OnPaste(fn func(string))         { s.onPaste = fn }

// Input fires the input handler after the markup has changed.
func (s *Surface) Input() {
	if s.readOnly || s.onInput == nil {
		return
	}
	s.onInput()
}

// Edit replaces the markup as the user typing would, then fires input.
func (s *Surface) Edit(markup string) bool {
	if !s.Editable() {
		return false
	}
	s.markup = markup
	s.Input()
	return true
}

// KeyDown dispatches a key press. It reports whether a handler consumed it.
func (s *Surface) KeyDown(ev KeyEvent) bool {
	if s.readOnly || s.onKeyDown == nil {
		return false
	}
	return s.onKeyDown(ev)
}

// Paste dispatches clipboard content.
func (s *Surface) Paste(data string) {
	if s.readOnly || s.onPaste == nil {
		return
	}
	s.onPaste(data)
}

// Outline is a compact one-line description used by hosts listing surfaces.
func (s *Surface) Outline() string {
	var b strings.Builder
	b.WriteString(s.tag)
	if s.Editable() {
		b.WriteString("[editable]")
	}
	if len(s.children) > 0 {
		b.WriteString("(")
		for i, c := range s.children {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(c.Outline())
		}
		b.WriteString(")")
	}
	return b.String()
}
