package surface

import (
	"unicode/utf8"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
)

// Caret is a collapsed position: a text leaf index plus a rune offset inside
// that leaf.
type Caret struct {
	Leaf   int
	Offset int
}

// Selection is the single active caret. Only one surface holds it at a time.
type Selection struct {
	active *Surface
	caret  Caret
}

func NewSelection() *Selection {
	return &Selection{}
}

// Focus moves the selection to s with the caret at the start.
func (sel *Selection) Focus(s *Surface) {
	sel.active = s
	sel.caret = Caret{}
}

func (sel *Selection) Blur() {
	sel.active = nil
	sel.caret = Caret{}
}

func (sel *Selection) Active() *Surface { return sel.active }

func (sel *Selection) Has(s *Surface) bool { return s != nil && sel.active == s }

func (sel *Selection) Caret() Caret { return sel.caret }

// SetCaret focuses s and places the caret.
func (sel *Selection) SetCaret(s *Surface, c Caret) {
	sel.active = s
	sel.caret = c
}

// SetOffset focuses s and places the caret at a character offset.
func (sel *Selection) SetOffset(s *Surface, offset int) {
	sel.SetCaret(s, CaretAt(s, offset))
}

// Offset is the caret's character offset within the active surface.
func (sel *Selection) Offset() int {
	if sel.active == nil {
		return 0
	}
	return CaretOffsetWithin(sel.active, sel.caret)
}

// CaretOffsetWithin counts the characters preceding c across the text leaves
// of s in document order. A caret whose leaf is not in s yields the full text
// length.
func CaretOffsetWithin(s *Surface, c Caret) int {
	total := 0
	for i, leaf := range s.Segments() {
		n := utf8.RuneCountInString(leaf.Text)
		if i == c.Leaf {
			off := c.Offset
			if off < 0 {
				off = 0
			}
			if off > n {
				off = n
			}
			return total + off
		}
		total += n
	}
	return total
}

// CaretAt converts a character offset to a caret. Offsets past the end clamp
// to the end of the last leaf. At a leaf boundary the caret stays in the
// earlier leaf.
func CaretAt(s *Surface, offset int) Caret {
	leaves := s.Segments()
	if len(leaves) == 0 || offset <= 0 {
		return Caret{}
	}
	pos := 0
	for i, leaf := range leaves {
		n := utf8.RuneCountInString(leaf.Text)
		if offset <= pos+n {
			return Caret{Leaf: i, Offset: offset - pos}
		}
		pos += n
	}
	last := len(leaves) - 1
	return Caret{Leaf: last, Offset: utf8.RuneCountInString(leaves[last].Text)}
}

// PlaceCaretAtEnd collapses the selection to the end of s. It does nothing
// when s has no content.
func PlaceCaretAtEnd(sel *Selection, s *Surface) {
	if sel == nil || s == nil {
		return
	}
	leaves := s.Segments()
	if len(leaves) == 0 {
		return
	}
	last := len(leaves) - 1
	sel.SetCaret(s, Caret{Leaf: last, Offset: utf8.RuneCountInString(leaves[last].Text)})
}

// InsertText puts plain text into the active surface at the caret, taking
// the style of the text just before it, and advances the caret past it.
func (sel *Selection) InsertText(text string) bool {
	s := sel.active
	if s == nil || !s.Editable() || text == "" {
		return false
	}
	offset := sel.Offset()
	before, after := domain.SplitSegments(s.Segments(), offset)

	ins := domain.TextSegment{Text: text}
	if n := len(before); n > 0 {
		ins = before[n-1]
		ins.Text = text
	}
	segs := append(append(before, ins), after...)
	s.SetMarkup(codec.Render(domain.MergeRuns(segs)))
	sel.SetOffset(s, offset+utf8.RuneCountInString(text))
	return true
}
