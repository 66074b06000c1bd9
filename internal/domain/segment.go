package domain

import (
	"strings"
	"unicode/utf8"
)

// TextSegment is a run of text carrying a uniform set of inline style flags.
// Segment sequences are ordered in reading order.
type TextSegment struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	Italic    bool   `json:"italic,omitempty"`
	Underline bool   `json:"underline,omitempty"`
}

// SameStyle reports whether two segments carry identical style flags.
func (s TextSegment) SameStyle(o TextSegment) bool {
	return s.Bold == o.Bold && s.Italic == o.Italic && s.Underline == o.Underline
}

// EmptySegments is the canonical content of an empty block: one segment with
// empty text, never an empty sequence.
func EmptySegments() []TextSegment {
	return []TextSegment{{Text: ""}}
}

// NormalizeSegments returns a copy of segs, or EmptySegments when segs is empty.
func NormalizeSegments(segs []TextSegment) []TextSegment {
	if len(segs) == 0 {
		return EmptySegments()
	}
	return CloneSegments(segs)
}

// CloneSegments returns a copy that shares no backing array with segs.
func CloneSegments(segs []TextSegment) []TextSegment {
	if segs == nil {
		return nil
	}
	out := make([]TextSegment, len(segs))
	copy(out, segs)
	return out
}

// PlainText concatenates the text of all segments.
func PlainText(segs []TextSegment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Text)
	}
	return b.String()
}

// IsBlank reports whether segs hold no non-whitespace text.
func IsBlank(segs []TextSegment) bool {
	return strings.TrimSpace(PlainText(segs)) == ""
}

// RuneLen is the length of the plain text in runes.
func RuneLen(segs []TextSegment) int {
	n := 0
	for _, s := range segs {
		n += utf8.RuneCountInString(s.Text)
	}
	return n
}

// SplitSegments cuts segs at a rune offset into the plain text, keeping style
// flags on both halves. Offsets outside the text are clamped.
func SplitSegments(segs []TextSegment, offset int) (before, after []TextSegment) {
	if offset < 0 {
		offset = 0
	}
	pos := 0
	for _, s := range segs {
		runes := []rune(s.Text)
		switch {
		case pos+len(runes) <= offset:
			before = append(before, s)
		case pos >= offset:
			after = append(after, s)
		default:
			cut := offset - pos
			head, tail := s, s
			head.Text = string(runes[:cut])
			tail.Text = string(runes[cut:])
			before = append(before, head)
			after = append(after, tail)
		}
		pos += len(runes)
	}
	return before, after
}

// ConcatSegments appends b to a, dropping segments with empty text. The result
// is never empty.
func ConcatSegments(a, b []TextSegment) []TextSegment {
	out := make([]TextSegment, 0, len(a)+len(b))
	for _, s := range a {
		if s.Text != "" {
			out = append(out, s)
		}
	}
	for _, s := range b {
		if s.Text != "" {
			out = append(out, s)
		}
	}
	return NormalizeSegments(out)
}

// MergeRuns joins adjacent segments that share the same style.
func MergeRuns(segs []TextSegment) []TextSegment {
	var out []TextSegment
	for _, s := range segs {
		if n := len(out); n > 0 && out[n-1].SameStyle(s) {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}
