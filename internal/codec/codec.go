// Package codec converts between segment sequences and editable-surface markup.
package codec

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"blockmark/internal/domain"
)

// LineBreak is the placeholder markup of an empty surface.
const LineBreak = "<br>"

// FormattingTag is the closed set of inline styles a surface can carry.
type FormattingTag int

const (
	TagNone FormattingTag = iota
	TagBold
	TagItalic
	TagUnderline
)

// TagOf maps an element to its formatting. Both the semantic and the legacy
// spellings are accepted; anything else is TagNone and stays transparent.
func TagOf(a atom.Atom) FormattingTag {
	switch a {
	case atom.Strong, atom.B:
		return TagBold
	case atom.Em, atom.I:
		return TagItalic
	case atom.U:
		return TagUnderline
	default:
		return TagNone
	}
}

// Apply sets the flag for t on s.
func (t FormattingTag) Apply(s domain.TextSegment) domain.TextSegment {
	switch t {
	case TagBold:
		s.Bold = true
	case TagItalic:
		s.Italic = true
	case TagUnderline:
		s.Underline = true
	}
	return s
}

// Element is the tag name written by Render.
func (t FormattingTag) Element() string {
	switch t {
	case TagBold:
		return "strong"
	case TagItalic:
		return "em"
	case TagUnderline:
		return "u"
	default:
		return ""
	}
}

// renderOrder is innermost first.
var renderOrder = []FormattingTag{TagBold, TagItalic, TagUnderline}

func (t FormattingTag) on(s domain.TextSegment) bool {
	switch t {
	case TagBold:
		return s.Bold
	case TagItalic:
		return s.Italic
	case TagUnderline:
		return s.Underline
	default:
		return false
	}
}

// ───── Render ─────

// Render writes segments as surface markup. An empty sequence renders as a
// line break placeholder.
func Render(segs []domain.TextSegment) string {
	if len(segs) == 0 {
		return LineBreak
	}
	var b strings.Builder
	for _, s := range segs {
		if s.Text == "" {
			continue
		}
		b.WriteString(renderSegment(s))
	}
	return b.String()
}

func renderSegment(s domain.TextSegment) string {
	out := html.EscapeString(s.Text)
	for _, t := range renderOrder {
		if t.on(s) {
			el := t.Element()
			out = "<" + el + ">" + out + "</" + el + ">"
		}
	}
	return out
}

// ───── Parse ─────

// Parse reads surface markup back into segments. Whitespace-only text nodes
// are dropped, so spacing between styled runs can be lost. The result is
// never empty.
func Parse(markup string) []domain.TextSegment {
	return domain.NormalizeSegments(walkMarkup(markup, false))
}

// Leaves returns every text leaf of markup in document order, whitespace-only
// leaves included. Caret offsets are measured over these.
func Leaves(markup string) []domain.TextSegment {
	return walkMarkup(markup, true)
}

func walkMarkup(markup string, keepBlank bool) []domain.TextSegment {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		// Fall back to the raw text rather than failing.
		return []domain.TextSegment{{Text: markup}}
	}
	var out []domain.TextSegment
	for _, n := range nodes {
		walk(n, domain.TextSegment{}, keepBlank, &out)
	}
	return out
}

func walk(n *html.Node, style domain.TextSegment, keepBlank bool, out *[]domain.TextSegment) {
	switch n.Type {
	case html.TextNode:
		if n.Data == "" || (!keepBlank && strings.TrimSpace(n.Data) == "") {
			return
		}
		seg := style
		seg.Text = n.Data
		*out = append(*out, seg)
	case html.ElementNode:
		if n.FirstChild == nil {
			return
		}
		style = TagOf(n.DataAtom).Apply(style)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, style, keepBlank, out)
		}
	case html.DocumentNode:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, style, keepBlank, out)
		}
	}
}
