package blocks

import (
	"strings"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func init() { RegisterType(domain.BlockTypeParagraph, NewParagraph) }

// Paragraph is a single editable line of styled text. Enter splits it at the
// caret and Backspace at its start merges it into the previous block.
type Paragraph struct {
	data domain.ParagraphData
	cb   Callbacks
	sel  *surface.Selection
	el   *surface.Surface

	pendingSplit []domain.TextSegment
	pendingMerge []domain.TextSegment
}

func NewParagraph(data domain.BlockData, cb Callbacks, opts Options) Block {
	d, _ := data.(domain.ParagraphData)
	return &Paragraph{
		data: domain.ParagraphData{Text: domain.NormalizeSegments(d.Text)},
		cb:   cb,
		sel:  opts.selection(),
	}
}

func (p *Paragraph) Type() domain.BlockType { return domain.BlockTypeParagraph }

func (p *Paragraph) Render() *surface.Surface {
	if p.el != nil {
		return p.el
	}
	p.el = textSurface("p", p.data.Text, p.sel)
	p.el.OnInput(p.sync)
	p.el.OnKeyDown(p.keyDown)
	return p.el
}

func (p *Paragraph) Save() domain.BlockData {
	return domain.ParagraphData{Text: domain.CloneSegments(p.data.Text)}
}

func (p *Paragraph) FocusSurface(bool) *surface.Surface { return p.Render() }

func (p *Paragraph) sync() {
	p.data.Text = codec.Parse(p.el.Markup())
}

func (p *Paragraph) keyDown(ev surface.KeyEvent) bool {
	switch {
	case ev.Key == surface.KeyEnter && !ev.Shift:
		p.enter()
		return true
	case ev.Key == surface.KeyBackspace:
		return p.backspace()
	}
	return false
}

func (p *Paragraph) enter() {
	leaves := p.el.Segments()
	offset := caretOffset(p.sel, p.el)
	if offset >= domain.RuneLen(leaves) {
		p.cb.enter()
		return
	}

	before, after := domain.SplitSegments(leaves, offset)
	p.data.Text = domain.NormalizeSegments(before)
	p.el.SetMarkup(codec.Render(p.data.Text))
	if !domain.IsBlank(after) {
		p.pendingSplit = domain.NormalizeSegments(after)
	}
	p.cb.enter()
}

func (p *Paragraph) backspace() bool {
	if strings.TrimSpace(p.el.Text()) == "" {
		p.cb.backspace()
		return true
	}
	if caretOffset(p.sel, p.el) != 0 {
		return false
	}
	p.sync()
	p.pendingMerge = domain.CloneSegments(p.data.Text)
	p.cb.backspace()
	return true
}

// TakePendingSplit returns and clears the text cut off by the last Enter.
func (p *Paragraph) TakePendingSplit() ([]domain.TextSegment, bool) {
	segs := p.pendingSplit
	p.pendingSplit = nil
	return segs, segs != nil
}

// TakePendingMerge returns and clears the text handed over by the last
// Backspace at offset zero.
func (p *Paragraph) TakePendingMerge() ([]domain.TextSegment, bool) {
	segs := p.pendingMerge
	p.pendingMerge = nil
	return segs, segs != nil
}

// AppendSegments concatenates segs onto the paragraph's text.
func (p *Paragraph) AppendSegments(segs []domain.TextSegment) {
	p.data.Text = domain.ConcatSegments(p.data.Text, segs)
	if p.el != nil {
		p.el.SetMarkup(codec.Render(p.data.Text))
	}
}
