package editor

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

// Instance is one live block in the sequence. ID is assigned at insertion
// and never changes; callbacks use it to find the block's current position.
type Instance struct {
	ID    string
	Type  domain.BlockType
	Block blocks.Block
}

// Manager owns the ordered block sequence and applies the structural
// signals its blocks send.
type Manager struct {
	items    []*Instance
	root     *surface.Surface
	sel      *surface.Selection
	opts     blocks.Options
	readOnly bool
}

func NewManager(opts blocks.Options) *Manager {
	if opts.Selection == nil {
		opts.Selection = surface.NewSelection()
	}
	root := surface.New("div")
	root.SetAttr("class", "editor")
	return &Manager{root: root, sel: opts.Selection, opts: opts}
}

func (m *Manager) Surface() *surface.Surface     { return m.root }
func (m *Manager) Selection() *surface.Selection { return m.sel }
func (m *Manager) Len() int                      { return len(m.items) }

// Blocks returns the current sequence. The slice is a copy.
func (m *Manager) Blocks() []*Instance {
	out := make([]*Instance, len(m.items))
	copy(out, m.items)
	return out
}

// At returns the instance at index i, or nil.
func (m *Manager) At(i int) *Instance {
	if i < 0 || i >= len(m.items) {
		return nil
	}
	return m.items[i]
}

// IndexOf returns the current position of the instance with id, or -1.
func (m *Manager) IndexOf(id string) int {
	for i, inst := range m.items {
		if inst.ID == id {
			return i
		}
	}
	return -1
}

// Lookup finds an instance by id.
func (m *Manager) Lookup(id string) *Instance {
	return m.At(m.IndexOf(id))
}

// IndexOfSurface returns the block whose rendered tree contains s, or -1.
func (m *Manager) IndexOfSurface(s *surface.Surface) int {
	for i, inst := range m.items {
		if inst.Block.Render().Contains(s) {
			return i
		}
	}
	return -1
}

// ───── Structural edits ─────

// Insert builds a block of type t and places it after index after, or at the
// end when after is negative or past the end. Focus moves to the new block.
func (m *Manager) Insert(t domain.BlockType, data domain.BlockData, after int) (*Instance, error) {
	if m.readOnly {
		return nil, ErrReadOnly
	}
	inst, err := m.insert(t, data, after)
	if err != nil {
		return nil, err
	}
	m.focus(inst, false)
	return inst, nil
}

func (m *Manager) insert(t domain.BlockType, data domain.BlockData, after int) (*Instance, error) {
	id := uuid.NewString()
	cb := blocks.Callbacks{
		OnEnter:     func() { m.handleEnter(id) },
		OnBackspace: func() { m.handleBackspace(id) },
	}
	b, ok := blocks.New(t, data, cb, m.opts)
	if !ok {
		log.Printf("[EDITOR] unknown block type %q, skipped", t)
		return nil, fmt.Errorf("insert block: %w: %q", ErrUnknownBlockType, t)
	}
	inst := &Instance{ID: id, Type: t, Block: b}

	pos := after + 1
	if after < 0 || pos > len(m.items) {
		pos = len(m.items)
	}
	m.items = append(m.items, nil)
	copy(m.items[pos+1:], m.items[pos:])
	m.items[pos] = inst

	m.root.InsertChild(pos, b.Render())
	if ro, ok := b.(blocks.ReadOnlySetter); ok && m.readOnly {
		ro.SetReadOnly(true)
	}
	return inst, nil
}

// DeleteAt removes the block at index i and moves the caret to the end of
// the block before it. It refuses to remove the last remaining block and
// reports whether anything was removed.
func (m *Manager) DeleteAt(i int) bool {
	if m.readOnly || i < 0 || i >= len(m.items) || len(m.items) <= 1 {
		return false
	}
	inst := m.items[i]
	hadFocus := inst.Block.Render().Contains(m.sel.Active())
	m.remove(i)

	if i > 0 {
		m.focus(m.items[i-1], true)
	} else if hadFocus {
		m.sel.Blur()
	}
	return true
}

func (m *Manager) remove(i int) {
	inst := m.items[i]
	m.items = append(m.items[:i], m.items[i+1:]...)
	m.root.RemoveChild(i)
	if d, ok := inst.Block.(blocks.Destroyer); ok {
		d.Destroy()
	}
}

// Reset destroys every block. Only a reload may leave the sequence empty.
func (m *Manager) Reset() {
	for len(m.items) > 0 {
		m.remove(len(m.items) - 1)
	}
	m.sel.Blur()
}

// Save maps the sequence to document entries without touching the blocks.
func (m *Manager) Save() domain.Document {
	doc := make(domain.Document, 0, len(m.items))
	for _, inst := range m.items {
		doc = append(doc, domain.Entry{Type: inst.Type, Data: domain.CloneData(inst.Block.Save())})
	}
	return doc
}

// SetReadOnly locks every surface and refuses structural edits.
func (m *Manager) SetReadOnly(ro bool) {
	m.readOnly = ro
	m.root.SetReadOnly(ro)
	for _, inst := range m.items {
		if s, ok := inst.Block.(blocks.ReadOnlySetter); ok {
			s.SetReadOnly(ro)
		}
	}
}

func (m *Manager) ReadOnly() bool { return m.readOnly }

// ───── Signals ─────

func (m *Manager) handleEnter(id string) {
	i := m.IndexOf(id)
	if i < 0 {
		return
	}
	var data domain.BlockData = domain.ParagraphData{Text: domain.EmptySegments()}
	if sp, ok := m.items[i].Block.(blocks.Splitter); ok {
		if segs, ok := sp.TakePendingSplit(); ok {
			data = domain.ParagraphData{Text: segs}
		}
	}
	if _, err := m.Insert(domain.BlockTypeParagraph, data, i); err != nil {
		log.Printf("[EDITOR] enter: %v", err)
	}
}

func (m *Manager) handleBackspace(id string) {
	i := m.IndexOf(id)
	if i < 0 {
		return
	}
	if mg, ok := m.items[i].Block.(blocks.Merger); ok {
		if segs, ok := mg.TakePendingMerge(); ok {
			m.merge(i, segs)
			return
		}
	}
	m.DeleteAt(i)
}

// merge hands segs to the previous block when it is a paragraph and removes
// block i. Otherwise the caret just moves back and nothing is removed.
func (m *Manager) merge(i int, segs []domain.TextSegment) {
	if i == 0 {
		return
	}
	prev := m.items[i-1]
	app, ok := prev.Block.(blocks.Appender)
	if !ok || prev.Type != domain.BlockTypeParagraph {
		m.focus(prev, true)
		return
	}
	app.AppendSegments(segs)
	m.DeleteAt(i)
}

func (m *Manager) focus(inst *Instance, atEnd bool) {
	target := inst.Block.Render()
	if f, ok := inst.Block.(blocks.Focusable); ok {
		if s := f.FocusSurface(atEnd); s != nil {
			target = s
		}
	}
	m.sel.Focus(target)
	if atEnd {
		surface.PlaceCaretAtEnd(m.sel, target)
	}
}
