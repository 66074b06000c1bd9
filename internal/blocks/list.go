package blocks

import (
	"strconv"
	"strings"

	"blockmark/internal/codec"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func init() { RegisterType(domain.BlockTypeList, NewList) }

// List keeps one editable surface per item. The item surfaces are children of
// the list container and their position among them is the item index.
type List struct {
	data domain.ListData
	cb   Callbacks
	sel  *surface.Selection
	el   *surface.Surface
}

func NewList(data domain.BlockData, cb Callbacks, opts Options) Block {
	d, _ := data.(domain.ListData)
	items := make([][]domain.TextSegment, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.NormalizeSegments(it))
	}
	if len(items) == 0 {
		items = append(items, domain.EmptySegments())
	}
	return &List{
		data: domain.ListData{Ordered: d.Ordered, Items: items},
		cb:   cb,
		sel:  opts.selection(),
	}
}

func (l *List) Type() domain.BlockType { return domain.BlockTypeList }

func (l *List) Render() *surface.Surface {
	if l.el != nil {
		return l.el
	}
	l.el = surface.New(l.containerTag())
	for _, it := range l.data.Items {
		l.el.Append(l.newItem(it))
	}
	l.renumber()
	return l.el
}

func (l *List) Save() domain.BlockData {
	return domain.ListData{Ordered: l.data.Ordered, Items: cloneItems(l.data.Items)}
}

func (l *List) FocusSurface(atEnd bool) *surface.Surface {
	items := l.Render().Children()
	if atEnd {
		return items[len(items)-1]
	}
	return items[0]
}

// SetOrdered switches between numbered and bulleted rendering.
func (l *List) SetOrdered(ordered bool) {
	l.data.Ordered = ordered
	if l.el != nil {
		l.el.SetTag(l.containerTag())
	}
}

// Item returns the surface of item i, or nil.
func (l *List) Item(i int) *surface.Surface {
	return l.Render().Child(i)
}

func (l *List) containerTag() string {
	if l.data.Ordered {
		return "ol"
	}
	return "ul"
}

func (l *List) newItem(segs []domain.TextSegment) *surface.Surface {
	item := textSurface("li", segs, l.sel)
	item.OnInput(func() {
		if i := l.el.IndexOf(item); i >= 0 {
			l.data.Items[i] = codec.Parse(item.Markup())
		}
	})
	item.OnKeyDown(func(ev surface.KeyEvent) bool {
		return l.keyDown(item, ev)
	})
	return item
}

func (l *List) keyDown(item *surface.Surface, ev surface.KeyEvent) bool {
	i := l.el.IndexOf(item)
	if i < 0 {
		return false
	}
	switch {
	case ev.Key == surface.KeyEnter && !ev.Shift:
		next := l.newItem(domain.EmptySegments())
		l.insertItem(i+1, domain.EmptySegments())
		l.el.InsertChild(i+1, next)
		l.renumber()
		l.sel.Focus(next)
		return true

	case ev.Key == surface.KeyBackspace:
		if strings.TrimSpace(item.Text()) != "" {
			return false
		}
		if len(l.data.Items) == 1 {
			l.cb.backspace()
			return true
		}
		l.data.Items = append(l.data.Items[:i], l.data.Items[i+1:]...)
		l.el.RemoveChild(i)
		l.renumber()
		if i > 0 {
			prev := l.el.Child(i - 1)
			l.sel.Focus(prev)
			surface.PlaceCaretAtEnd(l.sel, prev)
		} else {
			l.sel.Focus(l.el.Child(0))
		}
		return true
	}
	return false
}

func (l *List) insertItem(i int, segs []domain.TextSegment) {
	l.data.Items = append(l.data.Items, nil)
	copy(l.data.Items[i+1:], l.data.Items[i:])
	l.data.Items[i] = segs
}

// renumber writes each item's current position onto its surface.
func (l *List) renumber() {
	for i, item := range l.el.Children() {
		item.SetAttr("data-index", strconv.Itoa(i))
	}
}
