package blocks_test

import (
	"testing"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func newList(t *testing.T, items []string, cb blocks.Callbacks) (*blocks.List, *surface.Selection) {
	t.Helper()
	var data domain.ListData
	for _, it := range items {
		data.Items = append(data.Items, []domain.TextSegment{{Text: it}})
	}
	sel := surface.NewSelection()
	b, _ := blocks.New(domain.BlockTypeList, data, cb, blocks.Options{Selection: sel})
	l := b.(*blocks.List)
	l.Render()
	return l, sel
}

func itemTexts(l *blocks.List) []string {
	var out []string
	for _, it := range l.Save().(domain.ListData).Items {
		out = append(out, domain.PlainText(it))
	}
	return out
}

func TestListEnterInsertsEmptyItemAfter(t *testing.T) {
	l, sel := newList(t, []string{"one", "two"}, blocks.Callbacks{})
	sel.Focus(l.Item(0))

	l.Item(0).KeyDown(surface.KeyEvent{Key: surface.KeyEnter})

	got := itemTexts(l)
	if len(got) != 3 || got[0] != "one" || got[1] != "" || got[2] != "two" {
		t.Fatalf("unexpected items %q", got)
	}
	if !sel.Has(l.Item(1)) {
		t.Fatal("new item should be focused")
	}
	if l.Item(2).Attr("data-index") != "2" {
		t.Fatalf("items not renumbered: %q", l.Item(2).Attr("data-index"))
	}
}

func TestListBackspaceRemovesEmptyItem(t *testing.T) {
	back := 0
	l, sel := newList(t, []string{"one", "", "three"}, blocks.Callbacks{OnBackspace: func() { back++ }})
	sel.Focus(l.Item(1))

	l.Item(1).KeyDown(surface.KeyEvent{Key: surface.KeyBackspace})

	got := itemTexts(l)
	if len(got) != 2 || got[1] != "three" {
		t.Fatalf("unexpected items %q", got)
	}
	if back != 0 {
		t.Fatal("block-level backspace should not fire")
	}
	if !sel.Has(l.Item(0)) || sel.Offset() != 3 {
		t.Fatalf("caret should be at end of previous item, offset=%d", sel.Offset())
	}
	// Edits to the shifted item land at its new index.
	l.Item(1).Edit("third")
	if itemTexts(l)[1] != "third" {
		t.Fatalf("input routed to wrong item: %q", itemTexts(l))
	}
}

func TestListBackspaceOnOnlyItemSignalsBlock(t *testing.T) {
	back := 0
	l, sel := newList(t, []string{""}, blocks.Callbacks{OnBackspace: func() { back++ }})
	sel.Focus(l.Item(0))

	l.Item(0).KeyDown(surface.KeyEvent{Key: surface.KeyBackspace})

	if back != 1 {
		t.Fatal("expected block backspace signal")
	}
}

func TestListDefaultsToOneItem(t *testing.T) {
	l, _ := newList(t, nil, blocks.Callbacks{})
	if n := len(itemTexts(l)); n != 1 {
		t.Fatalf("expected one empty item, got %d", n)
	}
}

func TestListOrderedSwitchesContainer(t *testing.T) {
	l, _ := newList(t, []string{"a"}, blocks.Callbacks{})
	if l.Render().Tag() != "ul" {
		t.Fatalf("expected ul, got %s", l.Render().Tag())
	}
	l.SetOrdered(true)
	if l.Render().Tag() != "ol" || !l.Save().(domain.ListData).Ordered {
		t.Fatal("expected ordered list")
	}
}
