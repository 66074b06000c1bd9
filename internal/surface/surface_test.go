package surface_test

import (
	"testing"

	"blockmark/internal/surface"
)

// ───── Caret offsets ─────

func TestCaretOffsetWithinAccumulatesLeaves(t *testing.T) {
	s := surface.NewEditable("p", "Hello <b>big</b> world")
	// leaves: "Hello ", "big", " world"
	if got := surface.CaretOffsetWithin(s, surface.Caret{Leaf: 2, Offset: 3}); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := surface.CaretOffsetWithin(s, surface.Caret{Leaf: 0, Offset: 0}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestCaretOffsetWithinUnknownLeafIsTotal(t *testing.T) {
	s := surface.NewEditable("p", "abc<i>de</i>")
	if got := surface.CaretOffsetWithin(s, surface.Caret{Leaf: 9}); got != 5 {
		t.Fatalf("expected total length 5, got %d", got)
	}
}

func TestCaretAtRoundTrips(t *testing.T) {
	s := surface.NewEditable("p", "ab<b>cd</b>ef")
	for off := 0; off <= 6; off++ {
		c := surface.CaretAt(s, off)
		if got := surface.CaretOffsetWithin(s, c); got != off {
			t.Errorf("offset %d -> %+v -> %d", off, c, got)
		}
	}
}

func TestCaretCountsRunes(t *testing.T) {
	s := surface.NewEditable("p", "héllo")
	sel := surface.NewSelection()
	sel.SetOffset(s, 2)
	if sel.Offset() != 2 {
		t.Fatalf("expected rune offset 2, got %d", sel.Offset())
	}
}

// ───── PlaceCaretAtEnd ─────

func TestPlaceCaretAtEnd(t *testing.T) {
	s := surface.NewEditable("p", "one <u>two</u>")
	sel := surface.NewSelection()
	surface.PlaceCaretAtEnd(sel, s)
	if !sel.Has(s) || sel.Offset() != 7 {
		t.Fatalf("expected caret at 7 in s, got %d (active=%v)", sel.Offset(), sel.Has(s))
	}
}

func TestPlaceCaretAtEndEmptySurfaceIsNoop(t *testing.T) {
	other := surface.NewEditable("p", "x")
	empty := surface.NewEditable("p", "<br>")
	sel := surface.NewSelection()
	sel.SetOffset(other, 1)

	surface.PlaceCaretAtEnd(sel, empty)

	if !sel.Has(other) || sel.Offset() != 1 {
		t.Fatalf("selection changed on empty surface")
	}
}

// ───── InsertText ─────

func TestInsertTextAtCaretKeepsStyle(t *testing.T) {
	s := surface.NewEditable("p", "<b>ab</b>cd")
	sel := surface.NewSelection()
	sel.SetOffset(s, 2)

	if !sel.InsertText("XY") {
		t.Fatal("insert refused")
	}
	if s.Markup() != "<strong>abXY</strong>cd" {
		t.Fatalf("unexpected markup %q", s.Markup())
	}
	if sel.Offset() != 4 {
		t.Fatalf("caret should follow insert, got %d", sel.Offset())
	}
}

func TestReadOnlySurfaceIgnoresEvents(t *testing.T) {
	s := surface.NewEditable("p", "x")
	fired := 0
	s.OnInput(func() { fired++ })
	s.OnKeyDown(func(surface.KeyEvent) bool { fired++; return true })

	s.SetReadOnly(true)
	s.Edit("y")
	s.KeyDown(surface.KeyEvent{Key: surface.KeyEnter})

	if fired != 0 || s.Markup() != "x" {
		t.Fatalf("read-only surface handled events: fired=%d markup=%q", fired, s.Markup())
	}
}
