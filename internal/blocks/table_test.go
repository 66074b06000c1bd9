package blocks_test

import (
	"fmt"
	"testing"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func labeledTable(rows, cols int) domain.TableData {
	d := domain.TableData{Rows: rows, Columns: cols}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d.Cells = append(d.Cells, domain.Cell{Text: []domain.TextSegment{{Text: fmt.Sprintf("%d,%d", r, c)}}})
		}
	}
	return d
}

func newTable(t *testing.T, data domain.BlockData) (*blocks.Table, *surface.Selection) {
	t.Helper()
	sel := surface.NewSelection()
	b, _ := blocks.New(domain.BlockTypeTable, data, blocks.Callbacks{}, blocks.Options{Selection: sel})
	tb := b.(*blocks.Table)
	tb.Render()
	return tb, sel
}

func cellText(d domain.TableData, r, c int) string {
	return domain.PlainText(d.Cells[d.Index(r, c)].Text)
}

func checkShape(t *testing.T, d domain.TableData) {
	t.Helper()
	if len(d.Cells) != d.Rows*d.Columns {
		t.Fatalf("flat index broken: %d cells for %dx%d", len(d.Cells), d.Rows, d.Columns)
	}
}

// ───── Construction ─────

func TestTableDefaultsToThreeByThree(t *testing.T) {
	tb, _ := newTable(t, nil)
	d := tb.Save().(domain.TableData)
	if d.Rows != 3 || d.Columns != 3 {
		t.Fatalf("expected 3x3, got %dx%d", d.Rows, d.Columns)
	}
	checkShape(t, d)
}

func TestTableRegistryDefaultIsTwoByTwo(t *testing.T) {
	def, ok := blocks.Lookup("table")
	if !ok {
		t.Fatal("table definition missing")
	}
	d := def.DefaultData().(domain.TableData)
	if d.Rows != 2 || d.Columns != 2 || len(d.Cells) != 4 {
		t.Fatalf("unexpected default %+v", d)
	}
}

// ───── Resizing ─────

func TestTableColumnResizeKeepsCellsAddressable(t *testing.T) {
	tb, _ := newTable(t, labeledTable(2, 3))

	tb.AddColumn()
	d := tb.Save().(domain.TableData)
	checkShape(t, d)
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			if got := cellText(d, r, c); got != fmt.Sprintf("%d,%d", r, c) {
				t.Fatalf("after add column (%d,%d) = %q", r, c, got)
			}
		}
		if cellText(d, r, 3) != "" {
			t.Fatalf("new column cell in row %d not empty", r)
		}
	}

	tb.RemoveColumn()
	tb.RemoveColumn()
	d = tb.Save().(domain.TableData)
	checkShape(t, d)
	if d.Columns != 2 || cellText(d, 1, 1) != "1,1" {
		t.Fatalf("after remove column: %+v", d)
	}
}

func TestTableRowResize(t *testing.T) {
	tb, _ := newTable(t, labeledTable(2, 2))
	tb.AddRow()
	d := tb.Save().(domain.TableData)
	checkShape(t, d)
	if d.Rows != 3 || cellText(d, 2, 0) != "" || cellText(d, 1, 1) != "1,1" {
		t.Fatalf("after add row: %+v", d)
	}
	tb.RemoveRow()
	tb.RemoveRow()
	d = tb.Save().(domain.TableData)
	checkShape(t, d)
	if d.Rows != 1 || cellText(d, 0, 1) != "0,1" {
		t.Fatalf("after remove rows: %+v", d)
	}
}

func TestTableRefusesBelowOne(t *testing.T) {
	tb, _ := newTable(t, labeledTable(1, 1))
	if tb.RemoveRow() || tb.RemoveColumn() {
		t.Fatal("shrinking below one row/column should be refused")
	}
	checkShape(t, tb.Save().(domain.TableData))
}

func TestTableRandomResizeSequence(t *testing.T) {
	tb, _ := newTable(t, labeledTable(2, 2))
	ops := []func() bool{tb.AddRow, tb.AddColumn, tb.RemoveRow, tb.RemoveColumn}
	for i := 0; i < 40; i++ {
		ops[(i*7+i/3)%len(ops)]()
		d := tb.Save().(domain.TableData)
		checkShape(t, d)
		if len(tb.Render().Child(0).Children()) != d.Rows {
			t.Fatalf("rendered rows out of sync at step %d", i)
		}
	}
}

// ───── Editing ─────

func TestTableCellInputWritesFlatIndex(t *testing.T) {
	tb, _ := newTable(t, labeledTable(2, 2))
	tb.AddColumn()
	tb.Cell(1, 2).Edit("<b>new</b>")

	d := tb.Save().(domain.TableData)
	seg := d.Cells[d.Index(1, 2)].Text[0]
	if seg.Text != "new" || !seg.Bold {
		t.Fatalf("unexpected cell %+v", seg)
	}
}

func TestTableTabNavigation(t *testing.T) {
	tb, sel := newTable(t, labeledTable(2, 2))
	sel.Focus(tb.Cell(0, 1))

	tb.Cell(0, 1).KeyDown(surface.KeyEvent{Key: surface.KeyTab})
	if !sel.Has(tb.Cell(1, 0)) {
		t.Fatal("tab should wrap to the next row")
	}
	tb.Cell(1, 0).KeyDown(surface.KeyEvent{Key: surface.KeyTab, Shift: true})
	if !sel.Has(tb.Cell(0, 1)) {
		t.Fatal("shift+tab should go back")
	}

	sel.Focus(tb.Cell(1, 1))
	tb.Cell(1, 1).KeyDown(surface.KeyEvent{Key: surface.KeyTab})
	if !sel.Has(tb.Cell(1, 1)) {
		t.Fatal("tab past the last cell should do nothing")
	}
}

func TestTableResizeKeepsCaretCell(t *testing.T) {
	tb, sel := newTable(t, labeledTable(2, 2))
	sel.Focus(tb.Cell(1, 1))
	tb.AddColumn()
	if !sel.Has(tb.Cell(1, 1)) {
		t.Fatal("caret should stay on the same cell after resize")
	}
	tb.RemoveRow()
	if !sel.Has(tb.Cell(0, 1)) {
		t.Fatal("caret should clamp into the remaining grid")
	}
}
