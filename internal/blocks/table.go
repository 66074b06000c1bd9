package blocks

import (
	"blockmark/internal/codec"
	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func init() { RegisterType(domain.BlockTypeTable, NewTable) }

const defaultTableSize = 3

// Table is a grid of editable cells. data.Cells is the only source of truth;
// cell surfaces are rebuilt from it after every structural change.
type Table struct {
	data     domain.TableData
	sel      *surface.Selection
	el       *surface.Surface
	cells    []*surface.Surface
	readOnly bool
}

func newTableData(rows, cols int) domain.TableData {
	cells := make([]domain.Cell, rows*cols)
	for i := range cells {
		cells[i] = domain.Cell{Text: domain.EmptySegments()}
	}
	return domain.TableData{Rows: rows, Columns: cols, Cells: cells}
}

func NewTable(data domain.BlockData, _ Callbacks, opts Options) Block {
	d, _ := data.(domain.TableData)
	if d.Rows <= 0 {
		d.Rows = defaultTableSize
	}
	if d.Columns <= 0 {
		d.Columns = defaultTableSize
	}
	cells := make([]domain.Cell, d.Rows*d.Columns)
	for i := range cells {
		if i < len(d.Cells) {
			cells[i] = domain.Cell{Text: domain.NormalizeSegments(d.Cells[i].Text)}
		} else {
			cells[i] = domain.Cell{Text: domain.EmptySegments()}
		}
	}
	d.Cells = cells
	return &Table{data: d, sel: opts.selection()}
}

func (t *Table) Type() domain.BlockType { return domain.BlockTypeTable }

func (t *Table) Render() *surface.Surface {
	if t.el == nil {
		t.el = surface.New("table")
		t.rebuild(cellPos{})
	}
	return t.el
}

func (t *Table) Save() domain.BlockData {
	return domain.CloneData(t.data)
}

func (t *Table) FocusSurface(atEnd bool) *surface.Surface {
	t.Render()
	if atEnd {
		return t.cells[len(t.cells)-1]
	}
	return t.cells[0]
}

func (t *Table) SetReadOnly(ro bool) { t.readOnly = ro }

func (t *Table) Rows() int    { return t.data.Rows }
func (t *Table) Columns() int { return t.data.Columns }

// Cell returns the surface for (row, col), or nil when out of range.
func (t *Table) Cell(row, col int) *surface.Surface {
	t.Render()
	if row < 0 || row >= t.data.Rows || col < 0 || col >= t.data.Columns {
		return nil
	}
	return t.cells[t.data.Index(row, col)]
}

// rebuild recreates every cell surface from data. If a cell held the caret
// before the edit, the caret moves to the same position clamped to the grid.
func (t *Table) rebuild(active cellPos) {
	t.el.ClearChildren()
	t.cells = make([]*surface.Surface, 0, len(t.data.Cells))
	body := surface.New("tbody")
	for r := 0; r < t.data.Rows; r++ {
		tr := surface.New("tr")
		for c := 0; c < t.data.Columns; c++ {
			cell := t.newCell(t.data.Cells[t.data.Index(r, c)].Text)
			tr.Append(cell)
			t.cells = append(t.cells, cell)
		}
		body.Append(tr)
	}
	t.el.Append(body)

	if active.ok {
		row := min(active.row, t.data.Rows-1)
		col := min(active.col, t.data.Columns-1)
		t.sel.Focus(t.cells[t.data.Index(row, col)])
	}
}

type cellPos struct {
	row, col int
	ok       bool
}

func (t *Table) activeCell() cellPos {
	for i, c := range t.cells {
		if t.sel.Has(c) {
			return cellPos{row: i / t.data.Columns, col: i % t.data.Columns, ok: true}
		}
	}
	return cellPos{}
}

func (t *Table) newCell(segs []domain.TextSegment) *surface.Surface {
	cell := textSurface("td", segs, t.sel)
	cell.OnInput(func() {
		if i := t.indexOf(cell); i >= 0 {
			t.data.Cells[i].Text = codec.Parse(cell.Markup())
		}
	})
	cell.OnKeyDown(func(ev surface.KeyEvent) bool {
		if ev.Key != surface.KeyTab {
			return false
		}
		i := t.indexOf(cell)
		next := i + 1
		if ev.Shift {
			next = i - 1
		}
		if i >= 0 && next >= 0 && next < len(t.cells) {
			t.sel.Focus(t.cells[next])
		}
		return true
	})
	return cell
}

func (t *Table) indexOf(cell *surface.Surface) int {
	for i, c := range t.cells {
		if c == cell {
			return i
		}
	}
	return -1
}

// ───── Structural edits ─────
// Each edit rebuilds the whole cell sequence so that the cell at (r, c) is
// always at r*columns+c.

// AddRow appends a row of empty cells.
func (t *Table) AddRow() bool {
	if t.readOnly {
		return false
	}
	active := t.activeCell()
	for c := 0; c < t.data.Columns; c++ {
		t.data.Cells = append(t.data.Cells, domain.Cell{Text: domain.EmptySegments()})
	}
	t.data.Rows++
	t.refresh(active)
	return true
}

// AddColumn appends an empty cell to the end of every row.
func (t *Table) AddColumn() bool {
	if t.readOnly {
		return false
	}
	active := t.activeCell()
	cols := t.data.Columns
	cells := make([]domain.Cell, 0, t.data.Rows*(cols+1))
	for r := 0; r < t.data.Rows; r++ {
		cells = append(cells, t.data.Cells[r*cols:(r+1)*cols]...)
		cells = append(cells, domain.Cell{Text: domain.EmptySegments()})
	}
	t.data.Cells = cells
	t.data.Columns++
	t.refresh(active)
	return true
}

// RemoveRow drops the last row. It refuses to go below one row.
func (t *Table) RemoveRow() bool {
	if t.readOnly || t.data.Rows <= 1 {
		return false
	}
	active := t.activeCell()
	t.data.Cells = t.data.Cells[:len(t.data.Cells)-t.data.Columns]
	t.data.Rows--
	t.refresh(active)
	return true
}

// RemoveColumn drops the last column. It refuses to go below one column.
func (t *Table) RemoveColumn() bool {
	if t.readOnly || t.data.Columns <= 1 {
		return false
	}
	active := t.activeCell()
	cols := t.data.Columns
	cells := make([]domain.Cell, 0, t.data.Rows*(cols-1))
	for r := 0; r < t.data.Rows; r++ {
		cells = append(cells, t.data.Cells[r*cols:r*cols+cols-1]...)
	}
	t.data.Cells = cells
	t.data.Columns--
	t.refresh(active)
	return true
}

func (t *Table) refresh(active cellPos) {
	if t.el != nil {
		t.rebuild(active)
	}
}
