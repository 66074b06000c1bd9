package domain

import "encoding/json"

type BlockType string

const (
	BlockTypeParagraph BlockType = "paragraph"
	BlockTypeList      BlockType = "list"
	BlockTypeTable     BlockType = "table"
	BlockTypeImage     BlockType = "image"
	BlockTypeYouTube   BlockType = "youtube"
)

// BlockData is the persisted payload of one block. The concrete type is one of
// ParagraphData, ListData, TableData, ImageData, YouTubeData or RawData.
type BlockData interface {
	BlockType() BlockType
}

type ParagraphData struct {
	Text []TextSegment `json:"text"`
}

func (ParagraphData) BlockType() BlockType { return BlockTypeParagraph }

// ListData holds one segment sequence per item. Ordered only switches the
// rendered container between numbered and bulleted.
type ListData struct {
	Ordered bool            `json:"ordered"`
	Items   [][]TextSegment `json:"items"`
}

func (ListData) BlockType() BlockType { return BlockTypeList }

type Cell struct {
	Text []TextSegment `json:"text"`
}

// TableData stores cells row-major: the cell at (row, col) lives at
// row*Columns+col and len(Cells) == Rows*Columns.
type TableData struct {
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Cells   []Cell `json:"cells"`
}

func (TableData) BlockType() BlockType { return BlockTypeTable }

// Index returns the flat index of the cell at (row, col).
func (t TableData) Index(row, col int) int {
	return row*t.Columns + col
}

// ImageData with an empty Src is awaiting upload.
type ImageData struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Caption string `json:"caption"`
	Width   string `json:"width"`
	Height  string `json:"height"`
}

func (ImageData) BlockType() BlockType { return BlockTypeImage }

// YouTubeData keeps only the URL; the video id is always derived from it.
type YouTubeData struct {
	URL string `json:"url"`
}

func (YouTubeData) BlockType() BlockType { return BlockTypeYouTube }

// RawData carries an entry whose type is not known to this build. Fields is
// the complete JSON object as read.
type RawData struct {
	Type   BlockType
	Fields json.RawMessage
}

func (r RawData) BlockType() BlockType { return r.Type }

// CloneData returns a deep copy of d so callers can't alias a live block.
func CloneData(d BlockData) BlockData {
	switch v := d.(type) {
	case ParagraphData:
		return ParagraphData{Text: CloneSegments(v.Text)}
	case ListData:
		items := make([][]TextSegment, len(v.Items))
		for i, it := range v.Items {
			items[i] = CloneSegments(it)
		}
		return ListData{Ordered: v.Ordered, Items: items}
	case TableData:
		cells := make([]Cell, len(v.Cells))
		for i, c := range v.Cells {
			cells[i] = Cell{Text: CloneSegments(c.Text)}
		}
		return TableData{Rows: v.Rows, Columns: v.Columns, Cells: cells}
	case RawData:
		return RawData{Type: v.Type, Fields: append(json.RawMessage(nil), v.Fields...)}
	default:
		return d
	}
}
