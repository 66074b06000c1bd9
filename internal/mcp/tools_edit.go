package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/editor"
	"blockmark/internal/service"
	"blockmark/internal/surface"

	"github.com/mark3labs/mcp-go/mcp"
)

// Surface addressing shared by the editing tools.
var targetParams = []mcp.ToolOption{
	mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	mcp.WithString("blockId", mcp.Description("Block ID (or use index)")),
	mcp.WithNumber("index", mcp.Description("Block position (used when blockId is omitted)")),
	mcp.WithNumber("item", mcp.Description("List item index (list blocks)")),
	mcp.WithNumber("row", mcp.Description("Row (table blocks)")),
	mcp.WithNumber("col", mcp.Description("Column (table blocks)")),
	mcp.WithString("part", mcp.Description("Image field: alt or caption")),
	mcp.WithNumber("offset", mcp.Description("Caret offset in characters (optional, defaults to end)")),
}

func toolWithTarget(name, description string, extra ...mcp.ToolOption) mcp.Tool {
	opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, targetParams...)
	return mcp.NewTool(name, append(opts, extra...)...)
}

func (s *Server) registerEditTools() {
	// ── list_blocks ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_blocks",
		mcp.WithDescription("List the blocks of the open document with ids, content and focus"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleListBlocks)

	// ── insert_block ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("insert_block",
		mcp.WithDescription("Insert a block after the given position and focus it. kind is a key from list_block_types."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("kind", mcp.Description("Block kind: paragraph, unorderedList, orderedList, table, image, youtube"), mcp.Required()),
		mcp.WithNumber("after", mcp.Description("Insert after this index (optional, defaults to the end)")),
		mcp.WithString("data", mcp.Description("Initial block fields as a JSON object (optional)")),
	), s.handleInsertBlock)

	// ── remove_block (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("remove_block",
		mcp.WithDescription("🛑 DESTRUCTIVE: Remove a block. The last block is never removed. Requires user approval."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("blockId", mcp.Description("Block ID (or use index)")),
		mcp.WithNumber("index", mcp.Description("Block position (used when blockId is omitted)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRemoveBlock)

	// ── input_markup ───────────────────────────────────
	s.mcp.AddTool(toolWithTarget("input_markup",
		"Replace the markup of an editable surface (supports <b>, <strong>, <i>, <em>, <u>) and fire its input event",
		mcp.WithString("markup", mcp.Description("New inline markup"), mcp.Required()),
	), s.handleInputMarkup)

	// ── press_key ──────────────────────────────────────
	s.mcp.AddTool(toolWithTarget("press_key",
		"Place the caret and press Enter, Backspace or Tab in a surface",
		mcp.WithString("key", mcp.Description("Enter, Backspace or Tab"), mcp.Required()),
		mcp.WithBoolean("shift", mcp.Description("Shift modifier")),
	), s.handlePressKey)

	// ── paste_text ─────────────────────────────────────
	s.mcp.AddTool(toolWithTarget("paste_text",
		"Paste clipboard HTML or text at the caret. Formatting is stripped and whitespace collapsed.",
		mcp.WithString("data", mcp.Description("Clipboard content"), mcp.Required()),
	), s.handlePasteText)

	// ── table_resize ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("table_resize",
		mcp.WithDescription("Add or remove a table row or column. Tables keep at least one row and one column."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("blockId", mcp.Description("Block ID (or use index)")),
		mcp.WithNumber("index", mcp.Description("Block position (used when blockId is omitted)")),
		mcp.WithString("op", mcp.Description("addRow, addColumn, removeRow or removeColumn"), mcp.Required()),
	), s.handleTableResize)
}

// ── Views ──────────────────────────────────────────────────

type blockView struct {
	ID      string       `json:"id"`
	Index   int          `json:"index"`
	Type    string       `json:"type"`
	Focused bool         `json:"focused"`
	Content domain.Entry `json:"content"`
	State   string       `json:"state,omitempty"`
	Notice  string       `json:"notice,omitempty"`
}

type sessionView struct {
	DocumentID string      `json:"documentId"`
	Dirty      bool        `json:"dirty"`
	Valid      bool        `json:"valid"`
	Blocks     []blockView `json:"blocks"`
}

func viewBlocks(ed *editor.Editor) []blockView {
	active := ed.ActiveBlock()
	insts := ed.Blocks()
	out := make([]blockView, len(insts))
	for i, inst := range insts {
		v := blockView{
			ID:      inst.ID,
			Index:   i,
			Type:    string(inst.Type),
			Focused: i == active,
			Content: domain.Entry{Type: inst.Type, Data: inst.Block.Save()},
		}
		switch b := inst.Block.(type) {
		case *blocks.Image:
			v.State = b.State()
			if msg, ok := b.Notice(); ok {
				v.Notice = msg
			}
		case *blocks.YouTube:
			if msg, ok := b.Notice(); ok {
				v.Notice = msg
			}
		}
		out[i] = v
	}
	return out
}

func (s *Server) blocksResult(sess *service.Session) (*mcp.CallToolResult, error) {
	v := sessionView{DocumentID: sess.ID(), Dirty: sess.Dirty()}
	sess.View(func(ed *editor.Editor) error {
		v.Valid = ed.Validate()
		v.Blocks = viewBlocks(ed)
		return nil
	})
	return jsonResult(v)
}

// ── Targeting ──────────────────────────────────────────────

func resolveBlock(ed *editor.Editor, args map[string]any) (*editor.Instance, error) {
	if id := argString(args, "blockId"); id != "" {
		if inst := ed.Block(id); inst != nil {
			return inst, nil
		}
		return nil, fmt.Errorf("block %s not found", id)
	}
	i, err := argInt(args, "index", -1)
	if err != nil {
		return nil, err
	}
	insts := ed.Blocks()
	if i < 0 || i >= len(insts) {
		return nil, fmt.Errorf("blockId or a valid index is required")
	}
	return insts[i], nil
}

// targetSurface picks the editable surface a tool call addresses inside a
// block.
func targetSurface(inst *editor.Instance, args map[string]any) (*surface.Surface, error) {
	var target *surface.Surface
	switch b := inst.Block.(type) {
	case *blocks.Paragraph:
		target = b.Render()
	case *blocks.List:
		i, err := argInt(args, "item", 0)
		if err != nil {
			return nil, err
		}
		target = b.Item(i)
	case *blocks.Table:
		row, err := argInt(args, "row", 0)
		if err != nil {
			return nil, err
		}
		col, err := argInt(args, "col", 0)
		if err != nil {
			return nil, err
		}
		target = b.Cell(row, col)
	case *blocks.Image:
		if argString(args, "part") == "alt" {
			target = b.AltSurface()
		} else {
			target = b.CaptionSurface()
		}
	case *blocks.YouTube:
		target = b.InputSurface()
	}
	if target == nil {
		return nil, fmt.Errorf("block %s has no such editable surface", inst.ID)
	}
	return target, nil
}

// placeCaret focuses target with the caret at args["offset"], or at the end.
func placeCaret(ed *editor.Editor, target *surface.Surface, args map[string]any) error {
	offset, err := argInt(args, "offset", -1)
	if err != nil {
		return err
	}
	sel := ed.Selection()
	if offset < 0 {
		sel.Focus(target)
		surface.PlaceCaretAtEnd(sel, target)
		return nil
	}
	sel.SetOffset(target, offset)
	return nil
}

// editSurface runs fn on the addressed surface inside the session lock.
func (s *Server) editSurface(ctx context.Context, args map[string]any, fn func(ed *editor.Editor, target *surface.Surface) error) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	err = sess.Do(func(ed *editor.Editor) error {
		inst, err := resolveBlock(ed, args)
		if err != nil {
			return err
		}
		target, err := targetSurface(inst, args)
		if err != nil {
			return err
		}
		if err := placeCaret(ed, target, args); err != nil {
			return err
		}
		return fn(ed, target)
	})
	if err != nil {
		return nil, err
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleListBlocks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return s.blocksResult(sess)
}

func (s *Server) handleInsertBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	kind := argString(args, "kind")
	def, ok := blocks.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("insert block: %w: %q", editor.ErrUnknownBlockType, kind)
	}
	after, err := argInt(args, "after", -1)
	if err != nil {
		return nil, err
	}
	data := def.DefaultData()
	if raw := argString(args, "data"); raw != "" {
		if data, err = decodeBlockFields(def.Type, raw); err != nil {
			return nil, err
		}
	}

	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	err = sess.Do(func(ed *editor.Editor) error {
		_, err := ed.AddBlock(def.Type, data, after)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

// decodeBlockFields reads a JSON object of block fields through the document
// decoder.
func decodeBlockFields(t domain.BlockType, raw string) (domain.BlockData, error) {
	var fields map[string]json.RawMessage
	if err := parseJSON(raw, &fields); err != nil {
		return nil, fmt.Errorf("data must be a JSON object: %w", err)
	}
	typ, _ := json.Marshal(t)
	fields["type"] = typ
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var entry domain.Entry
	if err := json.Unmarshal(b, &entry); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", t, err)
	}
	return entry.Data, nil
}

func (s *Server) handleRemoveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	var id string
	if err := sess.View(func(ed *editor.Editor) error {
		inst, err := resolveBlock(ed, args)
		if err != nil {
			return err
		}
		id = inst.ID
		return nil
	}); err != nil {
		return nil, err
	}

	if err := s.approval.Request(ctx, "remove_block", fmt.Sprintf("Remove block %s from %s", id, sess.ID())); err != nil {
		if errors.Is(err, ErrRejected) {
			return textResult("Action rejected by user"), nil
		}
		return nil, err
	}

	var removed bool
	sess.Do(func(ed *editor.Editor) error {
		if i := ed.IndexOf(id); i >= 0 {
			removed = ed.RemoveBlock(i)
		}
		return nil
	})
	if !removed {
		return mcp.NewToolResultError("block was not removed (last block, read-only, or already gone)"), nil
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

func (s *Server) handleInputMarkup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	markup := argString(args, "markup")
	return s.editSurface(ctx, args, func(ed *editor.Editor, target *surface.Surface) error {
		if !target.Edit(markup) {
			return fmt.Errorf("surface is read-only")
		}
		surface.PlaceCaretAtEnd(ed.Selection(), target)
		return nil
	})
}

func (s *Server) handlePressKey(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	key := argString(args, "key")
	switch key {
	case surface.KeyEnter, surface.KeyBackspace, surface.KeyTab:
	default:
		return nil, fmt.Errorf("unsupported key %q", key)
	}
	return s.editSurface(ctx, args, func(ed *editor.Editor, target *surface.Surface) error {
		target.KeyDown(surface.KeyEvent{Key: key, Shift: argBool(args, "shift")})
		return nil
	})
}

func (s *Server) handlePasteText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	data := argString(args, "data")
	return s.editSurface(ctx, args, func(ed *editor.Editor, target *surface.Surface) error {
		target.Paste(data)
		return nil
	})
}

func (s *Server) handleTableResize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	op := argString(args, "op")
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	var applied bool
	err = sess.Do(func(ed *editor.Editor) error {
		inst, err := resolveBlock(ed, args)
		if err != nil {
			return err
		}
		t, ok := inst.Block.(*blocks.Table)
		if !ok {
			return fmt.Errorf("block %s is a %s, not a table", inst.ID, inst.Type)
		}
		switch op {
		case "addRow":
			applied = t.AddRow()
		case "addColumn":
			applied = t.AddColumn()
		case "removeRow":
			applied = t.RemoveRow()
		case "removeColumn":
			applied = t.RemoveColumn()
		default:
			return fmt.Errorf("unknown op %q", op)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return mcp.NewToolResultError(fmt.Sprintf("%s refused", op)), nil
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}
