package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"blockmark/internal/blocks"
	"blockmark/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDocumentTools() {
	// ── list_block_types ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_block_types",
		mcp.WithDescription("List the block kinds that can be inserted (key, name, type)"),
	), s.handleListBlockTypes)

	// ── create_document ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new document holding one empty paragraph and make it active"),
		mcp.WithString("title", mcp.Description("Document title"), mcp.Required()),
	), s.handleCreateDocument)

	// ── list_documents ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List all stored documents"),
	), s.handleListDocuments)

	// ── get_document ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a stored document with its JSON content"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleGetDocument)

	// ── rename_document ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("rename_document",
		mcp.WithDescription("Rename a document"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("title", mcp.Description("New title"), mcp.Required()),
	), s.handleRenameDocument)

	// ── set_document_required ──────────────────────────
	s.mcp.AddTool(mcp.NewTool("set_document_required",
		mcp.WithDescription("Set whether the document must have content to be saved"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithBoolean("required", mcp.Description("Require content"), mcp.Required()),
	), s.handleSetDocumentRequired)

	// ── delete_document (destructive) ──────────────────
	s.mcp.AddTool(mcp.NewTool("delete_document",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a document. Requires user approval."),
		mcp.WithString("documentId", mcp.Description("Document ID"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteDocument)

	// ── import_document ────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("import_document",
		mcp.WithDescription("Create a document from its JSON block array. Unknown block types are dropped."),
		mcp.WithString("title", mcp.Description("Document title"), mcp.Required()),
		mcp.WithString("content", mcp.Description("JSON array of blocks"), mcp.Required()),
	), s.handleImportDocument)

	// ── export_html ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("export_html",
		mcp.WithDescription("Render a document as static HTML. Uses the live session when the document is open."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleExportHTML)

	// ── open_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("open_document",
		mcp.WithDescription("Open an editing session and make the document active for subsequent tool calls"),
		mcp.WithString("documentId", mcp.Description("Document ID"), mcp.Required()),
	), s.handleOpenDocument)

	// ── save_document ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_document",
		mcp.WithDescription("Save the open session. Fails with 'editor cannot be empty' when the document is required and has no content."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleSaveDocument)

	// ── close_document ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("close_document",
		mcp.WithDescription("Close the editing session. With discard=true unsaved edits are dropped, which requires user approval."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithBoolean("discard", mcp.Description("Drop unsaved edits instead of saving them")),
	), s.handleCloseDocument)
}

// ── Handlers ───────────────────────────────────────────────

type blockTypeSummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Type string `json:"type"`
	Icon string `json:"icon"`
}

func (s *Server) handleListBlockTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defs := blocks.Definitions()
	out := make([]blockTypeSummary, len(defs))
	for i, d := range defs {
		out[i] = blockTypeSummary{Key: d.Key, Name: d.Name, Type: string(d.Type), Icon: d.Icon}
	}
	return jsonResult(out)
}

func (s *Server) handleCreateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := s.docs.Create(ctx, req.GetString("title", ""))
	if err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	s.setActive(d.ID)
	return jsonResult(d)
}

func (s *Server) handleListDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return jsonResult(list)
}

func (s *Server) handleGetDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocumentID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonResult(d)
}

func (s *Server) handleRenameDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocumentID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	title := req.GetString("title", "")
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if err := s.docs.Rename(ctx, id, title); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Document %s renamed to %q", id, title)), nil
}

func (s *Server) handleSetDocumentRequired(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := s.resolveDocumentID(args)
	if err != nil {
		return nil, err
	}
	required := argBool(args, "required")
	if err := s.sessions.SetRequired(ctx, id, required); err != nil {
		return nil, err
	}
	return textResult(fmt.Sprintf("Document %s required=%v", id, required)), nil
}

func (s *Server) handleDeleteDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("documentId", "")
	if id == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	d, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.approval.Request(ctx, "delete_document", fmt.Sprintf("Delete document %q", d.Title)); err != nil {
		if errors.Is(err, ErrRejected) {
			return textResult("Action rejected by user"), nil
		}
		return nil, err
	}
	s.sessions.Forget(id)
	if err := s.docs.Delete(ctx, id); err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.activeDocumentID == id {
		s.activeDocumentID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Document %s deleted", id)), nil
}

func (s *Server) handleImportDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	if content == "" {
		return nil, fmt.Errorf("content is required")
	}
	d, err := s.docs.Import(ctx, req.GetString("title", ""), []byte(content))
	if err != nil {
		return nil, err
	}
	return jsonResult(d)
}

func (s *Server) handleExportHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocumentID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if sess, ok := s.sessions.Get(id); ok {
		var html string
		sess.View(func(ed *editor.Editor) error {
			html = ed.HTML()
			return nil
		})
		return textResult(html), nil
	}
	html, err := s.docs.ExportHTML(ctx, id)
	if err != nil {
		return nil, err
	}
	return textResult(html), nil
}

func (s *Server) handleOpenDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("documentId", "")
	if id == "" {
		return nil, fmt.Errorf("documentId is required")
	}
	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	s.setActive(id)
	return s.blocksResult(sess)
}

func (s *Server) handleSaveDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocumentID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Flush(ctx, id); err != nil {
		if errors.Is(err, editor.ErrEmptyDocument) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	return textResult(fmt.Sprintf("Document %s saved", id)), nil
}

func (s *Server) handleCloseDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := s.resolveDocumentID(args)
	if err != nil {
		return nil, err
	}
	discard := argBool(args, "discard")
	if sess, ok := s.sessions.Get(id); ok && discard && sess.Dirty() {
		if err := s.approval.Request(ctx, "close_document", fmt.Sprintf("Discard unsaved edits of %s", id)); err != nil {
			if errors.Is(err, ErrRejected) {
				return textResult("Action rejected by user"), nil
			}
			return nil, err
		}
	}
	if err := s.sessions.Close(ctx, id, !discard); err != nil {
		if errors.Is(err, editor.ErrEmptyDocument) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}
	s.mu.Lock()
	if s.activeDocumentID == id {
		s.activeDocumentID = ""
	}
	s.mu.Unlock()
	return textResult(fmt.Sprintf("Document %s closed", id)), nil
}
