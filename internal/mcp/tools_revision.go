package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerRevisionTools() {
	// ── list_revisions ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_revisions",
		mcp.WithDescription("List the save history of a document, newest first"),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
	), s.handleListRevisions)

	// ── restore_revision (destructive) ─────────────────
	s.mcp.AddTool(mcp.NewTool("restore_revision",
		mcp.WithDescription("🛑 DESTRUCTIVE: Replace the document content with an earlier revision. Unsaved edits are lost. Requires user approval."),
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("revisionId", mcp.Description("Revision ID from list_revisions"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleRestoreRevision)
}

type revisionView struct {
	ID        string  `json:"id"`
	Seq       int     `json:"seq"`
	Label     string  `json:"label"`
	ParentID  *string `json:"parentId,omitempty"`
	Blocks    int     `json:"blocks"`
	CreatedAt string  `json:"createdAt"`
}

func (s *Server) handleListRevisions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.resolveDocumentID(req.GetArguments())
	if err != nil {
		return nil, err
	}
	revs, err := s.docs.Revisions(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]revisionView, 0, len(revs))
	for _, r := range revs {
		out = append(out, revisionView{
			ID:        r.ID,
			Seq:       r.Seq,
			Label:     r.Label,
			ParentID:  r.ParentID,
			Blocks:    len(r.Content),
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	return jsonResult(out)
}

func (s *Server) handleRestoreRevision(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id, err := s.resolveDocumentID(args)
	if err != nil {
		return nil, err
	}
	revisionID := argString(args, "revisionId")
	if revisionID == "" {
		return nil, fmt.Errorf("revisionId is required")
	}
	if err := s.approval.Request(ctx, "restore_revision", fmt.Sprintf("Restore %s to revision %s", id, revisionID)); err != nil {
		if errors.Is(err, ErrRejected) {
			return textResult("Action rejected by user"), nil
		}
		return nil, err
	}
	d, err := s.sessions.Restore(ctx, id, revisionID)
	if err != nil {
		return nil, err
	}
	s.emitDocumentChanged(ctx, id)
	return textResult(fmt.Sprintf("Document %s restored to revision %s (%d blocks)", d.ID, revisionID, len(d.Content))), nil
}
