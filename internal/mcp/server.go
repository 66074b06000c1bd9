package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"blockmark/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for blockmark. Agents drive editing sessions
// through its tools and read documents through its resources.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue

	docs     *service.DocumentService
	sessions *service.SessionService

	// Active document (set by open_document)
	mu               sync.Mutex
	activeDocumentID string
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Emitter     EventEmitter
	Documents   *service.DocumentService
	Sessions    *service.SessionService
	Approvals   ApprovalBackend // when set, approvals are decided by another process
	AutoApprove bool
}

// New creates and configures a new MCP server with all tools and resources.
func New(deps Deps) *Server {
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.LogEmitter{}
	}
	approval := NewApprovalQueue(emitter)
	if deps.Approvals != nil {
		approval.SetBackend(deps.Approvals)
	}
	approval.SetAutoApprove(deps.AutoApprove)

	s := &Server{
		emitter:  emitter,
		approval: approval,
		docs:     deps.Documents,
		sessions: deps.Sessions,
	}

	s.mcp = server.NewMCPServer(
		"blockmark-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerDocumentTools()
	s.registerEditTools()
	s.registerMediaTools()
	s.registerRevisionTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) {
	s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) {
	s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// emitDocumentChanged notifies listeners that a live session changed.
func (s *Server) emitDocumentChanged(ctx context.Context, docID string) {
	s.emitter.Emit(ctx, "mcp:document-changed", map[string]string{"documentId": docID})
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

func boolPtr(v bool) *bool { return &v }

func (s *Server) setActive(docID string) {
	s.mu.Lock()
	s.activeDocumentID = docID
	s.mu.Unlock()
}

// resolveDocumentID returns the documentId from tool args or falls back to
// the active document.
func (s *Server) resolveDocumentID(args map[string]any) (string, error) {
	if id, ok := args["documentId"].(string); ok && id != "" {
		return id, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeDocumentID != "" {
		return s.activeDocumentID, nil
	}
	return "", fmt.Errorf("no documentId provided and no active document (use open_document first)")
}

// session returns the open session for the tool's document, opening it on
// first use.
func (s *Server) session(ctx context.Context, args map[string]any) (*service.Session, error) {
	id, err := s.resolveDocumentID(args)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", id, err)
	}
	return sess, nil
}
