package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"blockmark/internal/domain"
	"blockmark/internal/editor"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	documentsURI      = "blockmark://documents"
	documentURIPrefix = "blockmark://document/"
	documentURITmpl   = documentURIPrefix + "{documentId}"
	documentMIMEType  = "application/json"
)

func (s *Server) registerResources() {
	// ── blockmark://documents ──────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		documentsURI,
		"All Documents",
		mcp.WithMIMEType(documentMIMEType),
	), s.handleDocumentsResource)

	// ── blockmark://document/{documentId} ──────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			documentURITmpl,
			"Document Content",
		),
		s.handleDocumentResource,
	)
}

func (s *Server) handleDocumentsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := s.docs.List(ctx)
	if err != nil {
		return nil, err
	}
	data, _ := json.MarshalIndent(list, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      documentsURI,
			MIMEType: documentMIMEType,
			Text:     string(data),
		},
	}, nil
}

// handleDocumentResource serves the JSON block array. An open session is
// served live, including unsaved edits.
func (s *Server) handleDocumentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := documentIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract documentId from URI: %s", uri)
	}

	var content domain.Document
	if sess, ok := s.sessions.Get(id); ok {
		sess.View(func(ed *editor.Editor) error {
			content = ed.Content()
			return nil
		})
	} else {
		d, err := s.docs.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		content = d.Content
	}
	if content == nil {
		content = domain.Document{}
	}

	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: documentMIMEType,
			Text:     string(data),
		},
	}, nil
}

// documentIDFromURI extracts the id from "blockmark://document/{id}".
func documentIDFromURI(uri string) string {
	id, ok := strings.CutPrefix(uri, documentURIPrefix)
	if !ok {
		return ""
	}
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}
