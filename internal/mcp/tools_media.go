package mcpserver

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"blockmark/internal/blocks"
	"blockmark/internal/codec"
	"blockmark/internal/domain"
	"blockmark/internal/editor"
	"blockmark/internal/service"
	"blockmark/internal/surface"

	"github.com/mark3labs/mcp-go/mcp"
)

// uploadTimeout bounds how long upload_image waits for the upload to settle.
const uploadTimeout = 60 * time.Second

func (s *Server) registerMediaTools() {
	blockTarget := []mcp.ToolOption{
		mcp.WithString("documentId", mcp.Description("Document ID (optional, defaults to active document)")),
		mcp.WithString("blockId", mcp.Description("Block ID (or use index)")),
		mcp.WithNumber("index", mcp.Description("Block position (used when blockId is omitted)")),
	}
	tool := func(name, description string, extra ...mcp.ToolOption) mcp.Tool {
		opts := append([]mcp.ToolOption{mcp.WithDescription(description)}, blockTarget...)
		return mcp.NewTool(name, append(opts, extra...)...)
	}

	// ── upload_image ───────────────────────────────────
	s.mcp.AddTool(tool("upload_image",
		"Upload a file into an empty image block. Give either a local path or base64 data with a name.",
		mcp.WithString("path", mcp.Description("Local file path")),
		mcp.WithString("data", mcp.Description("Base64 file content")),
		mcp.WithString("name", mcp.Description("File name (with data)")),
		mcp.WithString("contentType", mcp.Description("MIME type (optional, sniffed when omitted)")),
		mcp.WithBoolean("drop", mcp.Description("Deliver the file as a drag-and-drop instead of a file pick")),
	), s.handleUploadImage)

	// ── set_image_text ─────────────────────────────────
	s.mcp.AddTool(tool("set_image_text",
		"Set the alt text or caption of an uploaded image",
		mcp.WithString("part", mcp.Description("alt or caption"), mcp.Required()),
		mcp.WithString("text", mcp.Description("Plain text"), mcp.Required()),
	), s.handleSetImageText)

	// ── replace_image ──────────────────────────────────
	s.mcp.AddTool(tool("replace_image",
		"Clear an uploaded image and return the block to its upload prompt",
	), s.handleReplaceImage)

	// ── embed_youtube ──────────────────────────────────
	s.mcp.AddTool(tool("embed_youtube",
		"Embed a YouTube video (watch, youtu.be, embed or v/ URLs)",
		mcp.WithString("url", mcp.Description("YouTube URL"), mcp.Required()),
	), s.handleEmbedYouTube)

	// ── edit_youtube ───────────────────────────────────
	s.mcp.AddTool(tool("edit_youtube",
		"Discard the embedded video and show the URL prompt again",
	), s.handleEditYouTube)
}

func readUploadFile(args map[string]any) (blocks.File, error) {
	f := blocks.File{ContentType: argString(args, "contentType")}
	if path := argString(args, "path"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return f, fmt.Errorf("read %s: %w", path, err)
		}
		f.Name = filepath.Base(path)
		f.Data = data
		return f, nil
	}
	raw := argString(args, "data")
	if raw == "" {
		return f, fmt.Errorf("path or data is required")
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return f, fmt.Errorf("data must be base64: %w", err)
	}
	f.Name = argString(args, "name")
	if f.Name == "" {
		f.Name = "image"
	}
	f.Data = data
	return f, nil
}

// withBlock runs fn against the addressed block inside the session lock.
func withBlock[T blocks.Block](sess *service.Session, args map[string]any, fn func(ed *editor.Editor, b T) error) error {
	return sess.Do(func(ed *editor.Editor) error {
		inst, err := resolveBlock(ed, args)
		if err != nil {
			return err
		}
		b, ok := inst.Block.(T)
		if !ok {
			return fmt.Errorf("block %s has type %s", inst.ID, inst.Type)
		}
		return fn(ed, b)
	})
}

func (s *Server) handleUploadImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	f, err := readUploadFile(args)
	if err != nil {
		return nil, err
	}
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}

	var applied <-chan struct{}
	err = withBlock(sess, args, func(_ *editor.Editor, img *blocks.Image) error {
		if argBool(args, "drop") {
			applied = img.Drop(f)
		} else {
			applied = img.Select(f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Waiting happens outside the session lock; the result is applied
	// through the session's dispatch, which marks it dirty.
	wait, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()
	select {
	case <-applied:
	case <-wait.Done():
		return nil, fmt.Errorf("upload still running after %s", uploadTimeout)
	}

	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

func (s *Server) handleSetImageText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	part := argString(args, "part")
	if part != "alt" && part != "caption" {
		return nil, fmt.Errorf("part must be alt or caption")
	}
	markup := codec.Render([]domain.TextSegment{{Text: argString(args, "text")}})
	return s.editSurface(ctx, args, func(_ *editor.Editor, target *surface.Surface) error {
		if !target.Edit(markup) {
			return fmt.Errorf("image is read-only")
		}
		return nil
	})
}

func (s *Server) handleReplaceImage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	err = withBlock(sess, args, func(_ *editor.Editor, img *blocks.Image) error {
		img.Replace()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

func (s *Server) handleEmbedYouTube(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	var embedErr error
	err = withBlock(sess, args, func(_ *editor.Editor, y *blocks.YouTube) error {
		embedErr = y.Embed(argString(args, "url"))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if embedErr != nil {
		return mcp.NewToolResultError(embedErr.Error()), nil
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}

func (s *Server) handleEditYouTube(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sess, err := s.session(ctx, args)
	if err != nil {
		return nil, err
	}
	err = withBlock(sess, args, func(_ *editor.Editor, y *blocks.YouTube) error {
		y.Edit()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.emitDocumentChanged(ctx, sess.ID())
	return s.blocksResult(sess)
}
