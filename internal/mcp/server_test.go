package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blockmark/internal/blocks"
	"blockmark/internal/service"
	"blockmark/internal/storage"

	"github.com/mark3labs/mcp-go/mcp"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func newTestServer(t *testing.T, autoApprove bool) *Server {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	emitter := &service.MockEmitter{}
	docs := service.NewDocumentService(storage.NewDocumentStore(db), emitter, false)
	docs.SetRevisions(storage.NewRevisionStore(db))
	uploader := blocks.UploaderFunc(func(_ context.Context, f blocks.File) (string, error) {
		return "https://cdn.test/" + f.Name, nil
	})
	sessions := service.NewSessionService(docs, uploader)
	return New(Deps{
		Emitter:     emitter,
		Documents:   docs,
		Sessions:    sessions,
		AutoApprove: autoApprove,
	})
}

func call(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}
	return res
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content %T", res.Content[0])
	}
	return tc.Text
}

type testBlock struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Focused bool           `json:"focused"`
	State   string         `json:"state"`
	Notice  string         `json:"notice"`
	Content map[string]any `json:"content"`
}

type testView struct {
	DocumentID string      `json:"documentId"`
	Dirty      bool        `json:"dirty"`
	Valid      bool        `json:"valid"`
	Blocks     []testBlock `json:"blocks"`
}

func decodeView(t *testing.T, res *mcp.CallToolResult) testView {
	t.Helper()
	var v testView
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func plain(b testBlock) string {
	segs, _ := b.Content["text"].([]any)
	var sb strings.Builder
	for _, s := range segs {
		m, _ := s.(map[string]any)
		text, _ := m["text"].(string)
		sb.WriteString(text)
	}
	return sb.String()
}

func createDocument(t *testing.T, s *Server) string {
	t.Helper()
	res := call(t, s.handleCreateDocument, map[string]any{"title": "Draft"})
	var d struct {
		ID string `json:"id"`
	}
	json.Unmarshal([]byte(resultText(t, res)), &d)
	if d.ID == "" {
		t.Fatal("no document id")
	}
	return d.ID
}

// ─────────────────────────────────────────────────────────────
// Typing
// ─────────────────────────────────────────────────────────────

func TestTools_TypeAndEnter(t *testing.T) {
	s := newTestServer(t, true)
	id := createDocument(t, s)

	v := decodeView(t, call(t, s.handleInputMarkup, map[string]any{"index": float64(0), "markup": "Hello <b>world</b>"}))
	if !v.Dirty || len(v.Blocks) != 1 {
		t.Fatalf("view = %+v", v)
	}

	v = decodeView(t, call(t, s.handlePressKey, map[string]any{"index": float64(0), "key": "Enter"}))
	if len(v.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(v.Blocks))
	}
	if !v.Blocks[1].Focused {
		t.Error("new paragraph should hold focus")
	}
	if plain(v.Blocks[0]) != "Hello world" {
		t.Errorf("first block = %q", plain(v.Blocks[0]))
	}

	res := call(t, s.handleSaveDocument, map[string]any{})
	if res.IsError {
		t.Fatalf("save failed: %s", resultText(t, res))
	}
	d, err := s.docs.Get(context.Background(), id)
	if err != nil || len(d.Content) != 2 {
		t.Fatalf("stored = %+v, %v", d, err)
	}
}

func TestTools_EnterSplitsAtOffset(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	call(t, s.handleInputMarkup, map[string]any{"index": float64(0), "markup": "abcdef"})
	v := decodeView(t, call(t, s.handlePressKey, map[string]any{"index": float64(0), "key": "Enter", "offset": float64(3)}))

	if len(v.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(v.Blocks))
	}
	if plain(v.Blocks[0]) != "abc" || plain(v.Blocks[1]) != "def" {
		t.Errorf("split = %q | %q", plain(v.Blocks[0]), plain(v.Blocks[1]))
	}
}

func TestTools_PasteStripsMarkup(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	v := decodeView(t, call(t, s.handlePasteText, map[string]any{"index": float64(0), "data": "<b>bold</b>\n\n  text"}))
	if got := plain(v.Blocks[0]); got != "bold text" {
		t.Errorf("pasted = %q", got)
	}
}

func TestTools_UnknownKey(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"index": float64(0), "key": "Escape"}
	if _, err := s.handlePressKey(context.Background(), req); err == nil {
		t.Fatal("expected error for unsupported key")
	}
}

// ─────────────────────────────────────────────────────────────
// Structure
// ─────────────────────────────────────────────────────────────

func TestTools_InsertListWithData(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	v := decodeView(t, call(t, s.handleInsertBlock, map[string]any{
		"kind": "orderedList",
		"data": `{"items":[[{"text":"one"}],[{"text":"two"}]]}`,
	}))
	if len(v.Blocks) != 2 || v.Blocks[1].Type != "list" {
		t.Fatalf("blocks = %+v", v.Blocks)
	}
	items, _ := v.Blocks[1].Content["items"].([]any)
	if len(items) != 2 {
		t.Errorf("items = %v", v.Blocks[1].Content["items"])
	}
}

func TestTools_InsertUnknownKind(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	var req mcp.CallToolRequest
	req.Params.Arguments = map[string]any{"kind": "kanban"}
	if _, err := s.handleInsertBlock(context.Background(), req); err == nil {
		t.Fatal("expected unknown kind error")
	}
}

func TestTools_TableResizeKeepsOneRow(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleInsertBlock, map[string]any{"kind": "table"})

	res := call(t, s.handleTableResize, map[string]any{"index": float64(1), "op": "removeRow"})
	if res.IsError {
		t.Fatalf("first removeRow refused: %s", resultText(t, res))
	}
	res = call(t, s.handleTableResize, map[string]any{"index": float64(1), "op": "removeRow"})
	if !res.IsError {
		t.Fatal("removing the last row should be refused")
	}
}

func TestTools_RemoveLastBlockRefused(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)

	res := call(t, s.handleRemoveBlock, map[string]any{"index": float64(0)})
	if !res.IsError {
		t.Fatal("the only block must not be removed")
	}
}

// ─────────────────────────────────────────────────────────────
// Media
// ─────────────────────────────────────────────────────────────

func TestTools_UploadImage(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleInsertBlock, map[string]any{"kind": "image"})

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	v := decodeView(t, call(t, s.handleUploadImage, map[string]any{
		"index":       float64(1),
		"data":        base64.StdEncoding.EncodeToString(png),
		"name":        "cat.png",
		"contentType": "image/png",
	}))
	img := v.Blocks[1]
	if img.State != "ready" {
		t.Fatalf("state = %q notice = %q", img.State, img.Notice)
	}
	if img.Content["src"] != "https://cdn.test/cat.png" {
		t.Errorf("src = %v", img.Content["src"])
	}

	v = decodeView(t, call(t, s.handleSetImageText, map[string]any{"index": float64(1), "part": "caption", "text": "A cat"}))
	if v.Blocks[1].Content["caption"] != "A cat" {
		t.Errorf("caption = %v", v.Blocks[1].Content["caption"])
	}
}

func TestTools_UploadRejectsNonImage(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleInsertBlock, map[string]any{"kind": "image"})

	v := decodeView(t, call(t, s.handleUploadImage, map[string]any{
		"index":       float64(1),
		"data":        base64.StdEncoding.EncodeToString([]byte("plain text")),
		"name":        "notes.txt",
		"contentType": "text/plain",
	}))
	if v.Blocks[1].State != "empty" || v.Blocks[1].Notice != blocks.ErrInvalidImage.Error() {
		t.Errorf("block = %+v", v.Blocks[1])
	}
}

func TestTools_EmbedYouTube(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleInsertBlock, map[string]any{"kind": "youtube"})

	res := call(t, s.handleEmbedYouTube, map[string]any{"index": float64(1), "url": "https://vimeo.com/1"})
	if !res.IsError || resultText(t, res) != blocks.ErrInvalidEmbedURL.Error() {
		t.Fatalf("expected invalid URL error, got %q", resultText(t, res))
	}

	v := decodeView(t, call(t, s.handleEmbedYouTube, map[string]any{"index": float64(1), "url": "https://youtu.be/dQw4w9WgXcQ"}))
	if v.Blocks[1].Content["url"] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("url = %v", v.Blocks[1].Content["url"])
	}

	v = decodeView(t, call(t, s.handleEditYouTube, map[string]any{"index": float64(1)}))
	if v.Blocks[1].Content["url"] != "" {
		t.Errorf("url after edit = %v", v.Blocks[1].Content["url"])
	}
}

// ─────────────────────────────────────────────────────────────
// Policy and approval
// ─────────────────────────────────────────────────────────────

func TestTools_SaveRequiredEmpty(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleSetDocumentRequired, map[string]any{"required": true})

	res := call(t, s.handleSaveDocument, map[string]any{})
	if !res.IsError || resultText(t, res) != "editor cannot be empty" {
		t.Fatalf("expected validation error, got %q", resultText(t, res))
	}
}

func TestTools_DeleteWaitsForApproval(t *testing.T) {
	s := newTestServer(t, false)
	id := createDocument(t, s)

	done := make(chan *mcp.CallToolResult, 1)
	go func() {
		var req mcp.CallToolRequest
		req.Params.Arguments = map[string]any{"documentId": id}
		res, _ := s.handleDeleteDocument(context.Background(), req)
		done <- res
	}()

	var pending []string
	for deadline := time.Now().Add(time.Second); time.Now().Before(deadline); time.Sleep(10 * time.Millisecond) {
		if pending = s.approval.Pending(); len(pending) > 0 {
			break
		}
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending approval, got %v", pending)
	}
	s.Reject(pending[0])

	select {
	case res := <-done:
		if resultText(t, res) != "Action rejected by user" {
			t.Errorf("result = %q", resultText(t, res))
		}
	case <-time.After(time.Second):
		t.Fatal("delete did not return after rejection")
	}
	if _, err := s.docs.Get(context.Background(), id); err != nil {
		t.Errorf("document should survive a rejection: %v", err)
	}
}

func TestTools_DeleteAutoApproved(t *testing.T) {
	s := newTestServer(t, true)
	id := createDocument(t, s)

	call(t, s.handleDeleteDocument, map[string]any{"documentId": id})

	if _, err := s.docs.Get(context.Background(), id); err == nil {
		t.Fatal("document should be gone")
	}
	if _, err := s.resolveDocumentID(map[string]any{}); err == nil {
		t.Error("active document should be cleared")
	}
}

// ─────────────────────────────────────────────────────────────
// Revisions
// ─────────────────────────────────────────────────────────────

func TestTools_RestoreRevision(t *testing.T) {
	s := newTestServer(t, true)
	createDocument(t, s)
	call(t, s.handleInputMarkup, map[string]any{"index": float64(0), "markup": "first"})
	call(t, s.handleSaveDocument, map[string]any{})
	call(t, s.handleInputMarkup, map[string]any{"index": float64(0), "markup": "second"})

	var revs []revisionView
	if err := json.Unmarshal([]byte(resultText(t, call(t, s.handleListRevisions, map[string]any{}))), &revs); err != nil {
		t.Fatalf("decode revisions: %v", err)
	}
	if len(revs) != 2 || revs[0].Label != "save" {
		t.Fatalf("revisions = %+v", revs)
	}

	res := call(t, s.handleRestoreRevision, map[string]any{"revisionId": revs[0].ID})
	if res.IsError {
		t.Fatalf("restore failed: %s", resultText(t, res))
	}
	v := decodeView(t, call(t, s.handleListBlocks, map[string]any{}))
	if v.Dirty || len(v.Blocks) != 1 || plain(v.Blocks[0]) != "first" {
		t.Errorf("view after restore = %+v", v)
	}
}

// ─────────────────────────────────────────────────────────────
// Resources
// ─────────────────────────────────────────────────────────────

func TestDocumentIDFromURI(t *testing.T) {
	tests := map[string]string{
		"blockmark://document/abc-123":       "abc-123",
		"blockmark://document/abc-123/extra": "abc-123",
		"blockmark://documents":              "",
		"notes://document/abc":               "",
	}
	for uri, want := range tests {
		if got := documentIDFromURI(uri); got != want {
			t.Errorf("documentIDFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestDocumentResource_ServesLiveSession(t *testing.T) {
	s := newTestServer(t, true)
	id := createDocument(t, s)
	call(t, s.handleInputMarkup, map[string]any{"index": float64(0), "markup": "unsaved"})

	var req mcp.ReadResourceRequest
	req.Params.URI = documentURIPrefix + id
	contents, err := s.handleDocumentResource(context.Background(), req)
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "unsaved") {
		t.Errorf("resource = %s", text)
	}
}
