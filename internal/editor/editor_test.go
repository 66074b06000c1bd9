package editor_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"blockmark/internal/blocks"
	"blockmark/internal/domain"
	"blockmark/internal/editor"
	"blockmark/internal/surface"
)

func para(text string) domain.Entry {
	return domain.Entry{Type: domain.BlockTypeParagraph, Data: domain.ParagraphData{
		Text: []domain.TextSegment{{Text: text}},
	}}
}

func paragraphText(t *testing.T, e *editor.Editor, i int) []domain.TextSegment {
	t.Helper()
	doc, err := e.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	return doc[i].Data.(domain.ParagraphData).Text
}

func rootOf(e *editor.Editor, i int) *surface.Surface {
	return e.Blocks()[i].Block.Render()
}

// ───── Split / merge ─────

func TestEnterSplitsParagraph(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("Hello World")})

	p := rootOf(e, 0)
	e.Selection().SetOffset(p, 5)
	p.KeyDown(surface.KeyEvent{Key: surface.KeyEnter})

	if n := len(e.Blocks()); n != 2 {
		t.Fatalf("expected 2 blocks, got %d", n)
	}
	if got := paragraphText(t, e, 0); !reflect.DeepEqual(got, []domain.TextSegment{{Text: "Hello"}}) {
		t.Fatalf("first block: %+v", got)
	}
	if got := paragraphText(t, e, 1); !reflect.DeepEqual(got, []domain.TextSegment{{Text: " World"}}) {
		t.Fatalf("second block: %+v", got)
	}
	if e.ActiveBlock() != 1 {
		t.Fatalf("focus should move to the new block, got %d", e.ActiveBlock())
	}
}

func TestEnterAtEndInsertsEmptyParagraph(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("Hello"), para("Tail")})

	p := rootOf(e, 0)
	surface.PlaceCaretAtEnd(e.Selection(), p)
	p.KeyDown(surface.KeyEvent{Key: surface.KeyEnter})

	doc, _ := e.Save()
	if len(doc) != 3 || domain.PlainText(doc[1].Data.(domain.ParagraphData).Text) != "" {
		t.Fatalf("expected empty paragraph at index 1, got %+v", doc)
	}
	if domain.PlainText(doc[2].Data.(domain.ParagraphData).Text) != "Tail" {
		t.Fatal("following block moved")
	}
}

func TestBackspaceMergesIntoPreviousParagraph(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("Hello "), para("World")})

	second := rootOf(e, 1)
	e.Selection().SetOffset(second, 0)
	second.KeyDown(surface.KeyEvent{Key: surface.KeyBackspace})

	if n := len(e.Blocks()); n != 1 {
		t.Fatalf("expected 1 block, got %d", n)
	}
	want := []domain.TextSegment{{Text: "Hello "}, {Text: "World"}}
	if got := paragraphText(t, e, 0); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if e.ActiveBlock() != 0 || e.Selection().Offset() != 11 {
		t.Fatalf("caret should be at end of first block, got block %d offset %d",
			e.ActiveBlock(), e.Selection().Offset())
	}
}

func TestBackspaceAfterNonParagraphOnlyMovesFocus(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{
		{Type: domain.BlockTypeList, Data: domain.ListData{Items: [][]domain.TextSegment{{{Text: "item"}}}}},
		para("World"),
	})

	second := rootOf(e, 1)
	e.Selection().SetOffset(second, 0)
	second.KeyDown(surface.KeyEvent{Key: surface.KeyBackspace})

	if n := len(e.Blocks()); n != 2 {
		t.Fatalf("no block should be removed, got %d", n)
	}
	if e.ActiveBlock() != 0 || e.Selection().Offset() != 4 {
		t.Fatalf("caret should be at end of list, got block %d offset %d",
			e.ActiveBlock(), e.Selection().Offset())
	}
}

func TestBackspaceOnEmptyParagraphDeletesIt(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("keep"), para("")})

	second := rootOf(e, 1)
	e.Selection().Focus(second)
	second.KeyDown(surface.KeyEvent{Key: surface.KeyBackspace})

	if n := len(e.Blocks()); n != 1 {
		t.Fatalf("expected 1 block, got %d", n)
	}
}

func TestCallbacksFollowMovedBlocks(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("a"), para("b")})
	b := e.Blocks()[1]

	if _, err := e.AddBlock(domain.BlockTypeParagraph, nil, -1); err != nil {
		t.Fatal(err)
	}
	e.RemoveBlock(0)

	root := b.Block.Render()
	surface.PlaceCaretAtEnd(e.Selection(), root)
	root.KeyDown(surface.KeyEvent{Key: surface.KeyEnter})

	if e.IndexOf(b.ID) != 0 || len(e.Blocks()) != 3 {
		t.Fatalf("enter routed to the wrong position: idx=%d len=%d", e.IndexOf(b.ID), len(e.Blocks()))
	}
	if e.ActiveBlock() != 1 {
		t.Fatalf("new block should follow b, active=%d", e.ActiveBlock())
	}
}

// ───── Sequence rules ─────

func TestDocumentNeverEmptiedByDelete(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("1"), para("2"), para("3")})
	for i := 0; i < 10; i++ {
		e.RemoveBlock(i % 3)
		if len(e.Blocks()) < 1 {
			t.Fatal("document became empty")
		}
	}
	if e.RemoveBlock(0) {
		t.Fatal("removing the last block should be refused")
	}
}

func TestNewEditorStartsWithParagraph(t *testing.T) {
	e := editor.New(editor.Config{})
	doc, err := e.Save()
	if err != nil || len(doc) != 1 || doc[0].Type != domain.BlockTypeParagraph {
		t.Fatalf("unexpected initial document %+v (%v)", doc, err)
	}
}

func TestUnknownTypeIsNoop(t *testing.T) {
	e := editor.New(editor.Config{})
	_, err := e.AddBlock("kanban", nil, -1)
	if !errors.Is(err, editor.ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType, got %v", err)
	}
	if len(e.Blocks()) != 1 {
		t.Fatal("sequence changed")
	}
	if _, err := e.AddKind("nope", -1); !errors.Is(err, editor.ErrUnknownBlockType) {
		t.Fatalf("expected ErrUnknownBlockType for kind, got %v", err)
	}
}

// ───── Load / save ─────

func TestLoadSaveRoundTrip(t *testing.T) {
	in := `[{"type":"paragraph","text":[{"text":"A"}]},{"type":"list","ordered":true,"items":[[{"text":"one"}]]}]`
	doc, err := domain.ParseDocument([]byte(in))
	if err != nil {
		t.Fatal(err)
	}
	e := editor.New(editor.Config{})
	e.Load(doc)

	out, err := e.Save()
	if err != nil {
		t.Fatal(err)
	}
	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatal(err)
	}

	var want, got any
	_ = json.Unmarshal([]byte(in), &want)
	_ = json.Unmarshal(raw, &got)
	if !reflect.DeepEqual(want, got) {
		t.Fatalf("round trip mismatch:\n in %s\nout %s", in, raw)
	}
}

func TestLoadSkipsUnknownTypes(t *testing.T) {
	doc, err := domain.ParseDocument([]byte(`[{"type":"kanban","lanes":3},{"type":"paragraph","text":[{"text":"x"}]}]`))
	if err != nil {
		t.Fatal(err)
	}
	e := editor.New(editor.Config{})
	e.Load(doc)
	if len(e.Blocks()) != 1 || e.Blocks()[0].Type != domain.BlockTypeParagraph {
		t.Fatalf("unexpected blocks %+v", e.Blocks())
	}
}

func TestClearLeavesEmptySequence(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Clear()
	doc, err := e.Save()
	if err != nil || len(doc) != 0 {
		t.Fatalf("expected empty document, got %+v (%v)", doc, err)
	}
}

// ───── Validation ─────

func TestRequiredEmptyDocumentFailsSave(t *testing.T) {
	e := editor.New(editor.Config{Required: true})
	if _, err := e.Save(); !errors.Is(err, editor.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if e.Validate() {
		t.Fatal("Validate should be false")
	}
	if err := e.ValidationError(); err == nil || err.Error() != "editor cannot be empty" {
		t.Fatalf("unexpected validation error %v", err)
	}

	e.Load(domain.Document{{Type: domain.BlockTypeImage, Data: domain.ImageData{Src: "a.png"}}})
	if !e.Validate() {
		t.Fatal("an image counts as content")
	}

	e.SetRequired(false)
	e.Clear()
	if _, err := e.Save(); err != nil {
		t.Fatalf("optional document should save: %v", err)
	}
}

func TestWhitespaceOnlyIsEmpty(t *testing.T) {
	if editor.HasContent(domain.Document{para("   ")}) {
		t.Fatal("whitespace is not content")
	}
	yt := domain.Entry{Type: domain.BlockTypeYouTube, Data: domain.YouTubeData{URL: "https://youtu.be/abc"}}
	if !editor.HasContent(domain.Document{yt}) {
		t.Fatal("an embedded video is content")
	}
}

// ───── Read-only ─────

func TestReadOnlyRefusesStructuralEdits(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{para("a"), para("b")})
	e.SetReadOnly(true)

	if _, err := e.AddBlock(domain.BlockTypeParagraph, nil, -1); !errors.Is(err, editor.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if e.RemoveBlock(1) {
		t.Fatal("delete should be refused")
	}
	root := rootOf(e, 0)
	if root.Edit("changed") {
		t.Fatal("surfaces should be locked")
	}

	e.Load(domain.Document{para("loaded")})
	if len(e.Blocks()) != 1 || rootOf(e, 0).Editable() {
		t.Fatal("load should work and stay read-only")
	}
}

// ───── Upload ─────

func TestImageWithoutUploaderSavesEmptySrc(t *testing.T) {
	e := editor.New(editor.Config{})
	inst, err := e.AddKind("image", -1)
	if err != nil {
		t.Fatal(err)
	}
	img := inst.Block.(*blocks.Image)
	<-img.Select(blocks.File{Name: "a.png", ContentType: "image/png", Data: []byte{1}})

	if msg, visible := img.Notice(); !visible || msg != blocks.ErrNoUploader.Error() {
		t.Fatalf("expected visible error, got %q (%v)", msg, visible)
	}
	doc, _ := e.Save()
	if src := doc[1].Data.(domain.ImageData).Src; src != "" {
		t.Fatalf("expected empty src, got %q", src)
	}
}

func TestSetUploaderReachesExistingImages(t *testing.T) {
	e := editor.New(editor.Config{})
	inst, _ := e.AddKind("image", -1)
	e.SetUploader(blocks.UploaderFunc(func(context.Context, blocks.File) (string, error) {
		return "/uploads/a.png", nil
	}))
	<-inst.Block.(*blocks.Image).Select(blocks.File{Name: "a.png", ContentType: "image/png"})
	doc, _ := e.Save()
	if doc[1].Data.(domain.ImageData).Src != "/uploads/a.png" {
		t.Fatalf("uploader not used: %+v", doc[1].Data)
	}
}

func TestRemovingUploadingImageIsSafe(t *testing.T) {
	task := blocks.NewTask()
	e := editor.New(editor.Config{Uploader: pendingUploader{task}})
	inst, _ := e.AddKind("image", -1)
	img := inst.Block.(*blocks.Image)

	applied := img.Select(blocks.File{Name: "a.png", ContentType: "image/png"})
	e.RemoveBlock(e.IndexOf(inst.ID))
	task.Resolve("/late.png")
	<-applied

	if len(e.Blocks()) != 1 {
		t.Fatalf("expected image removed, got %d blocks", len(e.Blocks()))
	}
}

type pendingUploader struct{ task *blocks.Task }

func (p pendingUploader) Upload(context.Context, blocks.File) *blocks.Task { return p.task }

// ───── HTML ─────

func TestHTMLExport(t *testing.T) {
	e := editor.New(editor.Config{})
	e.Load(domain.Document{
		{Type: domain.BlockTypeParagraph, Data: domain.ParagraphData{Text: []domain.TextSegment{{Text: "Hi", Bold: true}}}},
		{Type: domain.BlockTypeList, Data: domain.ListData{Ordered: true, Items: [][]domain.TextSegment{{{Text: "one"}}}}},
		{Type: domain.BlockTypeTable, Data: domain.TableData{Rows: 1, Columns: 2}},
		{Type: domain.BlockTypeImage, Data: domain.ImageData{Src: "a.png", Alt: "a", Caption: "<b>cap</b>"}},
		{Type: domain.BlockTypeYouTube, Data: domain.YouTubeData{URL: "https://youtu.be/xyz"}},
	})
	out := e.HTML()
	for _, want := range []string{
		"<p><strong>Hi</strong></p>",
		"<ol><li>one</li></ol>",
		"<table><tbody><tr><td><br></td><td><br></td></tr></tbody></table>",
		`<figure><img src="a.png" alt="a"><figcaption>cap</figcaption></figure>`,
		`<iframe src="https://www.youtube.com/embed/xyz"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q\n%s", want, out)
		}
	}
}
