package blocks

import (
	"context"
	"html"
	"strings"
	"sync"
	"time"

	"blockmark/internal/domain"
	"blockmark/internal/surface"
)

func init() { RegisterType(domain.BlockTypeImage, NewImage) }

type imageState int

const (
	imageEmpty imageState = iota
	imageUploading
	imageReady
)

func (s imageState) String() string {
	switch s {
	case imageUploading:
		return "uploading"
	case imageReady:
		return "ready"
	default:
		return "empty"
	}
}

func defaultImageData() domain.ImageData {
	return domain.ImageData{Width: "auto", Height: "auto"}
}

// Image moves between empty, uploading and ready. Upload results settle on
// another goroutine and are applied through the host's dispatch, so the
// surface tree is only touched in event order. mu guards the block state.
type Image struct {
	mu       sync.Mutex
	data     domain.ImageData
	state    imageState
	notice   Notice
	pending  *Task
	detached bool
	readOnly bool

	cb       Callbacks
	uploader Uploader
	ctx      context.Context
	now      func() time.Time
	dispatch func(func())

	el      *surface.Surface
	alert   *surface.Surface
	alt     *surface.Surface
	caption *surface.Surface
}

func NewImage(data domain.BlockData, cb Callbacks, opts Options) Block {
	d, ok := data.(domain.ImageData)
	if !ok {
		d = defaultImageData()
	}
	if d.Width == "" {
		d.Width = "auto"
	}
	if d.Height == "" {
		d.Height = "auto"
	}
	img := &Image{
		data:     d,
		cb:       cb,
		uploader: opts.Uploader,
		ctx:      opts.context(),
		now:      opts.clock(),
		dispatch: opts.dispatcher(),
	}
	if d.Src != "" {
		img.state = imageReady
	}
	return img
}

func (i *Image) Type() domain.BlockType { return domain.BlockTypeImage }

func (i *Image) Render() *surface.Surface {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.el == nil {
		i.el = surface.New("figure")
		i.alert = surface.New("div")
		i.alert.SetAttr("role", "alert")
		i.draw()
	}
	i.refreshNotice()
	return i.el
}

func (i *Image) Save() domain.BlockData {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.data
}

func (i *Image) FocusSurface(bool) *surface.Surface {
	i.Render()
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == imageReady {
		return i.caption
	}
	return nil
}

// State is "empty", "uploading" or "ready".
func (i *Image) State() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state.String()
}

// Notice returns the visible transient message, if any.
func (i *Image) Notice() (string, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.notice.Message, i.notice.Visible(i.now())
}

func (i *Image) SetReadOnly(ro bool) {
	i.mu.Lock()
	i.readOnly = ro
	i.mu.Unlock()
}

// SetUploader swaps the upload collaborator for later selections.
func (i *Image) SetUploader(u Uploader) {
	i.mu.Lock()
	i.uploader = u
	i.mu.Unlock()
}

// AltSurface and CaptionSurface are nil unless an image is shown.
func (i *Image) AltSurface() *surface.Surface {
	i.Render()
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.alt
}

func (i *Image) CaptionSurface() *surface.Surface {
	i.Render()
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.caption
}

// ───── Upload ─────

// Select handles a picked file. The returned channel is closed once the
// outcome has been applied to the block. A result that settles later is
// applied through Options.Dispatch, so callers must not wait on the channel
// while holding the lock their dispatch takes.
func (i *Image) Select(f File) <-chan struct{} {
	applied := make(chan struct{})

	i.mu.Lock()
	if i.detached || i.readOnly || i.state == imageUploading {
		i.mu.Unlock()
		close(applied)
		return applied
	}
	if !IsImage(f) {
		i.showError(ErrInvalidImage.Error())
		i.mu.Unlock()
		close(applied)
		return applied
	}
	up := i.uploader
	if up == nil {
		i.showError(ErrNoUploader.Error())
		i.mu.Unlock()
		close(applied)
		return applied
	}
	i.state = imageUploading
	i.draw()
	ctx := i.ctx
	i.mu.Unlock()

	task := up.Upload(ctx, f)

	i.mu.Lock()
	i.pending = task
	i.mu.Unlock()

	if task.Settled() {
		i.finish(task, f)
		close(applied)
		return applied
	}
	go func() {
		<-task.Done()
		i.dispatch(func() { i.finish(task, f) })
		close(applied)
	}()
	return applied
}

// Drop handles a file dropped on the upload area.
func (i *Image) Drop(f File) <-chan struct{} {
	return i.Select(f)
}

// finish applies a settled upload. Results for a detached block or a task
// that is no longer the pending one are ignored.
func (i *Image) finish(task *Task, f File) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.detached || i.pending != task {
		return
	}
	i.pending = nil

	url, err := task.Result()
	if err == nil && strings.TrimSpace(url) == "" {
		err = ErrInvalidUploadResult
	}
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = "Upload failed"
		}
		i.data.Src = ""
		i.state = imageEmpty
		i.showError(msg)
		return
	}
	i.data.Src = url
	i.data.Alt = f.Name
	i.state = imageReady
	i.draw()
}

// ───── Actions ─────

// Replace clears the image and returns to the upload prompt.
func (i *Image) Replace() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.readOnly {
		return
	}
	i.data.Src = ""
	i.data.Alt = ""
	i.data.Caption = ""
	i.state = imageEmpty
	i.pending = nil
	i.draw()
}

// Remove asks the manager to drop this block.
func (i *Image) Remove() {
	i.mu.Lock()
	ro := i.readOnly
	i.mu.Unlock()
	if !ro {
		i.cb.backspace()
	}
}

// Destroy detaches the block; a later upload result is dropped.
func (i *Image) Destroy() {
	i.mu.Lock()
	i.detached = true
	i.pending = nil
	i.mu.Unlock()
}

// ───── Rendering ─────

func (i *Image) showError(msg string) {
	i.notice = newNotice(msg, i.now())
	i.draw()
}

func (i *Image) refreshNotice() {
	if i.alert == nil {
		return
	}
	if i.notice.Visible(i.now()) {
		i.alert.SetMarkup(html.EscapeString(i.notice.Message))
	} else {
		i.alert.SetMarkup("")
	}
}

func (i *Image) draw() {
	if i.el == nil {
		return
	}
	i.el.ClearChildren()
	i.alt, i.caption = nil, nil

	switch i.state {
	case imageEmpty:
		picker := surface.New("input")
		picker.SetAttr("type", "file")
		picker.SetAttr("accept", "image/*")
		drop := surface.New("div")
		drop.SetAttr("class", "upload-area")
		drop.Append(picker)
		i.el.Append(drop)
	case imageUploading:
		loading := surface.New("div")
		loading.SetAttr("class", "upload-loading")
		i.el.Append(loading)
	case imageReady:
		img := surface.New("img")
		img.SetAttr("src", i.data.Src)
		img.SetAttr("alt", i.data.Alt)
		img.SetAttr("width", i.data.Width)
		img.SetAttr("height", i.data.Height)

		i.alt = surface.NewEditable("input", html.EscapeString(i.data.Alt))
		i.alt.SetAttr("placeholder", "Alt text")
		alt := i.alt
		alt.OnInput(func() {
			i.mu.Lock()
			i.data.Alt = alt.Text()
			img.SetAttr("alt", i.data.Alt)
			i.mu.Unlock()
		})

		i.caption = surface.NewEditable("figcaption", html.EscapeString(i.data.Caption))
		i.caption.SetAttr("placeholder", "Caption")
		caption := i.caption
		caption.OnInput(func() {
			i.mu.Lock()
			i.data.Caption = caption.Text()
			i.mu.Unlock()
		})
		i.el.Append(img, i.alt, i.caption)
	}
	i.el.Append(i.alert)
	i.refreshNotice()
}
