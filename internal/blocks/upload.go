package blocks

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrNoUploader          = errors.New("No upload function configured. Please set up image upload.")
	ErrInvalidUploadResult = errors.New("Upload function must return a valid image URL")
	ErrInvalidImage        = errors.New("Please select a valid image file.")
)

// File is an image payload picked or dropped by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage checks the declared content type, sniffing the payload when none
// was declared.
func IsImage(f File) bool {
	ct := f.ContentType
	if ct == "" && len(f.Data) > 0 {
		ct = mimetype.Detect(f.Data).String()
	}
	return strings.HasPrefix(ct, "image/")
}

// Uploader stores an image and yields its URL. Upload always returns a task;
// it may already be settled.
type Uploader interface {
	Upload(ctx context.Context, f File) *Task
}

// UploaderFunc adapts a synchronous upload function. Its result is wrapped in
// an already settled task.
type UploaderFunc func(ctx context.Context, f File) (string, error)

func (fn UploaderFunc) Upload(ctx context.Context, f File) *Task {
	url, err := fn(ctx, f)
	if err != nil {
		return Failed(err)
	}
	return Resolved(url)
}

// ───── Task ─────

// Task is the pending result of an upload. It settles exactly once.
type Task struct {
	done chan struct{}
	once sync.Once
	url  string
	err  error
}

func NewTask() *Task {
	return &Task{done: make(chan struct{})}
}

func Resolved(url string) *Task {
	t := NewTask()
	t.Resolve(url)
	return t
}

func Failed(err error) *Task {
	t := NewTask()
	t.Reject(err)
	return t
}

// Go runs fn in its own goroutine and settles the task with its outcome.
func Go(fn func() (string, error)) *Task {
	t := NewTask()
	go func() {
		url, err := fn()
		if err != nil {
			t.Reject(err)
			return
		}
		t.Resolve(url)
	}()
	return t
}

func (t *Task) Resolve(url string) { t.settle(url, nil) }

func (t *Task) Reject(err error) {
	if err == nil {
		err = errors.New("Upload failed")
	}
	t.settle("", err)
}

func (t *Task) settle(url string, err error) {
	t.once.Do(func() {
		t.url, t.err = url, err
		close(t.done)
	})
}

func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) Settled() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Result returns the outcome of a settled task, or zero values before that.
func (t *Task) Result() (string, error) {
	if !t.Settled() {
		return "", nil
	}
	return t.url, t.err
}

// Wait blocks until the task settles or ctx ends.
func (t *Task) Wait(ctx context.Context) (string, error) {
	select {
	case <-t.done:
		return t.url, t.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
