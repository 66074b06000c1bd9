package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// importDebounce waits for writers to finish before a file is read.
const importDebounce = 500 * time.Millisecond

// ImportWatcher imports *.json documents dropped into a directory. A file
// is renamed to *.json.imported once stored, or *.json.failed when it cannot
// be parsed.
type ImportWatcher struct {
	dir  string
	docs *DocumentService

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
	done    chan struct{}
}

func NewImportWatcher(dir string, docs *DocumentService) (*ImportWatcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("import dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return &ImportWatcher{
		dir:     dir,
		docs:    docs,
		watcher: w,
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled or Close is called. Files
// already present in the directory are imported first.
func (w *ImportWatcher) Run(ctx context.Context) {
	if entries, err := os.ReadDir(w.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && importable(e.Name()) {
				w.schedule(ctx, filepath.Join(w.dir, e.Name()))
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if importable(ev.Name) {
				w.schedule(ctx, ev.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[IMPORT] watcher: %v", err)
		}
	}
}

// Close stops watching and waits for scheduled imports to settle.
func (w *ImportWatcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
	return w.watcher.Close()
}

func importable(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}

func (w *ImportWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			t.Reset(importDebounce)
			return
		}
	}
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(importDebounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.importFile(ctx, path)
	})
}

func (w *ImportWatcher) importFile(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[IMPORT] read %s: %v", path, err)
		}
		return
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	d, err := w.docs.Import(ctx, title, raw)
	if err != nil {
		log.Printf("[IMPORT] %s: %v", filepath.Base(path), err)
		if rerr := os.Rename(path, path+".failed"); rerr != nil {
			log.Printf("[IMPORT] rename %s: %v", path, rerr)
		}
		return
	}
	if err := os.Rename(path, path+".imported"); err != nil {
		log.Printf("[IMPORT] rename %s: %v", path, err)
	}
	log.Printf("[IMPORT] %s -> %s", filepath.Base(path), d.ID)
}
