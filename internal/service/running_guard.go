package service

import (
	"context"
	"sync"
)

// ExportedFlushGuard is an exported alias so _test packages can test the guard.
type ExportedFlushGuard = flushGuard

// ─────────────────────────────────────────────────────────────
// flushGuard: one in-flight flush per document
// ─────────────────────────────────────────────────────────────

// flushGuard keeps an autosave tick from flushing a document that is still
// being written by the previous tick.
type flushGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	wg       sync.WaitGroup
}

// TryLock marks docID as flushing. It returns false if a flush is already
// running for it.
func (g *flushGuard) TryLock(docID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight == nil {
		g.inFlight = make(map[string]struct{})
	}
	if _, ok := g.inFlight[docID]; ok {
		return false
	}
	g.inFlight[docID] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock ends a flush started by a successful TryLock.
func (g *flushGuard) Unlock(docID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, docID)
	g.wg.Done()
}

// WaitAll blocks until running flushes finish or ctx is cancelled.
func (g *flushGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
