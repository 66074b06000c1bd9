package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultAutosaveSpec flushes dirty sessions every 30 seconds.
const DefaultAutosaveSpec = "@every 30s"

// Autosaver periodically writes dirty sessions back to the store.
type Autosaver struct {
	sessions *SessionService
	cron     *cron.Cron
	timeout  time.Duration
}

// NewAutosaver schedules FlushDirty on spec, a cron expression or
// descriptor such as "@every 30s".
func NewAutosaver(sessions *SessionService, spec string) (*Autosaver, error) {
	if spec == "" {
		spec = DefaultAutosaveSpec
	}
	a := &Autosaver{
		sessions: sessions,
		cron:     cron.New(),
		timeout:  20 * time.Second,
	}
	if _, err := a.cron.AddFunc(spec, a.run); err != nil {
		return nil, fmt.Errorf("autosave schedule %q: %w", spec, err)
	}
	return a, nil
}

func (a *Autosaver) Start() {
	log.Printf("[AUTOSAVE] started")
	a.cron.Start()
}

// Stop halts the schedule and waits for a running tick to finish.
func (a *Autosaver) Stop() {
	<-a.cron.Stop().Done()
	log.Printf("[AUTOSAVE] stopped")
}

// RunOnce performs a single tick.
func (a *Autosaver) RunOnce(ctx context.Context) (int, error) {
	return a.sessions.FlushDirty(ctx)
}

func (a *Autosaver) run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	n, err := a.RunOnce(ctx)
	if err != nil {
		log.Printf("[AUTOSAVE] %v", err)
	}
	if n > 0 {
		log.Printf("[AUTOSAVE] saved %d document(s)", n)
	}
}
