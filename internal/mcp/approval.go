package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"blockmark/internal/storage"
)

// EventEmitter allows the approval queue to notify whoever hosts the server.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

var ErrRejected = errors.New("action rejected by user")

// PendingAction represents a destructive operation awaiting user approval.
type PendingAction struct {
	ID          string `json:"id"`
	Tool        string `json:"tool"`
	Description string `json:"description"`
	CreatedAt   string `json:"createdAt"`
}

// ApprovalBackend persists pending actions so another process can decide them.
type ApprovalBackend interface {
	CreateApproval(ctx context.Context, a *storage.Approval) error
	ApprovalStatus(ctx context.Context, id string) (string, error)
	DeleteApproval(ctx context.Context, id string) error
}

// actionResult is sent through the channel when user approves/rejects.
type actionResult struct {
	approved bool
}

// ApprovalQueue manages human-in-the-loop approval for destructive MCP tool calls.
// It supports three modes:
//   - auto: every request is approved and logged
//   - backend: writes to mcp_approvals, polls until `blockmark approve|reject` decides
//   - in-process: channels resolved through Approve/Reject by an embedding host
type ApprovalQueue struct {
	mu      sync.Mutex
	pending map[string]chan actionResult
	emitter EventEmitter
	timeout time.Duration
	poll    time.Duration
	auto    bool
	backend ApprovalBackend
}

func NewApprovalQueue(emitter EventEmitter) *ApprovalQueue {
	return &ApprovalQueue{
		pending: make(map[string]chan actionResult),
		emitter: emitter,
		timeout: 120 * time.Second,
		poll:    500 * time.Millisecond,
	}
}

// SetBackend enables cross-process approval through the store.
func (q *ApprovalQueue) SetBackend(b ApprovalBackend) { q.backend = b }

// SetAutoApprove skips the human decision.
func (q *ApprovalQueue) SetAutoApprove(auto bool) { q.auto = auto }

func (q *ApprovalQueue) SetTimeout(d time.Duration) { q.timeout = d }

// Request blocks until the action is approved, rejected or times out. A nil
// error means approved.
func (q *ApprovalQueue) Request(ctx context.Context, tool, description string) error {
	if q.auto {
		log.Printf("[MCP] auto-approved %s: %s", tool, description)
		return nil
	}
	id := uuid.NewString()
	if q.backend != nil {
		return q.requestViaBackend(ctx, id, tool, description)
	}
	return q.requestViaChannel(ctx, id, tool, description)
}

func (q *ApprovalQueue) requestViaBackend(ctx context.Context, id, tool, description string) error {
	a := &storage.Approval{ID: id, Tool: tool, Description: description}
	if err := q.backend.CreateApproval(ctx, a); err != nil {
		return err
	}
	log.Printf("[MCP] approval %s pending for %s: %s", id, tool, description)
	// The row outlives a cancelled request ctx.
	defer q.backend.DeleteApproval(context.WithoutCancel(ctx), id)

	deadline := time.Now().Add(q.timeout)
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if time.Now().After(deadline) {
				return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
			}
			status, err := q.backend.ApprovalStatus(ctx, id)
			if err != nil {
				continue
			}
			switch status {
			case storage.ApprovalApproved:
				return nil
			case storage.ApprovalRejected:
				return fmt.Errorf("%w: %s", ErrRejected, tool)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (q *ApprovalQueue) requestViaChannel(ctx context.Context, id, tool, description string) error {
	ch := make(chan actionResult, 1)

	q.mu.Lock()
	q.pending[id] = ch
	q.mu.Unlock()
	defer q.cleanup(id)

	q.emitter.Emit(ctx, "mcp:approval-required", PendingAction{
		ID:          id,
		Tool:        tool,
		Description: description,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	})

	select {
	case result := <-ch:
		if !result.approved {
			return fmt.Errorf("%w: %s", ErrRejected, tool)
		}
		return nil
	case <-time.After(q.timeout):
		q.emitter.Emit(ctx, "mcp:approval-dismissed", map[string]string{"id": id})
		return fmt.Errorf("action timed out after %s: %s", q.timeout, tool)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending lists in-process actions waiting for a decision.
func (q *ApprovalQueue) Pending() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]string, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	return ids
}

// Approve marks a pending action as approved (in-process mode).
func (q *ApprovalQueue) Approve(actionID string) { q.resolve(actionID, true) }

// Reject marks a pending action as rejected (in-process mode).
func (q *ApprovalQueue) Reject(actionID string) { q.resolve(actionID, false) }

func (q *ApprovalQueue) resolve(actionID string, approved bool) {
	q.mu.Lock()
	ch, ok := q.pending[actionID]
	q.mu.Unlock()
	if ok {
		select {
		case ch <- actionResult{approved: approved}:
		default:
		}
	}
}

func (q *ApprovalQueue) cleanup(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
