package tasks

import (
	"context"
	"log/slog"

	"docchat/internal/util"
)

// InlineQueue runs tasks synchronously in the caller's goroutine. Used in
// tests and in single-process deployments without Redis.
type InlineQueue struct {
	handler Handler
}

// NewInlineQueue wires the handler directly to Enqueue.
func NewInlineQueue(handler Handler) *InlineQueue {
	return &InlineQueue{handler: handler}
}

// Enqueue executes the task immediately. Handler failures are logged and
// swallowed, matching the fire-and-forget contract of the stream queue.
func (q *InlineQueue) Enqueue(ctx context.Context, t Task) error {
	if q.handler == nil {
		return nil
	}
	if t.ID == "" {
		t.ID = util.NewID()
	}
	if err := q.handler(ctx, t); err != nil {
		slog.Error("cleanup task failed", "task_id", t.ID, "err", err)
	}
	return nil
}
