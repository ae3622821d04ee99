package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"docchat/internal/tasks"
)

// CleanupHandler executes one cleanup task: derived chunks at the AI service,
// physical artifacts, and optionally a whole owner directory, in parallel. A
// failed leg makes the whole task retryable; the legs are idempotent.
func (a *App) CleanupHandler(ctx context.Context, task tasks.Task) error {
	g, ctx := errgroup.WithContext(ctx)
	if len(task.FileIDs) > 0 {
		g.Go(func() error {
			if err := a.ai.DeleteChunks(ctx, task.FileIDs); err != nil {
				return fmt.Errorf("delete chunks: %w", err)
			}
			return nil
		})
	}
	if len(task.Paths) > 0 {
		g.Go(func() error {
			for _, path := range task.Paths {
				if err := a.files.Remove(path); err != nil {
					return fmt.Errorf("remove artifact: %w", err)
				}
			}
			return nil
		})
	}
	if task.OwnerID != "" {
		g.Go(func() error {
			if err := a.files.RemoveOwner(task.OwnerID); err != nil {
				return fmt.Errorf("remove owner dir: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}
