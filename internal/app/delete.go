package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docchat/internal/tasks"
	"docchat/pkg/domain"
)

// DeleteFile removes one owned file. The database delete is the source of
// truth; chunk deletion at the AI service and the physical unlink happen in a
// background task the caller never waits for.
func (a *App) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	file, found, err := a.store.GetFileOwned(fileID, ownerID)
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if !found {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	deleted, err := a.store.DeleteFile(fileID, ownerID)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if !deleted {
		return fmt.Errorf("file %s: %w", fileID, ErrNotFound)
	}
	a.enqueueCleanup(ctx, tasks.Task{FileIDs: []string{file.ID}, Paths: []string{file.Path}})
	slog.Info("file deleted", "file_id", fileID, "owner_id", ownerID)
	return nil
}

// DeleteCollection removes every file in an owner's collection and batches
// all of their IDs into a single cleanup task.
func (a *App) DeleteCollection(ctx context.Context, ownerID, collection string) (int64, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return 0, fmt.Errorf("collection is required: %w", ErrValidation)
	}
	files, err := a.store.ListFilesByCollection(ownerID, collection)
	if err != nil {
		return 0, fmt.Errorf("list collection: %w", err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("collection %s: %w", collection, ErrNotFound)
	}
	count, err := a.store.DeleteFilesByCollection(ownerID, collection)
	if err != nil {
		return 0, fmt.Errorf("delete collection: %w", err)
	}
	task := tasks.Task{}
	for _, f := range files {
		task.FileIDs = append(task.FileIDs, f.ID)
		task.Paths = append(task.Paths, f.Path)
	}
	a.enqueueCleanup(ctx, task)
	slog.Info("collection deleted", "collection", collection, "owner_id", ownerID, "files", count)
	return count, nil
}

// RenameSession updates a session's display name.
func (a *App) RenameSession(ownerID, sessionID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("session name is required: %w", ErrValidation)
	}
	ok, err := a.store.RenameSession(sessionID, ownerID, name)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// DeleteSession removes a session, its messages and its file associations.
// The files themselves are untouched.
func (a *App) DeleteSession(ownerID, sessionID string) error {
	ok, err := a.store.DeleteSession(sessionID, ownerID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	return nil
}

// ListFiles returns the owner's files, optionally scoped to one collection.
func (a *App) ListFiles(ownerID, collection string) ([]domain.File, error) {
	if strings.TrimSpace(collection) != "" {
		return a.store.ListFilesByCollection(ownerID, collection)
	}
	return a.store.ListFilesByOwner(ownerID)
}

// ListCollections returns the owner's distinct collection names.
func (a *App) ListCollections(ownerID string) ([]string, error) {
	return a.store.ListCollections(ownerID)
}

// ListSessions returns the owner's chat sessions.
func (a *App) ListSessions(ownerID string) ([]domain.ChatSession, error) {
	return a.store.ListSessionsByOwner(ownerID)
}

// ListMessages returns the ordered messages of one owned session.
func (a *App) ListMessages(ownerID, sessionID string) ([]domain.ChatMessage, error) {
	session, found, err := a.store.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if session.OwnerID != ownerID {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrAccessDenied)
	}
	return a.store.ListSessionMessages(sessionID)
}

// enqueueCleanup hands a task to the queue. Enqueue failures are logged and
// swallowed; the durable state is already correct.
func (a *App) enqueueCleanup(ctx context.Context, task tasks.Task) {
	if err := a.tasks.Enqueue(ctx, task); err != nil {
		slog.Error("enqueue cleanup failed", "file_ids", task.FileIDs, "err", err)
	}
}
