package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docchat/internal/util"
	"docchat/pkg/aigw"
	"docchat/pkg/domain"
)

// Ingest stores an uploaded document, converts it to PDF when needed, and
// hands its content to the AI service for extraction. Ingestion is atomic
// from the caller's point of view: on any failure the file row and every
// artifact written so far are removed before the error is returned.
func (a *App) Ingest(ctx context.Context, owner domain.User, collection, originalName string, r io.Reader) (domain.File, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return domain.File{}, fmt.Errorf("collection is required: %w", ErrValidation)
	}
	originalName = strings.TrimSpace(originalName)
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext != ".pdf" && ext != ".docx" {
		return domain.File{}, fmt.Errorf("unsupported file type %q: %w", ext, ErrValidation)
	}

	fileID := util.NewID()
	path, err := a.files.Save(owner.ID, fileID+ext, r)
	if err != nil {
		return domain.File{}, fmt.Errorf("store upload: %w", err)
	}

	if ext == ".docx" {
		// The converter removes the source document on success and failure.
		path, err = a.converter.Convert(ctx, path)
		if err != nil {
			return domain.File{}, err
		}
	}
	if err := a.verifyPDF(path); err != nil {
		_ = a.files.Remove(path)
		return domain.File{}, err
	}

	file := domain.File{
		ID:           fileID,
		OwnerID:      owner.ID,
		StoredName:   filepath.Base(path),
		OriginalName: originalName,
		Collection:   collection,
		Path:         path,
	}
	// The store stamps CreatedAt; the extraction timestamp below must match
	// the persisted row, not this process's clock.
	file, err = a.store.InsertFile(file)
	if err != nil {
		_ = a.files.Remove(path)
		return domain.File{}, fmt.Errorf("insert file: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		a.rollbackIngest(file)
		return domain.File{}, fmt.Errorf("read artifact: %w", err)
	}
	err = a.ai.Extract(ctx, aigw.ExtractRequest{
		FileID:           file.ID,
		OwnerID:          owner.ID,
		OwnerName:        owner.Name,
		Collection:       collection,
		OriginalFileName: originalName,
		Content:          content,
		Timestamp:        file.CreatedAt,
	})
	if err != nil {
		a.rollbackIngest(file)
		return domain.File{}, fmt.Errorf("extract content: %w", err)
	}

	slog.Info("file ingested", "file_id", file.ID, "owner_id", owner.ID, "collection", collection)
	return file, nil
}

// rollbackIngest undoes a partially ingested file: the row first, then the
// artifact. Cleanup failures are logged, not surfaced; the caller already has
// the original error.
func (a *App) rollbackIngest(file domain.File) {
	if _, err := a.store.DeleteFile(file.ID, file.OwnerID); err != nil {
		slog.Error("ingest rollback: delete row failed", "file_id", file.ID, "err", err)
	}
	if err := a.files.Remove(file.Path); err != nil {
		slog.Error("ingest rollback: remove artifact failed", "file_id", file.ID, "err", err)
	}
}
