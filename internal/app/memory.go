package app

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"docchat/internal/util"
	"docchat/pkg/domain"
	"docchat/pkg/store"
)

// AddMemory stores a short note the AI receives on every generation. The
// per-owner cap is enforced inside the insert transaction; hitting it is a
// validation failure like any other bad memory input.
func (a *App) AddMemory(ownerID, content string) (domain.Memory, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Memory{}, fmt.Errorf("memory content is required: %w", ErrValidation)
	}
	if utf8.RuneCountInString(content) > domain.MemoryMaxLen {
		return domain.Memory{}, fmt.Errorf("memory exceeds %d characters: %w", domain.MemoryMaxLen, ErrValidation)
	}
	m := domain.Memory{
		ID:        util.NewID(),
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.AddMemory(m); err != nil {
		if errors.Is(err, store.ErrMemoryLimit) {
			return domain.Memory{}, fmt.Errorf("memory limit of %d reached: %w", domain.MemoryMaxPerOwner, ErrValidation)
		}
		return domain.Memory{}, err
	}
	return m, nil
}

// ListMemories returns the owner's memories.
func (a *App) ListMemories(ownerID string) ([]domain.Memory, error) {
	return a.store.ListMemories(ownerID)
}

// DeleteMemory removes one owned memory.
func (a *App) DeleteMemory(ownerID, memoryID string) error {
	ok, err := a.store.DeleteMemory(memoryID, ownerID)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if !ok {
		return fmt.Errorf("memory %s: %w", memoryID, ErrNotFound)
	}
	return nil
}
