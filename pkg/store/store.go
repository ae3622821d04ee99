package store

import (
	"errors"

	"docchat/pkg/domain"
)

var (
	// ErrMemoryLimit is returned when an owner already holds the maximum
	// number of memories.
	ErrMemoryLimit = errors.New("memory limit reached")
)

// ProfileUpdate carries the whitelisted updatable profile columns. Nil fields
// are left untouched.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// Store abstracts durable persistence for users, files, chat and memories.
type Store interface {
	// users
	CreateUser(u domain.User) (domain.User, error)
	GetUserByID(id string) (domain.User, bool, error)
	GetUserBySubject(subject string) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	UpdateUserProfile(id string, update ProfileUpdate) (bool, error)
	// DeleteUser removes the user and everything it owns in one transaction.
	DeleteUser(id string) (bool, error)

	// files
	InsertFile(f domain.File) (domain.File, error)
	GetFileOwned(id, ownerID string) (domain.File, bool, error)
	ListFilesByOwner(ownerID string) ([]domain.File, error)
	ListFilesByCollection(ownerID, collection string) ([]domain.File, error)
	ListCollections(ownerID string) ([]string, error)
	DeleteFile(id, ownerID string) (bool, error)
	DeleteFilesByCollection(ownerID, collection string) (int64, error)

	// chat sessions
	CreateSession(s domain.ChatSession) error
	GetSession(id string) (domain.ChatSession, bool, error)
	ListSessionsByOwner(ownerID string) ([]domain.ChatSession, error)
	RenameSession(id, ownerID, name string) (bool, error)
	DeleteSession(id, ownerID string) (bool, error)

	// chat messages
	// CreateUserMessage durably writes the user message and the session-file
	// associations in one short transaction.
	CreateUserMessage(msg domain.ChatMessage, fileIDs []string) error
	AppendAIMessage(msg domain.ChatMessage) error
	ListSessionMessages(sessionID string) ([]domain.ChatMessage, error)

	// memories
	AddMemory(m domain.Memory) error
	ListMemories(ownerID string) ([]domain.Memory, error)
	DeleteMemory(id, ownerID string) (bool, error)
}
