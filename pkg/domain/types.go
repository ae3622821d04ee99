package domain

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// SenderRole distinguishes who wrote a chat message.
type SenderRole string

const (
	SenderUser SenderRole = "user"
	SenderAI   SenderRole = "ai"
)

const (
	// MemoryMaxLen caps the content length of a single memory.
	MemoryMaxLen = 500
	// MemoryMaxPerOwner caps how many memories one owner may hold.
	MemoryMaxPerOwner = 50
)

// User is the local profile for an externally authenticated subject.
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"-"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// File is an ingested document owned by a user and grouped by a free-text
// collection label. The row and the artifact at Path live and die together.
type File struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	StoredName   string    `json:"storedName"`
	OriginalName string    `json:"originalName"`
	Collection   string    `json:"collection"`
	Path         string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ChatSession groups an ordered conversation.
type ChatSession struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is immutable once written. FilesUsed is only ever set on
// messages sent by the AI.
type ChatMessage struct {
	ID        string     `json:"id"`
	SessionID string     `json:"sessionId"`
	Sender    SenderRole `json:"sender"`
	Text      string     `json:"text"`
	FilesUsed []string   `json:"filesUsed,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Memory is a short free-text note the AI receives on every generation.
type Memory struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
