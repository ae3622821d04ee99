package store

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"docchat/pkg/domain"
)

// GORM models used for persistence.
type UserModel struct {
	ID        string    `gorm:"primaryKey"`
	Subject   string    `gorm:"uniqueIndex;not null"`
	Email     string    `gorm:"uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Role      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type FileModel struct {
	ID           string    `gorm:"primaryKey"`
	OwnerID      string    `gorm:"not null;index:idx_files_owner_collection"`
	StoredName   string    `gorm:"not null"`
	OriginalName string    `gorm:"not null"`
	Collection   string    `gorm:"not null;index:idx_files_owner_collection"`
	Path         string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

type ChatSessionModel struct {
	ID        string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"not null;index"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type ChatMessageModel struct {
	ID        string `gorm:"primaryKey"`
	SessionID string `gorm:"not null;index"`
	Sender    string `gorm:"not null"`
	Text      string `gorm:"not null;type:text"`
	FilesUsed datatypes.JSON
	CreatedAt time.Time `gorm:"not null;index"`
}

// SessionFileModel links sessions to the files used as chat context. The
// composite primary key makes the association insert a set-union upsert.
type SessionFileModel struct {
	SessionID string `gorm:"primaryKey"`
	FileID    string `gorm:"primaryKey"`
}

type MemoryModel struct {
	ID        string    `gorm:"primaryKey"`
	OwnerID   string    `gorm:"not null;index"`
	Content   string    `gorm:"not null;size:500"`
	CreatedAt time.Time `gorm:"not null"`
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:        u.ID,
		Subject:   u.Subject,
		Email:     u.Email,
		Name:      u.Name,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:        m.ID,
		Subject:   m.Subject,
		Email:     m.Email,
		Name:      m.Name,
		Role:      domain.UserRole(m.Role),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func fileToModel(f domain.File) FileModel {
	return FileModel{
		ID:           f.ID,
		OwnerID:      f.OwnerID,
		StoredName:   f.StoredName,
		OriginalName: f.OriginalName,
		Collection:   f.Collection,
		Path:         f.Path,
		CreatedAt:    f.CreatedAt,
	}
}

func fileFromModel(m FileModel) domain.File {
	return domain.File{
		ID:           m.ID,
		OwnerID:      m.OwnerID,
		StoredName:   m.StoredName,
		OriginalName: m.OriginalName,
		Collection:   m.Collection,
		Path:         m.Path,
		CreatedAt:    m.CreatedAt,
	}
}

func sessionToModel(s domain.ChatSession) ChatSessionModel {
	return ChatSessionModel{
		ID:        s.ID,
		OwnerID:   s.OwnerID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
	}
}

func sessionFromModel(m ChatSessionModel) domain.ChatSession {
	return domain.ChatSession{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
	}
}

func messageToModel(msg domain.ChatMessage) (ChatMessageModel, error) {
	model := ChatMessageModel{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		Sender:    string(msg.Sender),
		Text:      msg.Text,
		CreatedAt: msg.CreatedAt,
	}
	if len(msg.FilesUsed) > 0 {
		raw, err := json.Marshal(msg.FilesUsed)
		if err != nil {
			return model, err
		}
		model.FilesUsed = datatypes.JSON(raw)
	}
	return model, nil
}

func messageFromModel(m ChatMessageModel) domain.ChatMessage {
	msg := domain.ChatMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		Sender:    domain.SenderRole(m.Sender),
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
	if len(m.FilesUsed) > 0 {
		_ = json.Unmarshal(m.FilesUsed, &msg.FilesUsed)
	}
	return msg
}

func memoryToModel(m domain.Memory) MemoryModel {
	return MemoryModel{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func memoryFromModel(m MemoryModel) domain.Memory {
	return domain.Memory{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
