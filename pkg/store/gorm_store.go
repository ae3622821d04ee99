package store

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"docchat/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the Postgres database and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	return OpenGormStore(postgres.Open(dsn))
}

// OpenGormStore opens the given dialector and runs auto-migrations. Tests use
// this with sqlite.
func OpenGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&FileModel{},
		&ChatSessionModel{},
		&ChatMessageModel{},
		&SessionFileModel{},
		&MemoryModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateUser inserts a user profile and returns it with timestamps set.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	model := userToModel(u)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, err
	}
	return userFromModel(model), nil
}

// GetUserByID returns a user by local ID.
func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserBySubject returns a user by external auth subject.
func (s *GormStore) GetUserBySubject(subject string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "subject = ?", subject).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpdateUserProfile applies the whitelisted optional fields. Reports whether
// a row was touched.
func (s *GormStore) UpdateUserProfile(id string, update ProfileUpdate) (bool, error) {
	columns := map[string]any{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		columns["name"] = *update.Name
	}
	if update.Email != nil {
		columns["email"] = *update.Email
	}
	res := s.db.Model(&UserModel{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteUser removes the user and all owned rows in one transaction.
func (s *GormStore) DeleteUser(id string) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sessionIDs []string
		if err := tx.Model(&ChatSessionModel{}).Where("owner_id = ?", id).Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) > 0 {
			if err := tx.Delete(&ChatMessageModel{}, "session_id IN ?", sessionIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&SessionFileModel{}, "session_id IN ?", sessionIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&ChatSessionModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&FileModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&MemoryModel{}, "owner_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&UserModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// InsertFile persists a file row as a single statement and returns it with
// the assigned creation time.
func (s *GormStore) InsertFile(f domain.File) (domain.File, error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	model := fileToModel(f)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.File{}, err
	}
	return fileFromModel(model), nil
}

// GetFileOwned retrieves a file scoped to its owner.
func (s *GormStore) GetFileOwned(id, ownerID string) (domain.File, bool, error) {
	var model FileModel
	if err := s.db.First(&model, "id = ? AND owner_id = ?", id, ownerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.File{}, false, nil
		}
		return domain.File{}, false, err
	}
	return fileFromModel(model), true, nil
}

// ListFilesByOwner returns all files of one owner ordered by created_at.
func (s *GormStore) ListFilesByOwner(ownerID string) ([]domain.File, error) {
	return s.listFiles("owner_id = ?", ownerID)
}

// ListFilesByCollection returns files in (owner, collection).
func (s *GormStore) ListFilesByCollection(ownerID, collection string) ([]domain.File, error) {
	return s.listFiles("owner_id = ? AND collection = ?", ownerID, collection)
}

func (s *GormStore) listFiles(cond string, args ...any) ([]domain.File, error) {
	var models []FileModel
	if err := s.db.Order("created_at ASC").Where(cond, args...).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.File, 0, len(models))
	for _, m := range models {
		res = append(res, fileFromModel(m))
	}
	return res, nil
}

// ListCollections returns the distinct collection names of one owner.
func (s *GormStore) ListCollections(ownerID string) ([]string, error) {
	var names []string
	err := s.db.Model(&FileModel{}).
		Where("owner_id = ?", ownerID).
		Distinct("collection").
		Order("collection ASC").
		Pluck("collection", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

// DeleteFile removes one owned file row. Reports whether a row existed.
func (s *GormStore) DeleteFile(id, ownerID string) (bool, error) {
	res := s.db.Delete(&FileModel{}, "id = ? AND owner_id = ?", id, ownerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteFilesByCollection removes every file row in (owner, collection) and
// returns the affected-row count.
func (s *GormStore) DeleteFilesByCollection(ownerID, collection string) (int64, error) {
	res := s.db.Delete(&FileModel{}, "owner_id = ? AND collection = ?", ownerID, collection)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// CreateSession persists a chat session.
func (s *GormStore) CreateSession(session domain.ChatSession) error {
	model := sessionToModel(session)
	return s.db.Create(&model).Error
}

// GetSession retrieves a session by ID.
func (s *GormStore) GetSession(id string) (domain.ChatSession, bool, error) {
	var model ChatSessionModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ChatSession{}, false, nil
		}
		return domain.ChatSession{}, false, err
	}
	return sessionFromModel(model), true, nil
}

// ListSessionsByOwner returns the owner's sessions, newest first.
func (s *GormStore) ListSessionsByOwner(ownerID string) ([]domain.ChatSession, error) {
	var models []ChatSessionModel
	if err := s.db.Order("created_at DESC").Where("owner_id = ?", ownerID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatSession, 0, len(models))
	for _, m := range models {
		res = append(res, sessionFromModel(m))
	}
	return res, nil
}

// RenameSession updates the display name of an owned session.
func (s *GormStore) RenameSession(id, ownerID, name string) (bool, error) {
	res := s.db.Model(&ChatSessionModel{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("name", name)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteSession removes a session with its messages and file associations.
func (s *GormStore) DeleteSession(id, ownerID string) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&ChatSessionModel{}, "id = ? AND owner_id = ?", id, ownerID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		if err := tx.Delete(&ChatMessageModel{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&SessionFileModel{}, "session_id = ?", id).Error
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// CreateUserMessage writes the user message and the session-file associations
// in one short transaction. Associations are a set union: duplicates are
// ignored by the store, not checked by the caller.
func (s *GormStore) CreateUserMessage(msg domain.ChatMessage, fileIDs []string) error {
	model, err := messageToModel(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		if len(fileIDs) == 0 {
			return nil
		}
		links := make([]SessionFileModel, 0, len(fileIDs))
		for _, fileID := range fileIDs {
			links = append(links, SessionFileModel{SessionID: msg.SessionID, FileID: fileID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
}

// AppendAIMessage durably writes an AI reply.
func (s *GormStore) AppendAIMessage(msg domain.ChatMessage) error {
	model, err := messageToModel(msg)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	return s.db.Create(&model).Error
}

// ListSessionMessages returns a session's messages in creation order.
func (s *GormStore) ListSessionMessages(sessionID string) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	err := s.db.Order("created_at ASC, id ASC").
		Where("session_id = ?", sessionID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		res = append(res, messageFromModel(m))
	}
	return res, nil
}

// AddMemory inserts a memory, enforcing the per-owner cap inside the insert
// transaction.
func (s *GormStore) AddMemory(m domain.Memory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	model := memoryToModel(m)
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&MemoryModel{}).Where("owner_id = ?", m.OwnerID).Count(&count).Error; err != nil {
			return err
		}
		if count >= domain.MemoryMaxPerOwner {
			return ErrMemoryLimit
		}
		return tx.Create(&model).Error
	})
}

// ListMemories returns the owner's memories oldest first.
func (s *GormStore) ListMemories(ownerID string) ([]domain.Memory, error) {
	var models []MemoryModel
	if err := s.db.Order("created_at ASC").Where("owner_id = ?", ownerID).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Memory, 0, len(models))
	for _, m := range models {
		res = append(res, memoryFromModel(m))
	}
	return res, nil
}

// DeleteMemory removes one owned memory.
func (s *GormStore) DeleteMemory(id, ownerID string) (bool, error) {
	res := s.db.Delete(&MemoryModel{}, "id = ? AND owner_id = ?", id, ownerID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
