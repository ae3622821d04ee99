// Package storage keeps uploaded artifacts on local disk, one directory per
// owner. The database row for a file and the artifact under the owner
// directory are created and destroyed together by the orchestrators.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore saves uploaded files to disk under a base directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// OwnerDir returns the upload directory of one owner.
func (f *FileStore) OwnerDir(ownerID string) string {
	return filepath.Join(f.basePath, safeSegment(ownerID))
}

// Save writes an uploaded file under the owner's folder and returns the full
// path of the stored artifact.
func (f *FileStore) Save(ownerID, filename string, r io.Reader) (string, error) {
	targetDir := f.OwnerDir(ownerID)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("create owner dir: %w", err)
	}
	target := filepath.Join(targetDir, safeSegment(filename))

	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("write file: %w", err)
	}
	return target, nil
}

// Remove unlinks one artifact. A missing file is not an error.
func (f *FileStore) Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// RemoveOwner deletes the owner's entire upload directory.
func (f *FileStore) RemoveOwner(ownerID string) error {
	targetDir := f.OwnerDir(ownerID)
	if _, err := os.Stat(targetDir); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(targetDir)
}

func safeSegment(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, string(os.PathSeparator), "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "file"
	}
	return name
}
