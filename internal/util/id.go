package util

import "github.com/google/uuid"

// NewID returns a random UUID string used for all entity identifiers.
func NewID() string {
	return uuid.NewString()
}
