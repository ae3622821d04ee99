package app

import "errors"

var (
	// ErrValidation marks rejected input; the message is safe to show callers.
	ErrValidation = errors.New("invalid input")
	// ErrAccessDenied marks an attempt to touch another owner's resource.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound marks a missing owner-scoped resource.
	ErrNotFound = errors.New("not found")
	// ErrGeneration marks an AI reply failure after the user message was
	// already committed.
	ErrGeneration = errors.New("reply generation failed")
	// ErrInconsistentState marks a cross-system failure that left local and
	// provider state diverged and needs operator attention.
	ErrInconsistentState = errors.New("account state inconsistent")
)
