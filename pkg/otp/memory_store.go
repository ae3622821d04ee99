package otp

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type ticket struct {
	purpose   string
	codeHash  []byte
	expiresAt time.Time
}

// MemoryStore keeps tickets in-process. A restart invalidates every
// outstanding code; that is an accepted limitation of single-node deploys.
type MemoryStore struct {
	mu      sync.Mutex
	tickets map[string]ticket
	now     func() time.Time
}

// NewMemoryStore initializes an empty in-memory ticket store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets: make(map[string]ticket),
		now:     time.Now,
	}
}

// Issue creates a 6-digit code for email, replacing any prior ticket for that
// address regardless of its purpose.
func (s *MemoryStore) Issue(email, purpose string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if !ValidPurpose(purpose) {
		return "", errPurposeInvalid
	}
	code, err := generateNumericCode(codeLength)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash code: %w", err)
	}
	s.mu.Lock()
	s.tickets[email] = ticket{
		purpose:   purpose,
		codeHash:  hash,
		expiresAt: s.now().UTC().Add(TicketTTL),
	}
	s.mu.Unlock()
	return code, nil
}

// Verify checks code against the live ticket for email. The ticket is
// consumed on success and on expiry; a purpose or code mismatch leaves it in
// place so the legitimate flow can still complete.
func (s *MemoryStore) Verify(email, code, purpose string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if !ValidPurpose(purpose) {
		return errPurposeInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[email]
	if !ok {
		return ErrNotFound
	}
	if s.now().UTC().After(t.expiresAt) {
		delete(s.tickets, email)
		return ErrExpired
	}
	if t.purpose != purpose {
		return ErrPurposeMismatch
	}
	if bcrypt.CompareHashAndPassword(t.codeHash, []byte(code)) != nil {
		return ErrMismatch
	}
	delete(s.tickets, email)
	return nil
}
