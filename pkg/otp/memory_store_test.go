package otp

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	code, err := store.Issue("user@example.com", PurposeSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6-digit code, got %q", code)
	}
	if err := store.Verify("user@example.com", code, PurposeSignup); err != nil {
		t.Fatalf("verify: %v", err)
	}
	// single use: the same code must not verify twice
	if err := store.Verify("user@example.com", code, PurposeSignup); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reuse, got %v", err)
	}
}

func TestMemoryStorePurposeMismatchKeepsTicket(t *testing.T) {
	store := NewMemoryStore()
	code, err := store.Issue("user@example.com", PurposeSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeDeleteAccount); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("expected ErrPurposeMismatch, got %v", err)
	}
	// ticket survives the purpose mismatch
	if err := store.Verify("user@example.com", code, PurposeSignup); err != nil {
		t.Fatalf("verify after purpose mismatch: %v", err)
	}
}

func TestMemoryStoreMismatchKeepsTicket(t *testing.T) {
	store := NewMemoryStore()
	code, err := store.Issue("user@example.com", PurposeResetPassword)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if err := store.Verify("user@example.com", wrong, PurposeResetPassword); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeResetPassword); err != nil {
		t.Fatalf("verify after mismatch: %v", err)
	}
}

func TestMemoryStoreExpiryConsumesTicket(t *testing.T) {
	store := NewMemoryStore()
	code, err := store.Issue("user@example.com", PurposeChangePassword)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	store.now = func() time.Time { return time.Now().Add(TicketTTL + time.Second) }
	if err := store.Verify("user@example.com", code, PurposeChangePassword); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	store.now = time.Now
	if err := store.Verify("user@example.com", code, PurposeChangePassword); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired ticket should be gone, got %v", err)
	}
}

func TestMemoryStoreIssueOverwritesAcrossPurposes(t *testing.T) {
	store := NewMemoryStore()
	first, err := store.Issue("user@example.com", PurposeSignup)
	if err != nil {
		t.Fatalf("issue first: %v", err)
	}
	second, err := store.Issue("user@example.com", PurposeDeleteAccount)
	if err != nil {
		t.Fatalf("issue second: %v", err)
	}
	// the live ticket now carries the delete_account purpose
	if err := store.Verify("user@example.com", first, PurposeSignup); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("old ticket should be replaced, got %v", err)
	}
	if err := store.Verify("user@example.com", second, PurposeDeleteAccount); err != nil {
		t.Fatalf("verify latest ticket: %v", err)
	}
}

func TestMemoryStoreRejectsBadInput(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Issue("not-an-email", PurposeSignup); err == nil {
		t.Fatalf("expected error for invalid email")
	}
	if _, err := store.Issue("user@example.com", "rule_the_world"); err == nil {
		t.Fatalf("expected error for unknown purpose")
	}
}
