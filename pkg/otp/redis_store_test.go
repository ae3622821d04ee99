package otp

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	redis := miniredis.RunT(t)
	store, err := NewRedisStore(redis.Addr(), "", "test:otp")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	code, err := store.Issue("user@example.com", PurposeSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeSignup); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeSignup); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on reuse, got %v", err)
	}
}

func TestRedisStorePurposeMismatch(t *testing.T) {
	redis := miniredis.RunT(t)
	store, err := NewRedisStore(redis.Addr(), "", "test:otp")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	code, err := store.Issue("user@example.com", PurposeSignup)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeDeleteAccount); !errors.Is(err, ErrPurposeMismatch) {
		t.Fatalf("expected ErrPurposeMismatch, got %v", err)
	}
	if err := store.Verify("user@example.com", code, PurposeSignup); err != nil {
		t.Fatalf("verify after purpose mismatch: %v", err)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	redis := miniredis.RunT(t)
	store, err := NewRedisStore(redis.Addr(), "", "test:otp")
	if err != nil {
		t.Fatalf("new redis store: %v", err)
	}
	code, err := store.Issue("user@example.com", PurposeResetPassword)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	// inside the redis TTL grace window but past the ticket expiry
	store.now = func() time.Time { return time.Now().Add(TicketTTL + time.Second) }
	if err := store.Verify("user@example.com", code, PurposeResetPassword); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestRedisStoreRequiresAddr(t *testing.T) {
	if _, err := NewRedisStore("", "", ""); err == nil {
		t.Fatalf("expected constructor error for empty addr")
	}
}
