package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

// RedisStore keeps tickets in Redis so codes survive process restarts and
// multiple replicas can serve the same flow.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

type redisTicket struct {
	Purpose   string    `json:"purpose"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewRedisStore connects a ticket store to Redis.
func NewRedisStore(addr, password, keyPrefix string) (*RedisStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("otp redis addr is required")
	}
	keyPrefix = strings.TrimSpace(keyPrefix)
	if keyPrefix == "" {
		keyPrefix = "docchat:otp"
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: keyPrefix,
		now:       time.Now,
	}, nil
}

// Issue creates a 6-digit code for email, replacing any prior ticket.
func (s *RedisStore) Issue(email, purpose string) (string, error) {
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
	raw, err := json.Marshal(redisTicket{
		Purpose:   purpose,
		CodeHash:  string(hash),
		ExpiresAt: s.now().UTC().Add(TicketTTL),
	})
	if err != nil {
		return "", fmt.Errorf("marshal ticket: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// TTL slightly past the expiry so an expired verify can still report
	// ErrExpired instead of ErrNotFound.
	if err := s.client.Set(ctx, s.key(email), raw, TicketTTL+time.Minute).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return code, nil
}

// Verify checks code against the live ticket for email, consuming it on
// success and on expiry.
func (s *RedisStore) Verify(email, code, purpose string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	if !ValidPurpose(purpose) {
		return errPurposeInvalid
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := s.key(email)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load ticket: %w", err)
	}
	var t redisTicket
	if err := json.Unmarshal(raw, &t); err != nil {
		return fmt.Errorf("unmarshal ticket: %w", err)
	}
	if s.now().UTC().After(t.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return ErrExpired
	}
	if t.Purpose != purpose {
		return ErrPurposeMismatch
	}
	if bcrypt.CompareHashAndPassword([]byte(t.CodeHash), []byte(code)) != nil {
		return ErrMismatch
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("consume ticket: %w", err)
	}
	return nil
}

func (s *RedisStore) key(email string) string {
	return fmt.Sprintf("%s:ticket:%s", s.keyPrefix, email)
}
