// Package otp implements short-lived, purpose-scoped one-time passcodes used
// to gate account-management flows. Tickets are keyed solely by email: issuing
// a new code replaces whatever was outstanding for that address, and a
// successful verification consumes the ticket.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/mail"
	"strings"
	"time"
)

// Purposes a ticket may be issued for.
const (
	PurposeSignup         = "signup"
	PurposeResetPassword  = "reset_password"
	PurposeChangePassword = "change_password"
	PurposeDeleteAccount  = "delete_account"
)

const (
	codeLength = 6
	// TicketTTL is how long an issued code stays valid.
	TicketTTL = 10 * time.Minute
)

var (
	ErrNotFound        = errors.New("no verification code outstanding")
	ErrMismatch        = errors.New("incorrect verification code")
	ErrExpired         = errors.New("verification code expired")
	ErrPurposeMismatch = errors.New("verification code issued for a different purpose")

	errEmailRequired  = errors.New("email is required")
	errEmailInvalid   = errors.New("email format is invalid")
	errPurposeInvalid = errors.New("invalid verification purpose")
)

// Store issues and verifies single-use codes. Implementations must keep at
// most one live ticket per email and must delete the ticket on successful
// verification and on expiry.
type Store interface {
	Issue(email, purpose string) (string, error)
	Verify(email, code, purpose string) error
}

// ValidPurpose reports whether purpose names a known flow.
func ValidPurpose(purpose string) bool {
	switch strings.TrimSpace(strings.ToLower(purpose)) {
	case PurposeSignup, PurposeResetPassword, PurposeChangePassword, PurposeDeleteAccount:
		return true
	default:
		return false
	}
}

// NormalizeEmail lowercases, trims and syntax-checks an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errEmailInvalid
	}
	return email, nil
}

func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = codeLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code digit: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
