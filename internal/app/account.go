package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docchat/internal/identity"
	"docchat/internal/tasks"
	"docchat/internal/util"
	"docchat/pkg/domain"
	"docchat/pkg/otp"
)

const minPasswordLength = 8

// RequestOTP issues a one-time code for the purpose and mails it. Issuing
// again replaces any live code for the email.
func (a *App) RequestOTP(email, purpose string) error {
	if !otp.ValidPurpose(purpose) {
		return fmt.Errorf("unknown purpose %q: %w", purpose, ErrValidation)
	}
	normalized, err := otp.NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}
	code, err := a.otp.Issue(normalized, purpose)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}
	if err := a.mailer.SendCode(normalized, purpose, code); err != nil {
		return fmt.Errorf("send code: %w", err)
	}
	slog.Info("otp issued", "purpose", purpose)
	return nil
}

// ConfirmSignup verifies the signup code and creates the local profile for
// the externally authenticated subject.
func (a *App) ConfirmSignup(ctx context.Context, who identity.Identity, code string) (domain.User, error) {
	normalized, err := otp.NormalizeEmail(who.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if err := a.otp.Verify(normalized, code, otp.PurposeSignup); err != nil {
		return domain.User{}, otpError(err)
	}
	return a.RegisterProfile(who)
}

// ResetPassword verifies the reset code and sets the new password at the
// identity provider. Works without a valid access token; the code proves
// control of the mailbox.
func (a *App) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	normalized, err := otp.NormalizeEmail(email)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrValidation)
	}
	user, found, err := a.store.GetUserByEmail(normalized)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !found {
		return fmt.Errorf("account %s: %w", normalized, ErrNotFound)
	}
	if err := a.otp.Verify(normalized, code, otp.PurposeResetPassword); err != nil {
		return otpError(err)
	}
	if err := a.identity.UpdatePassword(ctx, user.Subject, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.Info("password reset", "user_id", user.ID)
	return nil
}

// ChangePassword is the authenticated variant: the code is bound to the
// caller's own email.
func (a *App) ChangePassword(ctx context.Context, owner domain.User, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := a.otp.Verify(owner.Email, code, otp.PurposeChangePassword); err != nil {
		return otpError(err)
	}
	if err := a.identity.UpdatePassword(ctx, owner.Subject, newPassword); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	slog.Info("password changed", "user_id", owner.ID)
	return nil
}

// DeleteAccount removes the account end to end: the local cascade delete is
// committed first and is the point of no return. If the identity provider
// delete then fails, the error is surfaced as ErrInconsistentState but the
// cleanup still runs; the local data is gone either way.
func (a *App) DeleteAccount(ctx context.Context, owner domain.User, code string) error {
	if err := a.otp.Verify(owner.Email, code, otp.PurposeDeleteAccount); err != nil {
		return otpError(err)
	}

	files, err := a.store.ListFilesByOwner(owner.ID)
	if err != nil {
		return fmt.Errorf("list files: %w", err)
	}

	deleted, err := a.store.DeleteUser(owner.ID)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if !deleted {
		return fmt.Errorf("account %s: %w", owner.ID, ErrNotFound)
	}

	var inconsistent error
	if err := a.identity.DeleteUser(ctx, owner.Subject); err != nil {
		slog.Error("identity delete failed after local cascade", "user_id", owner.ID, "err", err)
		inconsistent = fmt.Errorf("identity delete: %v: %w", err, ErrInconsistentState)
	}

	task := tasks.Task{OwnerID: owner.ID}
	for _, f := range files {
		task.FileIDs = append(task.FileIDs, f.ID)
	}
	a.enqueueCleanup(ctx, task)
	slog.Info("account deleted", "user_id", owner.ID, "files", len(files))
	return inconsistent
}

func validatePassword(p string) error {
	if len(strings.TrimSpace(p)) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, ErrValidation)
	}
	return nil
}

// otpError keeps the otp sentinel chain intact while marking the failure as
// caller-facing validation.
func otpError(err error) error {
	switch {
	case errors.Is(err, otp.ErrNotFound),
		errors.Is(err, otp.ErrMismatch),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrPurposeMismatch):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return fmt.Errorf("verify code: %w", err)
	}
}

// RegisterProfile creates the local user row on first contact and is
// idempotent afterwards.
func (a *App) RegisterProfile(who identity.Identity) (domain.User, error) {
	existing, found, err := a.store.GetUserBySubject(who.Subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}
	if found {
		return existing, nil
	}
	normalized, err := otp.NormalizeEmail(who.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:        util.NewID(),
		Subject:   who.Subject,
		Email:     normalized,
		Name:      strings.TrimSpace(who.Name),
		Role:      domain.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := a.store.CreateUser(user)
	if err != nil {
		return domain.User{}, fmt.Errorf("create profile: %w", err)
	}
	slog.Info("profile registered", "user_id", created.ID)
	return created, nil
}
