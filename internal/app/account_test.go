package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docchat/internal/identity"
	"docchat/pkg/otp"
)

func TestRequestOTPMailsCode(t *testing.T) {
	env := newTestEnv(t)
	if err := env.app.RequestOTP("Person@Example.com", otp.PurposeSignup); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if env.mail.LastTo != "person@example.com" {
		t.Fatalf("code mailed to %q", env.mail.LastTo)
	}
	if len(env.mail.LastCode) != 6 {
		t.Fatalf("code %q should have 6 digits", env.mail.LastCode)
	}
	if err := env.app.RequestOTP("person@example.com", "bogus"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad purpose: got %v, want ErrValidation", err)
	}
}

func TestConfirmSignupCreatesProfileOnce(t *testing.T) {
	env := newTestEnv(t)
	who := identity.Identity{Subject: "sub-new", Email: "new@example.com", Name: "Newcomer"}

	if err := env.app.RequestOTP(who.Email, otp.PurposeSignup); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	user, err := env.app.ConfirmSignup(context.Background(), who, env.mail.LastCode)
	if err != nil {
		t.Fatalf("confirm signup: %v", err)
	}
	if user.Subject != "sub-new" || user.Email != "new@example.com" {
		t.Fatalf("unexpected profile: %+v", user)
	}

	// The code is consumed; a replay fails.
	if _, err := env.app.ConfirmSignup(context.Background(), who, env.mail.LastCode); !errors.Is(err, ErrValidation) {
		t.Fatalf("replayed code: got %v, want ErrValidation", err)
	}

	// RegisterProfile is idempotent for a known subject.
	again, err := env.app.RegisterProfile(who)
	if err != nil || again.ID != user.ID {
		t.Fatalf("re-register: %+v err=%v", again, err)
	}
}

func TestResetPasswordUpdatesProvider(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "reset@example.com")

	if err := env.app.RequestOTP(user.Email, otp.PurposeResetPassword); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if err := env.app.ResetPassword(context.Background(), user.Email, env.mail.LastCode, "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak password: got %v, want ErrValidation", err)
	}
	if err := env.app.ResetPassword(context.Background(), user.Email, env.mail.LastCode, "longenoughpassword"); err != nil {
		t.Fatalf("reset password: %v", err)
	}
	if len(env.admin.passwordSubjects) != 1 || env.admin.passwordSubjects[0] != user.Subject {
		t.Fatalf("provider not updated: %v", env.admin.passwordSubjects)
	}
}

func TestChangePasswordRejectsWrongPurposeCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "change@example.com")

	if err := env.app.RequestOTP(user.Email, otp.PurposeResetPassword); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	err := env.app.ChangePassword(context.Background(), user, env.mail.LastCode, "longenoughpassword")
	if !errors.Is(err, otp.ErrPurposeMismatch) {
		t.Fatalf("got %v, want ErrPurposeMismatch", err)
	}
	// The ticket survives a purpose mismatch and still works for its own flow.
	if err := env.app.ResetPassword(context.Background(), user.Email, env.mail.LastCode, "longenoughpassword"); err != nil {
		t.Fatalf("reset after mismatch: %v", err)
	}
}

func TestDeleteAccountCascadesAndEnqueuesCleanup(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "gone@example.com")
	file, err := env.app.Ingest(context.Background(), user, "papers", "doc.pdf", strings.NewReader("%PDF-stub"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := env.app.PostMessage(context.Background(), user, "", "hello", []string{file.ID}); err != nil {
		t.Fatalf("post message: %v", err)
	}

	if err := env.app.RequestOTP(user.Email, otp.PurposeDeleteAccount); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if err := env.app.DeleteAccount(context.Background(), user, env.mail.LastCode); err != nil {
		t.Fatalf("delete account: %v", err)
	}

	if _, found, _ := env.store.GetUserByID(user.ID); found {
		t.Fatalf("user row should be gone")
	}
	if len(env.admin.deletedSubjects) != 1 || env.admin.deletedSubjects[0] != user.Subject {
		t.Fatalf("identity provider not called: %v", env.admin.deletedSubjects)
	}
	task := env.queue.last(t)
	if task.OwnerID != user.ID {
		t.Fatalf("task should remove owner dir, got %+v", task)
	}
	if len(task.FileIDs) != 1 || task.FileIDs[0] != file.ID {
		t.Fatalf("task should carry the owner's file ids, got %v", task.FileIDs)
	}
}

func TestDeleteAccountReportsInconsistentStateOnProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "stuck@example.com")
	env.admin.deleteErr = errors.New("provider down")

	if err := env.app.RequestOTP(user.Email, otp.PurposeDeleteAccount); err != nil {
		t.Fatalf("request otp: %v", err)
	}
	err := env.app.DeleteAccount(context.Background(), user, env.mail.LastCode)
	if !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("got %v, want ErrInconsistentState", err)
	}
	// Local state is gone and cleanup still runs.
	if _, found, _ := env.store.GetUserByID(user.ID); found {
		t.Fatalf("local cascade must commit before the provider call")
	}
	if task := env.queue.last(t); task.OwnerID != user.ID {
		t.Fatalf("cleanup should still be enqueued, got %+v", task)
	}
}

func TestDeleteAccountRejectsBadCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.newUser(t, "nocode@example.com")
	if err := env.app.DeleteAccount(context.Background(), user, "000000"); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	if _, found, _ := env.store.GetUserByID(user.ID); !found {
		t.Fatalf("user must survive a failed code check")
	}
}
