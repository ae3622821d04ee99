package app

import (
	"fmt"
	"strings"

	"docchat/pkg/domain"
	"docchat/pkg/otp"
	"docchat/pkg/store"
)

// GetProfile loads the local profile by ID.
func (a *App) GetProfile(userID string) (domain.User, error) {
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return domain.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return user, nil
}

// GetProfileBySubject resolves the external subject to the local profile.
func (a *App) GetProfileBySubject(subject string) (domain.User, error) {
	user, found, err := a.store.GetUserBySubject(subject)
	if err != nil {
		return domain.User{}, fmt.Errorf("load profile: %w", err)
	}
	if !found {
		return domain.User{}, fmt.Errorf("subject not registered: %w", ErrNotFound)
	}
	return user, nil
}

// UpdateProfile applies a partial update over the whitelisted columns. Nil
// fields are untouched.
func (a *App) UpdateProfile(userID string, name, email *string) (domain.User, error) {
	update := store.ProfileUpdate{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return domain.User{}, fmt.Errorf("name must not be empty: %w", ErrValidation)
		}
		update.Name = &trimmed
	}
	if email != nil {
		normalized, err := otp.NormalizeEmail(*email)
		if err != nil {
			return domain.User{}, fmt.Errorf("%v: %w", err, ErrValidation)
		}
		update.Email = &normalized
	}
	if update.Name == nil && update.Email == nil {
		return domain.User{}, fmt.Errorf("no updatable fields given: %w", ErrValidation)
	}
	ok, err := a.store.UpdateUserProfile(userID, update)
	if err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return domain.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}
	return a.GetProfile(userID)
}
