package core

import (
	"context"
	"strings"

	"glucotrack/internal/repository"
	"glucotrack/pkg/domain"
)

// Users stores accounts keyed by normalised email.
type Users struct {
	*repository.Repository[User]
}

// NormalizeEmail lower-cases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindByEmail looks up a user by email, ignoring case and surrounding space.
func (u *Users) FindByEmail(ctx context.Context, email string) (User, bool, error) {
	return u.FindFirst(ctx, repository.Where(domain.FieldEmail, repository.Eq(NormalizeEmail(email))))
}

// Register returns the existing user for the email or creates one. The bool
// reports whether a new user was created.
func (u *Users) Register(ctx context.Context, user User) (User, bool, error) {
	user.Email = NormalizeEmail(user.Email)
	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return User{}, false, ValidationError{Field: domain.FieldEmail, Reason: "must be an email address"}
	}
	user.Name = strings.TrimSpace(user.Name)
	existing, ok, err := u.FindByEmail(ctx, user.Email)
	if err != nil {
		return User{}, false, err
	}
	if ok {
		return existing, false, nil
	}
	created, err := u.Create(ctx, user)
	if err != nil {
		return User{}, false, err
	}
	return created, true, nil
}
