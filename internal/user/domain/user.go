package domain

import (
	"errors"
	"time"
)

// User is the credential-store record for one account. Email and username
// are unique at write time.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
	LastLoginIP  string
}

// Validate checks the fields this package can judge without touching the
// store. Uniqueness is enforced by the repository.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user: id is required")
	}
	if u.Email == "" {
		return errors.New("user: email is required")
	}
	if u.Username == "" {
		return errors.New("user: username is required")
	}
	if u.PasswordHash == "" {
		return errors.New("user: password hash is required")
	}
	return nil
}
