package models

import (
	"fmt"
	"net/mail"
	"time"
)

var _ Model = (*User)(nil)

// User is the cached profile of the signed-in account.
type User struct {
	id        string
	name      string
	email     string
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates a [User] with the server-assigned id.
func NewUser(id, name, email string) *User {
	now := time.Now()
	return &User{id: id, name: name, email: email, createdAt: now, updatedAt: now}
}

func (u *User) ID() string           { return u.id }
func (u *User) Name() string         { return u.name }
func (u *User) Email() string        { return u.email }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }

// Validate checks the id is present and the email is well formed.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	if _, err := mail.ParseAddress(u.email); err != nil {
		return fmt.Errorf("invalid email %q: %w", u.email, err)
	}
	return nil
}

// UserDTO is the wire representation of a user returned by the auth endpoints.
type UserDTO struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Model converts the DTO into a [User].
func (d UserDTO) Model() *User {
	return NewUser(d.ID, d.Name, d.Email)
}
