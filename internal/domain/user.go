package domain

import (
	"errors"
	"fmt"
	"strings"

	"tablekit/internal/schema"
)

// UserID is the key of a stored user
type UserID = schema.PK[User]

// User is a person known to the system
type User struct {
	ID          schema.PK[User] `json:"id"`
	First       string          `json:"first"`
	Last        string          `json:"last"`
	Age         int             `json:"age"`
	Preferences Preferences     `json:"preferences"`
}

// Preferences is free-form per-user configuration
type Preferences struct {
	Theme  string   `json:"theme,omitempty" yaml:"theme,omitempty"`
	Muted  []string `json:"muted,omitempty" yaml:"muted,omitempty"`
	Digest bool     `json:"digest" yaml:"digest"`
}

// NewUser creates an unsaved user
func NewUser(first, last string, age int) User {
	return User{
		First: strings.TrimSpace(first),
		Last:  strings.TrimSpace(last),
		Age:   age,
	}
}

// FullName returns "First Last"
func (u User) FullName() string {
	return strings.TrimSpace(u.First + " " + u.Last)
}

// Validate checks the fields a stored user must have
func (u User) Validate() error {
	if u.First == "" {
		return errors.New("first name is required")
	}
	if u.Age < 0 || u.Age > 150 {
		return fmt.Errorf("age %d out of range", u.Age)
	}
	return nil
}

func (u User) String() string {
	return fmt.Sprintf("#%s %s (%d)", u.ID, u.FullName(), u.Age)
}
