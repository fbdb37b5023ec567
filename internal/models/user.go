package models

import (
	"fmt"
	"time"
)

// User is an account in the reference service. The ID is the identity provider's UID.
type User struct {
	id        string
	sequence  int
	email     string
	name      string
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates a [User] with the given UID.
func NewUser(id, email, name string) *User {
	now := time.Now()
	return &User{id: id, email: email, name: name, createdAt: now, updatedAt: now}
}

func (u *User) ID() string           { return u.id }
func (u *User) Sequence() int        { return u.sequence }
func (u *User) Email() string        { return u.email }
func (u *User) Name() string         { return u.name }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

func (u *User) SetSequence(seq int)      { u.sequence = seq }
func (u *User) SetCreatedAt(t time.Time) { u.createdAt = t }
func (u *User) SetUpdatedAt(t time.Time) { u.updatedAt = t }

// Validate requires a UID.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	return nil
}

// SavedMovie is a [SavedItem] as stored for one user.
type SavedMovie struct {
	Item      SavedItem
	UserID    string
	Sequence  int
	createdAt time.Time
	updatedAt time.Time
}

// NewSavedMovie wraps item for userID with fresh timestamps.
func NewSavedMovie(userID string, item SavedItem) *SavedMovie {
	now := time.Now()
	return &SavedMovie{Item: item, UserID: userID, createdAt: now, updatedAt: now}
}

func (s *SavedMovie) ID() string           { return s.Item.ID }
func (s *SavedMovie) CreatedAt() time.Time { return s.createdAt }
func (s *SavedMovie) UpdatedAt() time.Time { return s.updatedAt }

func (s *SavedMovie) SetTimestamps(created, updated time.Time) {
	s.createdAt, s.updatedAt = created, updated
}

// Validate requires an owner, an id and a title.
func (s *SavedMovie) Validate() error {
	switch {
	case s.UserID == "":
		return fmt.Errorf("saved movie user id is required")
	case s.Item.ID == "":
		return fmt.Errorf("saved movie id is required")
	case s.Item.Title == "":
		return fmt.Errorf("saved movie title is required")
	}
	return nil
}
