package entity

import (
	"time"
)

// User is the profile document of a traveller.
// ID is the identity account id; the profile is keyed by it.
//
// Interests keep insertion order and may repeat.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio"`
	Interests []string  `json:"interests"`
	JoinedAt  time.Time `json:"joinedAt"`
	Location  string    `json:"location,omitempty"`
}

// Clone returns a copy that does not share the Interests backing array.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Interests = append([]string{}, u.Interests...)
	return &c
}

// Identity is an email/password account owned by the identity backend.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
