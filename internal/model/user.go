// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// PasswordHash holds a bcrypt hash, never the plaintext password. It is empty
// for accounts created through GitHub sign-in, which cannot log in with a
// password. The json:"-" tag keeps it out of every API response.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"githubId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
