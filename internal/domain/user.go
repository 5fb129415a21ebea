package domain

import "time"

// User is a registered identity. PasswordHash is empty when the record was
// loaded as a profile.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	ProfileImage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile returns a copy of the user without credential material.
func (u User) Profile() User {
	u.PasswordHash = ""
	return u
}
