package model

import "time"

// Role is the access level carried in a user's token.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleTraveler Role = "TRAVELER"
)

// User is a registered account.  The booking core only ever sees the
// username; the rest belongs to the user registry.
//
// Fields:
//  Username     – unique login name, also the reservation owner id.
//  PasswordHash – bcrypt hash of the credential.
//  Role         – ADMIN or TRAVELER.
//  CreatedAt    – registration timestamp.
type User struct {
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// IsAdmin reports whether u may use administrative operations.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
