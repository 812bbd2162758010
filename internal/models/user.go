package models

import "time"

// Role values stored on a user record. Anything unrecognized is treated as
// RoleUser when the security context is resolved.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents a registered account. PasswordHash is a bcrypt hash and is
// never serialized to JSON.
type User struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	Role         string    `bson:"role" json:"role"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
