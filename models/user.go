package models

// User mirrors the identity asserted by the auth token. Credentials live in
// the identity provider; we only keep the profile fields the admin console
// and progress queries need.
type User struct {
	ID    string `gorm:"primaryKey;type:uuid" json:"id"`
	Name  string `json:"name"`
	Email string `gorm:"uniqueIndex" json:"email"`
	Role  string `gorm:"type:varchar(16);default:'user'" json:"role"` // user | admin

	Timestamps
}
