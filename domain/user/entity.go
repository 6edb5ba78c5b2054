package user

import (
	"time"
)

// User represents a registered account. Usernames are stored
// lower-cased so lookups are case-insensitive.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	Name         string    `gorm:"size:200" json:"name"`
	Bio          string    `gorm:"size:500" json:"bio"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// DisplayName returns the full name when set, the username otherwise.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
