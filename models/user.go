package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the account row referenced by posts, comments and votes. Accounts are
// managed elsewhere; this service only reads identity columns.
type User struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Username  string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"size:255" json:"email,omitempty"`
	AvatarURL string         `gorm:"size:512" json:"avatar_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Author is the minimal identity joined onto comments and posts.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// AuthorOf projects a user row onto its public identity.
func AuthorOf(u User) Author {
	return Author{ID: u.ID, Username: u.Username}
}
