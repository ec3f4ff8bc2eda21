package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post is the root of a comment tree.
type Post struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	AuthorID      string         `gorm:"size:36;index;not null" json:"author_id"`
	Title         string         `gorm:"size:255;not null" json:"title"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Slug          string         `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Tags          string         `gorm:"size:512" json:"tags"` // comma separated
	Published     bool           `gorm:"default:false" json:"published"`
	LikesCount    int            `gorm:"not null;default:0" json:"likes_count"`
	DislikesCount int            `gorm:"not null;default:0" json:"dislikes_count"`
	CommentsCount int            `gorm:"not null;default:0" json:"comments_count"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
	Author        User           `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
