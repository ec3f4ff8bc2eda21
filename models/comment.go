package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment is a reply to a post, optionally nested under another comment of the
// same post. Depth is 0 for roots and parent depth + 1 otherwise.
type Comment struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	PostID        string         `gorm:"size:36;index:idx_comments_post_created,priority:1;not null" json:"post_id"`
	AuthorID      string         `gorm:"size:36;index;not null" json:"author_id"`
	ParentID      *string        `gorm:"size:36;index" json:"parent_id"`
	Depth         int            `gorm:"not null;default:0" json:"depth"`
	LikesCount    int            `gorm:"not null;default:0" json:"likes_count"`
	DislikesCount int            `gorm:"not null;default:0" json:"dislikes_count"`
	CreatedAt     time.Time      `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at"`
	Author        User           `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IsRoot reports whether the comment hangs directly off its post.
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}
