package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationType tags the event that produced a notification.
type NotificationType string

const (
	NotificationTypeReply  NotificationType = "REPLY"
	NotificationTypeSystem NotificationType = "SYSTEM"
)

// Notification is addressed to a single recipient.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"size:36;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Type      NotificationType `gorm:"size:20;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	CommentID *string          `gorm:"size:36;index" json:"comment_id"`
	Read      bool             `gorm:"column:is_read;not null;default:false;index:idx_notifications_user_read,priority:2" json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// All lists every model managed by the migrate command.
func All() []interface{} {
	return []interface{}{
		&User{}, &Post{}, &Comment{}, &PostLike{}, &CommentLike{}, &Notification{},
	}
}
