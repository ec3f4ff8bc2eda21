package models

import "time"

// Vote values. Any other value is rejected before reaching the store.
const (
	VoteLike    = 1
	VoteDislike = -1
)

// PostLike records one user's vote on a post.
type PostLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_likes_user_post,priority:1" json:"user_id"`
	PostID    string    `gorm:"size:36;not null;uniqueIndex:idx_post_likes_user_post,priority:2;index" json:"post_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentLike records one user's vote on a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_comment_likes_user_comment,priority:1" json:"user_id"`
	CommentID string    `gorm:"size:36;not null;uniqueIndex:idx_comment_likes_user_comment,priority:2;index" json:"comment_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
