package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
)

type CommentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	CreateWithCounter(ctx context.Context, comment *models.Comment) error
	UpdateContent(ctx context.Context, id, content string) error
	SoftDelete(ctx context.Context, comment *models.Comment) error
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// FindByID loads a live comment with its author's identity.
func (r *commentRepository) FindByID(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author", authorColumns).
		Where("id = ?", id).
		First(&comment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

// ListByPost returns every live comment of a post in creation order.
func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author", authorColumns).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// CreateWithCounter inserts the comment and bumps the post's comments_count
// in one transaction. A post deleted in the meantime rolls the insert back.
func (r *commentRepository) CreateWithCounter(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Author").Create(comment).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *commentRepository) UpdateContent(ctx context.Context, id, content string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at and decrements the post's comments_count in
// one transaction. Only the writer that flips deleted_at decrements.
func (r *commentRepository) SoftDelete(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", comment.ID).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Model(&models.Post{}).
			Where("id = ?", comment.PostID).
			UpdateColumn("comments_count", gorm.Expr("comments_count - ?", 1)).Error
	})
}
