package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/threadbbs/models"
)

type PostRepository interface {
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	FindByID(ctx context.Context, id string) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, id string, changes map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error
	List(ctx context.Context, filter PostFilter, page, limit int) ([]models.Post, int64, error)
}

// PostFilter narrows List. Zero values match every post.
type PostFilter struct {
	Search    string
	Tag       string
	Published *bool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f PostFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Published != nil {
		db = db.Where("published = ?", *f.Published)
	}
	if f.Tag != "" {
		// tags are stored comma separated without spaces
		db = db.Where("CONCAT(',', tags, ',') LIKE ?", "%,"+likeEscaper.Replace(f.Tag)+",%")
	}
	if f.Search != "" {
		like := "%" + likeEscaper.Replace(f.Search) + "%"
		db = db.Where("(title LIKE ? OR content LIKE ?)", like, like)
	}
	return db
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// FindBySlug skips soft-deleted posts.
func (r *postRepository) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author", authorColumns).
		Where("slug = ?", slug).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("Author", authorColumns).
		Where("id = ?", id).
		First(&post).Error
	if err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return translate(r.db.WithContext(ctx).Omit("Author").Create(post).Error)
}

// Update applies column changes to a live post. A slug collision is reported
// as ErrDuplicate.
func (r *postRepository) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(changes)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at. Comments keep their rows but become
// unreachable through the post.
func (r *postRepository) SoftDelete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns one page of matching posts, newest first, with the total count.
func (r *postRepository) List(ctx context.Context, filter PostFilter, page, limit int) ([]models.Post, int64, error) {
	var posts []models.Post
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Post{}).Scopes(filter.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Scopes(filter.scope).
		Preload("Author", authorColumns).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}
