package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

type PostService interface {
	Create(ctx context.Context, authorID string, in services.CreatePostInput) (*services.PostView, error)
	Get(ctx context.Context, postSlug, callerID string) (*services.PostView, error)
	List(ctx context.Context, filter services.PostFilter, page, limit int) (*services.PostPage, error)
	Update(ctx context.Context, postSlug, authorID string, in services.UpdatePostInput) (*services.PostView, error)
	Remove(ctx context.Context, postSlug, authorID string) error
	LikePost(ctx context.Context, postSlug, userID string, value int) (*services.PostView, error)
}

// PostController manages posts as the roots of comment threads.
type PostController struct {
	svc PostService
}

// NewPostController creates a new PostController instance.
func NewPostController(svc PostService) *PostController {
	return &PostController{svc: svc}
}

// CreatePost allows authenticated users to create new posts.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Title     string   `json:"title" binding:"required,min=1,max=255"`
		Content   string   `json:"content" binding:"required"`
		Tags      []string `json:"tags"`
		Published bool     `json:"published"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	post, err := p.svc.Create(ctx.Request.Context(), userID, services.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Published: req.Published,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// ListPosts returns paginated posts, newest first. Only published posts are
// listed unless ?published=false or ?published=all is given.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	filter := services.PostFilter{
		Search: ctx.Query("search"),
		Tag:    ctx.Query("tag"),
	}
	switch ctx.DefaultQuery("published", "true") {
	case "all":
	case "false":
		drafts := false
		filter.Published = &drafts
	default:
		published := true
		filter.Published = &published
	}

	result, err := p.svc.List(ctx.Request.Context(), filter, page, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// GetPost returns a single post; signed-in callers also get their vote.
func (p *PostController) GetPost(ctx *gin.Context) {
	callerID, _ := getUserID(ctx)
	post, err := p.svc.Get(ctx.Request.Context(), ctx.Param("slug"), callerID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

func (p *PostController) LikePost(ctx *gin.Context) {
	var req struct {
		Value int `json:"value" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	post, err := p.svc.LikePost(ctx.Request.Context(), ctx.Param("slug"), userID, req.Value)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Title     *string  `json:"title" binding:"omitempty,min=1,max=255"`
		Content   *string  `json:"content"`
		Tags      []string `json:"tags"`
		Published *bool    `json:"published"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	post, err := p.svc.Update(ctx.Request.Context(), ctx.Param("slug"), userID, services.UpdatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		Published: req.Published,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// DeletePost soft-deletes the caller's post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	if err := p.svc.Remove(ctx.Request.Context(), ctx.Param("slug"), userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
