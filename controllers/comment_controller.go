package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

type CommentService interface {
	Create(ctx context.Context, postSlug, authorID string, in services.CreateCommentInput) (*services.CommentView, error)
	Update(ctx context.Context, commentID, authorID, content string) (*services.CommentView, error)
	Remove(ctx context.Context, commentID, authorID string) error
	LikeComment(ctx context.Context, commentID, userID string, value int) (*services.CommentView, error)
	FindByPost(ctx context.Context, postSlug string, page, limit int, callerID string) (*services.CommentPage, error)
}

// CommentController exposes the threaded comments of a post.
type CommentController struct {
	svc CommentService
}

func NewCommentController(svc CommentService) *CommentController {
	return &CommentController{svc: svc}
}

// ListComments returns one page of root comments with their replies.
func (c *CommentController) ListComments(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	callerID, _ := getUserID(ctx)

	result, err := c.svc.FindByPost(ctx.Request.Context(), ctx.Param("slug"), page, limit, callerID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Content  string  `json:"content" binding:"required"`
		ParentID *string `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	if req.ParentID != nil && *req.ParentID != "" {
		if _, err := uuid.Parse(*req.ParentID); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "parent_id must be a UUID")
			return
		}
	}

	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	comment, err := c.svc.Create(ctx.Request.Context(), ctx.Param("slug"), userID, services.CreateCommentInput{
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, comment)
}

func (c *CommentController) UpdateComment(ctx *gin.Context) {
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx)
		return
	}
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}

	comment, err := c.svc.Update(ctx.Request.Context(), ctx.Param("id"), userID, req.Content)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}

func (c *CommentController) DeleteComment(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	if err := c.svc.Remove(ctx.Request.Context(), ctx.Param("id"), userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// LikeComment toggles the caller's vote: 1 likes, -1 dislikes, repeating a
// value removes the vote.
func (c *CommentController) LikeComment(ctx *gin.Context) {
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

	comment, err := c.svc.LikeComment(ctx.Request.Context(), ctx.Param("id"), userID, req.Value)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, comment)
}
