package controllers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

type NotificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, userID, id string) error
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type NotificationController struct {
	svc NotificationService
}

func NewNotificationController(svc NotificationService) *NotificationController {
	return &NotificationController{svc: svc}
}

func (n *NotificationController) ListNotifications(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	unreadOnly := ctx.Query("unread") == "true"
	items, err := n.svc.List(ctx.Request.Context(), userID, unreadOnly)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

func (n *NotificationController) UnreadCount(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	count, err := n.svc.UnreadCount(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"count": count})
}

func (n *NotificationController) MarkAsRead(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	if err := n.svc.MarkAsRead(ctx.Request.Context(), userID, ctx.Param("id")); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"read": true})
}

func (n *NotificationController) MarkAllAsRead(ctx *gin.Context) {
	userID, ok := requireUserID(ctx)
	if !ok {
		return
	}
	updated, err := n.svc.MarkAllAsRead(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"updated": updated})
}
