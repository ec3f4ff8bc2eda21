package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
)

const notificationListLimit = 50

// NotificationInput is the payload handed to the notification sink.
type NotificationInput struct {
	RecipientID string
	Type        models.NotificationType
	Title       string
	Message     string
	CommentID   *string
}

// Notifier receives side-effect notifications. Callers treat failures as
// best effort.
type Notifier interface {
	Notify(ctx context.Context, in NotificationInput) error
}

type NotificationService struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{repo: repo, log: log}
}

func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) error {
	n := &models.Notification{
		UserID:    in.RecipientID,
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		CommentID: in.CommentID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return storeError("create notification", err, "")
	}
	return nil
}

// List returns the newest notifications of a user.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	items, err := s.repo.ListByUser(ctx, userID, unreadOnly, notificationListLimit)
	if err != nil {
		return nil, storeError("list notifications", err, "")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	return storeError("mark notification", s.repo.MarkAsRead(ctx, userID, id), "notification not found")
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, storeError("mark notifications", err, "")
	}
	return n, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeError("count notifications", err, "")
	}
	return n, nil
}
