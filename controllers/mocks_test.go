package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"

	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockCommentService struct{ mock.Mock }

func (m *mockCommentService) Create(ctx context.Context, postSlug, authorID string, in services.CreateCommentInput) (*services.CommentView, error) {
	args := m.Called(ctx, postSlug, authorID, in)
	v, _ := args.Get(0).(*services.CommentView)
	return v, args.Error(1)
}

func (m *mockCommentService) Update(ctx context.Context, commentID, authorID, content string) (*services.CommentView, error) {
	args := m.Called(ctx, commentID, authorID, content)
	v, _ := args.Get(0).(*services.CommentView)
	return v, args.Error(1)
}

func (m *mockCommentService) Remove(ctx context.Context, commentID, authorID string) error {
	return m.Called(ctx, commentID, authorID).Error(0)
}

func (m *mockCommentService) LikeComment(ctx context.Context, commentID, userID string, value int) (*services.CommentView, error) {
	args := m.Called(ctx, commentID, userID, value)
	v, _ := args.Get(0).(*services.CommentView)
	return v, args.Error(1)
}

func (m *mockCommentService) FindByPost(ctx context.Context, postSlug string, page, limit int, callerID string) (*services.CommentPage, error) {
	args := m.Called(ctx, postSlug, page, limit, callerID)
	v, _ := args.Get(0).(*services.CommentPage)
	return v, args.Error(1)
}

type mockPostService struct{ mock.Mock }

func (m *mockPostService) Create(ctx context.Context, authorID string, in services.CreatePostInput) (*services.PostView, error) {
	args := m.Called(ctx, authorID, in)
	v, _ := args.Get(0).(*services.PostView)
	return v, args.Error(1)
}

func (m *mockPostService) Get(ctx context.Context, postSlug, callerID string) (*services.PostView, error) {
	args := m.Called(ctx, postSlug, callerID)
	v, _ := args.Get(0).(*services.PostView)
	return v, args.Error(1)
}

func (m *mockPostService) List(ctx context.Context, filter services.PostFilter, page, limit int) (*services.PostPage, error) {
	args := m.Called(ctx, filter, page, limit)
	v, _ := args.Get(0).(*services.PostPage)
	return v, args.Error(1)
}

func (m *mockPostService) Update(ctx context.Context, postSlug, authorID string, in services.UpdatePostInput) (*services.PostView, error) {
	args := m.Called(ctx, postSlug, authorID, in)
	v, _ := args.Get(0).(*services.PostView)
	return v, args.Error(1)
}

func (m *mockPostService) Remove(ctx context.Context, postSlug, authorID string) error {
	return m.Called(ctx, postSlug, authorID).Error(0)
}

func (m *mockPostService) LikePost(ctx context.Context, postSlug, userID string, value int) (*services.PostView, error) {
	args := m.Called(ctx, postSlug, userID, value)
	v, _ := args.Get(0).(*services.PostView)
	return v, args.Error(1)
}

type mockNotificationService struct{ mock.Mock }

func (m *mockNotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	v, _ := args.Get(0).([]models.Notification)
	return v, args.Error(1)
}

func (m *mockNotificationService) MarkAsRead(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *mockNotificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockNotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// asUser stands in for the JWT middleware: the X-User header becomes the caller.
func asUser(ctx *gin.Context) {
	if id := ctx.GetHeader("X-User"); id != "" {
		ctx.Set(middleware.ContextUserIDKey, id)
	}
	ctx.Next()
}

func newTestRouter(posts PostService, comments CommentService, notifications NotificationService) *gin.Engine {
	r := gin.New()
	r.Use(asUser)

	pc := NewPostController(posts)
	cc := NewCommentController(comments)
	nc := NewNotificationController(notifications)

	r.GET("/posts", pc.ListPosts)
	r.POST("/posts", pc.CreatePost)
	r.GET("/posts/:slug", pc.GetPost)
	r.PATCH("/posts/:slug", pc.UpdatePost)
	r.DELETE("/posts/:slug", pc.DeletePost)
	r.POST("/posts/:slug/like", pc.LikePost)
	r.GET("/posts/:slug/comments", cc.ListComments)
	r.POST("/posts/:slug/comments", cc.CreateComment)
	r.PATCH("/comments/:id", cc.UpdateComment)
	r.DELETE("/comments/:id", cc.DeleteComment)
	r.POST("/comments/:id/like", cc.LikeComment)
	r.GET("/notifications", nc.ListNotifications)
	r.GET("/notifications/unread-count", nc.UnreadCount)
	r.PATCH("/notifications/read-all", nc.MarkAllAsRead)
	r.PATCH("/notifications/:id/read", nc.MarkAsRead)
	return r
}

func do(t *testing.T, r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set("X-User", user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
