package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/controllers"
	"github.com/cppla/threadbbs/middleware"
	"github.com/cppla/threadbbs/utils"
)

// Deps are the services the HTTP layer is wired to.
type Deps struct {
	Config        config.AppConfig
	Posts         controllers.PostService
	Comments      controllers.CommentService
	Notifications controllers.NotificationService
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	postController := controllers.NewPostController(d.Posts)
	commentController := controllers.NewCommentController(d.Comments)
	notificationController := controllers.NewNotificationController(d.Notifications)

	authRequired := middleware.AuthRequired(cfg.JWTSecret)
	optionalAuth := middleware.OptionalAuth(cfg.JWTSecret)
	ipLimiter := middleware.NewIPRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	// Public reads; a valid token adds the caller's votes
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:slug", optionalAuth, postController.GetPost)
	api.GET("/posts/:slug/comments", optionalAuth, commentController.ListComments)

	protected := api.Group("")
	protected.Use(authRequired, ipLimiter.Middleware())
	protected.POST("/posts", postController.CreatePost)
	protected.PATCH("/posts/:slug", postController.UpdatePost)
	protected.DELETE("/posts/:slug", postController.DeletePost)
	protected.POST("/posts/:slug/like", postController.LikePost)
	protected.POST("/posts/:slug/comments", commentController.CreateComment)
	protected.PATCH("/comments/:id", commentController.UpdateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)
	protected.POST("/comments/:id/like", commentController.LikeComment)

	notifications := api.Group("/notifications")
	notifications.Use(authRequired)
	notifications.GET("", notificationController.ListNotifications)
	notifications.GET("/unread-count", notificationController.UnreadCount)
	notifications.PATCH("/read-all", notificationController.MarkAllAsRead)
	notifications.PATCH("/:id/read", notificationController.MarkAsRead)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
