package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/repository"
	"github.com/cppla/threadbbs/routes"
	"github.com/cppla/threadbbs/services"
	"github.com/cppla/threadbbs/utils"
)

var serveAutoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := utils.InitLogger(cfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = utils.Logger.Sync() }()

		db, err := config.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if serveAutoMigrate {
			if err := config.Migrate(db, models.All()...); err != nil {
				return err
			}
		}

		rc, err := utils.NewRedisClient(cfg)
		if err != nil {
			// comment throttling depends on redis, refuse to start without it
			_ = rc.Close()
			return fmt.Errorf("redis ping: %w", err)
		}
		defer rc.Close()

		r := routes.SetupRouter(newDeps(cfg, db, rc))

		utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
		return utils.GraceServer(":"+cfg.AppPort, r)
	},
}

// newDeps builds the repositories and services behind the router.
func newDeps(cfg config.AppConfig, db *gorm.DB, rc *redis.Client) routes.Deps {
	settings := services.SettingsFromConfig(cfg)
	kv := utils.NewRedisCache(rc)
	log := utils.Logger

	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifications := services.NewNotificationService(notificationRepo, log.Named("notifications"))
	return routes.Deps{
		Config:        cfg,
		Posts:         services.NewPostService(postRepo, voteRepo, kv, settings, log.Named("posts")),
		Comments:      services.NewCommentService(postRepo, commentRepo, voteRepo, kv, notifications, settings, log.Named("comments")),
		Notifications: notifications,
	}
}

func init() {
	serveCmd.Flags().BoolVar(&serveAutoMigrate, "migrate", false, "run schema migrations before serving")
}
