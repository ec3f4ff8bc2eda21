package cmd

import (
	"github.com/spf13/cobra"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/models"
	"github.com/cppla/threadbbs/utils"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := utils.InitLogger(cfg); err != nil {
			return err
		}
		db, err := config.InitDatabase(cfg)
		if err != nil {
			return err
		}
		if err := config.Migrate(db, models.All()...); err != nil {
			return err
		}
		utils.Sugar.Infof("migrated %d models on %s", len(models.All()), cfg.DBDriver)
		return nil
	},
}
