package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cppla/threadbbs/config"
	"github.com/cppla/threadbbs/utils"
)

var (
	tokenUserID   string
	tokenUsername string
	tokenTTL      time.Duration
)

// tokenCmd issues development tokens; production tokens come from the
// account service sharing JWT_SECRET.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed JWT for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUsername == "" {
			return errors.New("--username is required")
		}
		userID := tokenUserID
		if userID == "" {
			userID = uuid.NewString()
		} else if _, err := uuid.Parse(userID); err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}

		cfg := config.Get()
		token, err := utils.GenerateToken(cfg.JWTSecret, userID, tokenUsername, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id (random UUID when empty)")
	tokenCmd.Flags().StringVar(&tokenUsername, "username", "", "username embedded in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
