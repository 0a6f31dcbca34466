package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/sumire/issuedesk/internal/config"
	"github.com/sumire/issuedesk/internal/repository"
	"github.com/sumire/issuedesk/internal/service"
)

var adminName string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(_ config.Config, _ *sqlx.DB) error {
			slog.Info("migrations applied")
			return nil
		})
	},
}

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin <email>",
	Short: "Create an admin user, or promote the user with that email",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(_ config.Config, db *sqlx.DB) error {
			user, created, err := repository.NewUserRepository(db).EnsureAdmin(cmd.Context(), args[0], adminName)
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			if created {
				slog.Info("admin created", "user_id", user.ID, "email", user.Email)
			} else {
				slog.Info("admin ensured", "user_id", user.ID, "email", user.Email)
			}
			return nil
		})
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Mint an access and refresh token for an existing user",
	Long: `token prints a token pair for the user with the given email as JSON.
Use it to script the API or to log in issuectl without a browser.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(cfg config.Config, db *sqlx.DB) error {
			ctx := cmd.Context()
			users := repository.NewUserRepository(db)

			user, err := users.FindByEmail(ctx, args[0])
			if err != nil {
				return fmt.Errorf("find user %s: %w", args[0], err)
			}

			sessions, err := openSessions(ctx, cfg)
			if err != nil {
				return err
			}
			defer sessions.Close()

			pair, err := service.NewAuthService(users, sessions, authConfig(cfg)).IssueTokens(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("issue tokens: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(pair)
		})
	},
}

func init() {
	seedAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name for a newly created admin")
}

// withDB loads config, opens and migrates the database, then runs fn.
func withDB(ctx context.Context, fn func(config.Config, *sqlx.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := repository.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}
	return fn(cfg, db)
}
