package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sumire/issuedesk/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "issuedesk",
	Short: "Issue tracking server with a live Kanban board",
	Long: `issuedesk serves the issue tracker HTTP API and its real-time event stream.
Configuration comes from the environment and an optional config file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedAdminCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return config.Config{}, err
	}
	slog.SetDefault(cfg.NewLogger(os.Stderr))
	return cfg, nil
}
