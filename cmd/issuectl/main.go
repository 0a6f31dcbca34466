package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sumire/issuedesk/internal/client"
	"github.com/sumire/issuedesk/internal/output"
)

var ui = output.New()

var rootCmd = &cobra.Command{
	Use:   "issuectl",
	Short: "Command-line client for the issue desk",
	Long: `issuectl files, moves and discusses issues on an issue desk server.
The board command shows the Kanban board and, with --watch, keeps it live.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/issuectl/config.yaml)")
	rootCmd.PersistentFlags().String("server", "", "Server base URL")
	rootCmd.PersistentFlags().String("token", "", "Access token")
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".config", "issuectl"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ISSUECTL")
	viper.AutomaticEnv()

	viper.SetDefault("server", "http://localhost:8080")
	viper.SetDefault("token", "")

	// The config file is optional.
	_ = viper.ReadInConfig()
}

// newClient builds an API client from the resolved server and token.
func newClient() (*client.Client, error) {
	token := viper.GetString("token")
	if token == "" {
		return nil, fmt.Errorf("no access token: set ISSUECTL_TOKEN or --token (the server's token command mints one)")
	}
	return client.New(viper.GetString("server"), token), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
