// Package cli implements the leadbot-tools operator commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"leadbot/internal/app"
	"leadbot/internal/common/config"
	"leadbot/internal/common/logger"
)

var (
	configPath string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "leadbot-tools",
	Short: "Operator tools for the leadbot dialogue engine",
	Long:  "Chat with the engine from a terminal, rebuild the semantic index, retry queued leads and check token-table files.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs/config.yaml plus APP_ENVIRONMENT overlay)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openApp connects to every backing service named in the config.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.NewZapAdapter(logger.New(logLevel, "console"))
	return app.New(ctx, cfg, log)
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
