// Package cli implements the vibesub command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yangguang01/vibesub/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vibesub",
	Short: "Translated subtitles for online videos",
	Long: `vibesub submits videos to the translation service, tracks the
resulting tasks until their subtitles are ready and serves them to the
browser extension that overlays them on the player.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $VIBESUB_HOME/config.toml)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
