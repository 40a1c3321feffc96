// Package main provides the pantry binary: an inventory server plus one-shot
// commands for snapshots, constraints and price checks.
package main

import (
	"fmt"
	"os"

	"github.com/fairyhunter13/pantry-inventory-service/internal/config"
	"github.com/fairyhunter13/pantry-inventory-service/internal/obs"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0"
	BuildTime = "dev"
)

const appName = "pantry"

type globalFlags struct {
	configPath string
	envFiles   []string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Pantry inventory reconciler",
		Long:          "Counts pantry stock from a camera, compares it with minimum-stock constraints\nand prices the shortfall.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringSliceVar(&g.envFiles, "env-file", []string{".env"}, "Dotenv files loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(
		serveCmd(g),
		snapshotCmd(g),
		constraintsCmd(g),
		pricesCmd(g),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)
	return cmd
}

// load resolves configuration and configures the logger.
func (g *globalFlags) load() (config.Config, error) {
	if err := config.LoadDotenv(g.envFiles...); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.LoadFile(g.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	obs.InitLogger(cfg.LogLevel)
	return cfg, nil
}
