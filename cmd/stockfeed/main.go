package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"StockFeed/internal/config"
	"StockFeed/internal/logger"
)

// Set by -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	cfg        *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "stockfeed",
		Short:         "Incremental stock price ingestion and indicator overlays",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return ro.load()
		},
	}

	defaultPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.PersistentFlags().StringVarP(&ro.configPath, "config", "c", defaultPath, "path to config YAML")

	cmd.AddCommand(
		newUpdateCmd(ro),
		newServeCmd(ro),
		newShowCmd(ro),
		newSymbolsCmd(ro),
		newVersionCmd(),
	)
	return cmd
}

func (ro *rootOptions) load() error {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger.Init("stockfeed", level, cfg.Log.Format, os.Stderr)
	ro.cfg = cfg
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "stockfeed", version)
		},
	}
}
