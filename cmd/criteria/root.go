package main

import (
	"log/slog"

	"github.com/goliatone/go-criteria-cache/internal/cli"
	"github.com/spf13/cobra"
)

var (
	cfg        *cli.Config
	configPath string
	logger     *slog.Logger

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "criteria",
	Short: "Criteria-driven SQL with a namespaced query cache",
	Long: `criteria - criteria-driven SQL with a namespaced query cache

Request objects are mapped to predicates by field name suffix, rendered into
a paged query plus an independent count query, and served through a cache
that is invalidated per entity namespace after every write.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		logger = cli.NewLogger(cfg.Log, cmd.ErrOrStderr())
		if configPath != "" {
			logger.Debug("configuration loaded", "path", configPath)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover criteria.yaml)")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}
