// Package cmd - marketdata CLI commands
package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/MichalDSW/investment-platform/internal/pkg/config"
	"github.com/MichalDSW/investment-platform/internal/pkg/logger"
)

const serviceName = "marketdata-api"

// Version is set at build time with -ldflags "-X .../cmd.Version=..."
var Version = "dev"

type options struct {
	cfgFile string
	verbose bool
	cfg     *config.Config
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "marketdata",
		Short: "Market data API - stock quote lookups over HTTP",
		Long: `Market data API - stock quote lookups over HTTP

Commands:
    serve      - HTTP API server (default port 8080); also runs when no command is given
    migrate    - create the quotes schema (postgres/sqlite), optionally seed it
    quote      - look up quotes from the configured source and print them`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.init()
		},
		RunE: serveRunE(opts),
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file (default: $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newQuoteCmd(opts))

	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// init loads configuration and initializes the global logger
func (o *options) init() error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return err
	}
	if o.verbose {
		cfg.Logging.Level = "debug"
	}

	if err := logger.Init(logger.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FileEnabled:    cfg.Logging.FileEnabled,
		FilePath:       cfg.Logging.FilePath,
		RotationSize:   cfg.Logging.RotationSize,
		RetentionDays:  cfg.Logging.RetentionDays,
		ServiceName:    serviceName,
		ServiceVersion: Version,
	}); err != nil {
		return err
	}

	log.Debug().Str("source", cfg.Source.Driver).Bool("cache", cfg.Cache.Enabled).Msg("Configuration loaded")
	o.cfg = cfg
	return nil
}
