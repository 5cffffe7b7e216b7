package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/config"
	"github.com/bavix/dobson/internal/logging"
	"github.com/bavix/dobson/internal/presence"
	"github.com/bavix/dobson/internal/probe"
	"github.com/bavix/dobson/internal/registry"
	"github.com/bavix/dobson/internal/reply"
)

// app is everything a command needs, built once from the config.
type app struct {
	cfg        *config.Config
	registry   *registry.Registry
	enumerator probe.Enumerator
	presence   *presence.Service
	formatter  *reply.Formatter
}

// loadConfig reads the config file and, unless the log flags were given
// explicitly, rebuilds the context logger from its log section.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (context.Context, *config.Config, error) {
	path := opts.cfgFile
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cmd.Context(), nil, err
	}

	level, format := opts.logLevel, opts.logFormat
	if !cmd.Flags().Changed("log-level") {
		level = cfg.Log.Level
	}

	if !cmd.Flags().Changed("log-format") {
		format = cfg.Log.Format
	}

	logger := logging.Base(cfg.AppName, level, format)
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	zerolog.Ctx(ctx).Debug().Str("config", path).Msg("config loaded")

	return ctx, cfg, nil
}

// newApp opens the registry and builds the scanning pipeline. choose may be
// nil for a random phrasing per reply.
func newApp(cfg *config.Config, choose reply.Chooser) (*app, error) {
	reg, err := registry.Open(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	enum, err := probe.New(cfg.SNMP)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		registry:   reg,
		enumerator: enum,
		presence:   presence.NewService(enum, reg),
		formatter:  reply.NewFormatter(cfg.Location, reply.DefaultTemplates(), choose),
	}, nil
}
