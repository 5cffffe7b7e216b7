package cmd

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bavix/dobson/internal/adminhttp"
	"github.com/bavix/dobson/internal/bot"
	"github.com/bavix/dobson/internal/chat"
	"github.com/bavix/dobson/internal/dispatch"
	"github.com/bavix/dobson/internal/metrics"
	"github.com/bavix/dobson/internal/registry"
	"github.com/bavix/dobson/internal/version"
)

func newRunCmd(opts *rootOptions) *cobra.Command { //nolint:funlen
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to Slack and answer presence questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			log := zerolog.Ctx(ctx)

			log.Info().
				Str("version", version.GetVersion()).
				Str("build_time", version.GetBuildTime()).
				Msg("dobson starting")

			if err := cfg.ValidateSlack(); err != nil {
				return err
			}

			metrics.RegisterCollectors()
			metrics.SetService(cfg.AppName)

			a, err := newApp(cfg, nil)
			if err != nil {
				return err
			}

			log.Info().
				Str("registry", a.registry.Path()).
				Int("devices", a.registry.Len()).
				Str("driver", cfg.SNMP.Driver).
				Str("target", cfg.SNMP.Target).
				Msg("registry loaded")

			transport := chat.NewSlack(chat.SlackOptions{
				Token:             cfg.Slack.APIToken,
				ReceiveTimeout:    cfg.Slack.ReceiveTimeout,
				ReconnectDelay:    cfg.Slack.ReconnectDelay,
				MaxReconnectDelay: cfg.Slack.MaxReconnectDelay,
			})

			// The own user id is needed for mentions before the loop starts.
			if err := transport.Connect(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}

				return err
			}

			botUserID := cfg.Slack.BotUserID
			if botUserID == "" {
				botUserID = transport.UserID()
			}

			dispatcher := dispatch.New(dispatch.Options{
				BotName:           cfg.BotName,
				BotUserID:         botUserID,
				AllowedChannelIDs: cfg.Slack.AllowedChannelIDs,
			}, a.presence, a.formatter)

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				return bot.New(transport, dispatcher, cfg.Slack.PollInterval).Run(gctx)
			})

			if cfg.Registry.WatchEnabled() {
				w, err := registry.NewWatcher(a.registry)
				if err != nil {
					_ = transport.Close()

					return err
				}

				g.Go(func() error { return w.Run(gctx) })
			}

			if cfg.HTTP.Enabled {
				srv := adminhttp.NewServer(cfg.HTTP, adminhttp.Deps{
					Presence:  a.presence,
					Devices:   a.registry,
					Formatter: a.formatter,
					Location:  cfg.Location,
				})

				g.Go(func() error { return srv.Start(gctx) })
			}

			err = g.Wait()

			log.Info().Msg("dobson stopped")

			return err
		},
	}

	return cmd
}
