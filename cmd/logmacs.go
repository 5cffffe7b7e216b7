package cmd

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/maclog"
	"github.com/bavix/dobson/internal/probe"
)

func newLogMACsCmd(opts *rootOptions) *cobra.Command {
	var every time.Duration

	cmd := &cobra.Command{
		Use:   "log-macs",
		Short: "Append the currently connected MAC addresses to the history file",
		Long: "Scans the router and appends one line \"<minute> <mac> <mac>...\" to mac_address_log_file.\n" +
			"Without --every it runs once, which suits cron.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			enum, err := probe.New(cfg.SNMP)
			if err != nil {
				return err
			}

			l := maclog.New(cfg.MacAddressLogFile, nil)

			if every <= 0 {
				return logOnce(ctx, enum, l)
			}

			ticker := time.NewTicker(every)
			defer ticker.Stop()

			for {
				if err := logOnce(ctx, enum, l); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("mac log failed")
				}

				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "Keep running and log at this interval (e.g. 1m)")

	return cmd
}

func logOnce(ctx context.Context, enum probe.Enumerator, l *maclog.Logger) error {
	macs, err := enum.Enumerate(ctx)
	if err != nil {
		return err
	}

	if err := l.Append(macs); err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().Int("macs", len(macs)).Str("file", l.Path()).Msg("macs logged")

	return nil
}
