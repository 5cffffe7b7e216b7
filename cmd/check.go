package cmd

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/config"
	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/probe"
	"github.com/bavix/dobson/internal/registry"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check configuration, the known devices file and router access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			log := zerolog.Ctx(ctx)

			log.Info().Str("config", cfg.Path).Msg("checking system status")

			if err := cfg.ValidateSlack(); err != nil {
				log.Warn().Err(err).Msg("slack settings incomplete, run will refuse to start")
			}

			reg, err := registry.Open(cfg.Registry.Path)
			if err != nil {
				log.Err(err).Msg("known devices file check failed")

				return err
			}

			log.Info().Str("file", reg.Path()).Int("devices", reg.Len()).Msg("known devices file ok")

			if err := checkSystemTools(ctx, cfg.SNMP); err != nil {
				log.Err(err).Msg("system tools check failed")

				return err
			}

			if skipProbe {
				log.Info().Msg("system check completed, router probe skipped")

				return nil
			}

			if err := checkRouter(ctx, cfg.SNMP); err != nil {
				log.Err(err).Msg("router check failed")

				return err
			}

			log.Info().Msg("system check completed successfully")

			return nil
		},
	}

	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Do not contact the router")

	return cmd
}

func checkSystemTools(ctx context.Context, cfg config.SNMPConfig) error {
	log := zerolog.Ctx(ctx)

	if cfg.Driver != config.DriverSNMPWalk {
		log.Debug().Str("driver", cfg.Driver).Msg("no external tools needed")

		return nil
	}

	path, err := exec.LookPath(cfg.SNMPWalkPath)
	if err != nil {
		log.Err(err).Str("tool", cfg.SNMPWalkPath).Msg("required tool not found")

		return customerrors.ErrRequiredToolNotFoundWithTool(cfg.SNMPWalkPath)
	}

	log.Debug().Str("tool", path).Msg("tool found")

	return nil
}

func checkRouter(ctx context.Context, cfg config.SNMPConfig) error {
	enum, err := probe.New(cfg)
	if err != nil {
		return err
	}

	macs, err := enum.Enumerate(ctx)
	if err != nil {
		return err
	}

	zerolog.Ctx(ctx).Info().
		Str("target", cfg.Target).
		Str("oid", cfg.OID).
		Int("macs", len(macs)).
		Msg("router answered")

	return nil
}
