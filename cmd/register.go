package cmd

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	customerrors "github.com/bavix/dobson/internal/errors"
	"github.com/bavix/dobson/internal/registry"
)

const (
	registerMinArgs = 2
	registerMaxArgs = 3
)

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var untracked bool

	cmd := &cobra.Command{
		Use:   "register <mac> <user> [model]",
		Short: "Add a device to the known devices file",
		Args:  cobra.RangeArgs(registerMinArgs, registerMaxArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			mac, user := args[0], args[1]

			var model string
			if len(args) == registerMaxArgs {
				model = args[2]
			}

			if !registry.ValidMAC(mac) {
				return customerrors.ErrInvalidMACWithValue(mac)
			}

			reg, err := registry.Open(cfg.Registry.Path)
			if err != nil {
				return err
			}

			added, err := reg.Register(mac, registry.Device{Presence: !untracked, User: user, Model: model})
			if err != nil {
				return err
			}

			key := registry.NormalizeMAC(mac)

			if !added {
				zerolog.Ctx(ctx).Warn().Str("mac", key).Msg("device already registered")
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is already registered\n", key)

				return err
			}

			zerolog.Ctx(ctx).Info().Str("mac", key).Str("user", user).Msg("device registered")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "registered %s for %s\n", key, user)

			return err
		},
	}

	cmd.Flags().BoolVar(&untracked, "untracked", false,
		"Record the device without counting it towards presence (e.g. a printer)")

	return cmd
}
