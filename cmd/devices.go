package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/registry"
)

func newDevicesCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the known devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			reg, err := registry.Open(cfg.Registry.Path)
			if err != nil {
				return err
			}

			entries := reg.All()
			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")

				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd
			_, _ = fmt.Fprintln(tw, "MAC\tUSER\tMODEL\tPRESENCE")

			for _, e := range entries {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					e.MAC, e.Device.User, e.Device.Model, strconv.FormatBool(e.Device.Presence))
			}

			if err := tw.Flush(); err != nil {
				return err
			}

			_, err = fmt.Fprintf(out, "%s devices\n", humanize.Comma(int64(len(entries))))

			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print devices as JSON")

	return cmd
}
