package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/reply"
)

func newWhoCmd(opts *rootOptions) *cobra.Command {
	var (
		listUnknown bool
		asJSON      bool
		template    string
	)

	cmd := &cobra.Command{
		Use:   "who",
		Short: "Scan the router once and print who is around",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			var choose reply.Chooser
			if template != "" {
				choose = reply.Fixed(template)
			}

			a, err := newApp(cfg, choose)
			if err != nil {
				return err
			}

			res, err := a.presence.Query(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")

				return enc.Encode(res)
			}

			_, err = fmt.Fprintln(out, a.formatter.Format(res.Users(), res.Unknown, listUnknown))

			return err
		},
	}

	cmd.Flags().BoolVar(&listUnknown, "list-unknown", false, "List unknown MAC addresses instead of counting them")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw scan result as JSON")
	cmd.Flags().StringVar(&template, "template", "", "Reply phrasing: classic, headcount (default: random)")

	return cmd
}
