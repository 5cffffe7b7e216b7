package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bavix/dobson/internal/config"
	"github.com/bavix/dobson/internal/logging"
	verpkg "github.com/bavix/dobson/internal/version"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile   string
	logLevel  string
	logFormat string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "dobson",
		Short:         "Slack bot that tells who is around by reading the router's ARP table over SNMP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			base := logging.Base("dobson", opts.logLevel, opts.logFormat)
			ctx := base.WithContext(cmd.Context())
			cmd.SetContext(ctx)

			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "",
		"Path to config file (default: "+config.DefaultPath+")")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "json", "Log format: json, console")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newWhoCmd(opts))
	rootCmd.AddCommand(newRegisterCmd(opts))
	rootCmd.AddCommand(newDevicesCmd(opts))
	rootCmd.AddCommand(newLogMACsCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))

	rootCmd.Version = verpkg.GetVersion()
	rootCmd.SetVersionTemplate("dobson " + verpkg.String() + "\n")

	return rootCmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
