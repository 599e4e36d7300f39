// Package cmd implements the gridgate command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/gridgate/config"
)

// app carries state shared by every subcommand.
type app struct {
	configFile string
	cfg        *config.Config
}

// NewRootCmd builds the gridgate command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "gridgate",
		Short: "Authenticating gateway for the household energy simulator",
		Long: `gridgate verifies bearer tokens, enforces per-operation roles and
household ownership, and serves the simulator and social routes behind them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Options{File: a.configFile, Flags: cmd.Flags()})
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			a.cfg = cfg
			return nil
		},
	}

	// Global flags
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Path to a YAML config file")
	flags.String("issuer", "", "Token issuer (env: GRIDGATE_AUTH_ISSUER)")
	flags.String("signing-secret", "", "HS256 signing secret or secretref (env: GRIDGATE_AUTH_SIGNING_SECRET)")
	flags.Duration("token-lifetime", 0, "Token lifetime (env: GRIDGATE_AUTH_TOKEN_LIFETIME)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env: GRIDGATE_OBSERVE_LOGGING_LEVEL)")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newTokenCmd(a))
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
