package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	envFiles []string
}

// NewRootCmd builds the usersvc command tree. Running it without a
// subcommand starts the HTTP server.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "usersvc",
		Short:         "User directory REST service",
		Long:          "Serves CRUD endpoints for users keyed by UPN, backed by memory, Postgres or Redis.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv file(s) to load before reading the environment")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	return root
}

// Execute runs the root command. It should be invoked from main.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
