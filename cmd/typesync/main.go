// Command typesync generates a TypeScript client for the HTTP handlers of a
// Go package: one types file describing every route's arguments and results,
// and one apis file with a typed function per route and method.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errGenerationFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "typesync",
		Short:         "Generate TypeScript client types from Go HTTP handlers",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand typesync builds.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
	opts.register(root.PersistentFlags())

	root.AddCommand(newBuildCmd(opts))
	root.AddCommand(newDumpCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{Use: "version", Short: "Print the typesync version", RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), "typesync", version)
		return nil
	}}
}
