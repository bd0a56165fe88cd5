package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newBuildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Generate the types and apis files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, opts)
		},
	}
}

// runBuild performs a single generation run.
func runBuild(cmd *cobra.Command, opts *options) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	g, err := newGenerator(opts, cmd.Flags(), cwd)
	if err != nil {
		return err
	}
	_, err = g.build(cmd.Context())
	return err
}
