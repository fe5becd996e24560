package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "ffmpeg-microservice",
		Short:         "HTTP service for probing, transcoding and thumbnailing media with ffmpeg",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), configFlag)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newServeCommand(&configFlag))
	rootCmd.AddCommand(newProbeCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand(&configFlag))

	return rootCmd
}
