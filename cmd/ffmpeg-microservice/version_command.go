package main

import (
	"context"
	"fmt"
	"time"

	"ffmpeg-microservice/internal/handlers"
	"ffmpeg-microservice/internal/startup"

	"github.com/spf13/cobra"
)

func newVersionCommand(configFlag *string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information and the installed ffmpeg version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp := handlers.VersionResponse{BuildInfo: startup.GetBuildInfo()}

			if cfg, err := loadConfig(*configFlag); err == nil {
				ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
				defer cancel()
				if v, err := newTranscoder(cfg).Version(ctx); err == nil {
					resp.FFmpeg = v
				}
			}

			if jsonOutput {
				return writeJSON(cmd, resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", handlers.ServiceName, resp.Version)
			fmt.Fprintf(out, "  commit:     %s\n", resp.Commit)
			fmt.Fprintf(out, "  built:      %s\n", resp.BuildTime)
			fmt.Fprintf(out, "  go:         %s %s/%s\n", resp.GoVersion, resp.OS, resp.Arch)
			if resp.FFmpeg != "" {
				fmt.Fprintf(out, "  ffmpeg:     %s\n", resp.FFmpeg)
			} else {
				fmt.Fprintf(out, "  ffmpeg:     not found\n")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
