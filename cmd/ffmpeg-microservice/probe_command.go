package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newProbeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Print the metadata the service would return for a local file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("probe %s: %w", path, err)
			}

			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			trans := newTranscoder(cfg)
			defer trans.Cleanup()

			result, err := trans.Probe(cmd.Context(), path)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
}
