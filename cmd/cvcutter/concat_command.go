package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "concat <video> <video> [video...]",
		Short: "Join multi-part recordings onto one continuous timeline",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.ensureLogger(); err != nil {
				return err
			}
			client, err := ctx.ffmpegClient()
			if err != nil {
				return err
			}

			if err := client.Concat(cmd.Context(), args, output); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "combined.mp4", "Output file path")
	return cmd
}
