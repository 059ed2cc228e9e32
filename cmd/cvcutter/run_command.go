package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"cvcutter/internal/pipeline"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var micPath string

	cmd := &cobra.Command{
		Use:   "run <video> [video...]",
		Short: "Detect, sync, and encode performance clips from a recording",
		Long: "Runs the full pipeline over a camera recording: multiple video\n" +
			"arguments are concatenated in order first, then performances are\n" +
			"detected, optionally aligned against a separate microphone\n" +
			"recording, and cut into per-performance clips.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			client, err := ctx.ffmpegClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			p := pipeline.New(cfg, client, logger)
			result, err := p.Run(cmd.Context(), pipeline.Request{
				VideoPaths: args,
				MicPath:    micPath,
			}, func(stage, message string) {
				fmt.Fprintf(out, "[%s] %s\n", stage, message)
			})
			if err != nil {
				return err
			}

			if len(result.Intervals) == 0 {
				fmt.Fprintln(out, "No performances detected.")
				return nil
			}

			rows := make([][]string, 0, len(result.Intervals))
			for i, interval := range result.Intervals {
				output := "(failed)"
				for _, idx := range indexOutputs(result) {
					if idx.index == i+1 {
						output = filepath.Base(idx.path)
					}
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					formatTimestamp(interval.Start),
					formatTimestamp(interval.End),
					output,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Start", "End", "Output"}, rows, 1, 2, 3))

			if result.UsedMic {
				fmt.Fprintf(out, "Microphone offset: %.2fs\n", result.GlobalOffset)
			} else if micPath != "" {
				fmt.Fprintln(out, "Microphone alignment failed; clips use camera audio.")
			}
			if failed := len(result.Encoded.FailedIndexes); failed > 0 {
				fmt.Fprintf(out, "%d segment(s) failed to encode.\n", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&micPath, "mic", "m", "", "Separate microphone recording to mix in")
	return cmd
}

type indexedOutput struct {
	index int
	path  string
}

// indexOutputs reassigns the surviving outputs to their performance ordinals:
// outputs are produced in order but failed ordinals leave gaps.
func indexOutputs(result pipeline.Result) []indexedOutput {
	failed := make(map[int]bool, len(result.Encoded.FailedIndexes))
	for _, idx := range result.Encoded.FailedIndexes {
		failed[idx] = true
	}
	out := make([]indexedOutput, 0, len(result.Encoded.Outputs))
	next := 0
	for index := 1; index <= len(result.Intervals); index++ {
		if failed[index] {
			continue
		}
		if next < len(result.Encoded.Outputs) {
			out = append(out, indexedOutput{index: index, path: result.Encoded.Outputs[next]})
			next++
		}
	}
	return out
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
