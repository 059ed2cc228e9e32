package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cvcutter/internal/detect"
	"cvcutter/internal/tracking"
)

func newDetectCommand(ctx *commandContext) *cobra.Command {
	var maxSeconds float64

	cmd := &cobra.Command{
		Use:   "detect <video>",
		Short: "Report performance intervals without encoding anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			source, err := tracking.NewVideoSource(tracking.VideoConfig{
				VideoPath:           args[0],
				ModelPath:           cfg.Detection.ModelPath,
				ModelConfigPath:     cfg.Detection.ModelConfigPath,
				ConfidenceThreshold: cfg.Detection.ConfidenceThreshold,
				PersonClassID:       cfg.Detection.PersonClassID,
				UseCUDA:             cfg.Encoding.UseGPU,
			})
			if err != nil {
				return err
			}
			defer source.Close()

			detectCfg := detect.Config{
				LeftZoneEndFraction:     cfg.Detection.LeftZoneEndFraction,
				CenterZoneWidthFraction: cfg.Detection.CenterZoneWidthFraction,
				MinDurationSeconds:      cfg.Detection.MinDurationSeconds,
				MaxSeconds:              cfg.Detection.MaxSeconds,
			}
			if maxSeconds > 0 {
				detectCfg.MaxSeconds = maxSeconds
			}

			intervals, err := detect.New(detectCfg, logger).Run(source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(intervals) == 0 {
				fmt.Fprintln(out, "No performances detected.")
				return nil
			}

			rows := make([][]string, 0, len(intervals))
			for i, interval := range intervals {
				rows = append(rows, []string{
					fmt.Sprintf("%d", i+1),
					formatTimestamp(interval.Start),
					formatTimestamp(interval.End),
					fmt.Sprintf("%.0fs", interval.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Start", "End", "Duration"}, rows, 1, 2, 3, 4))
			return nil
		},
	}

	cmd.Flags().Float64Var(&maxSeconds, "max-seconds", 0, "Only scan the first N seconds of footage")
	return cmd
}
