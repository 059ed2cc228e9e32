package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cvcutter/internal/uploader"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quota usage and recent upload history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			state, err := uploader.NewFileStore(cfg.Upload.StateFile).Load()
			if err != nil {
				return err
			}

			maxPerDay := uploader.QuotaConfig{
				DailyBudgetUnits: cfg.Upload.DailyQuotaUnits,
				UploadCostUnits:  cfg.Upload.UploadCostUnits,
			}.MaxUploadsPerDay()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploads this quota window: %d of %d\n", state.UploadsToday, maxPerDay)
			if !state.QuotaResetTime.IsZero() {
				fmt.Fprintf(out, "Quota resets: %s\n", state.QuotaResetTime.Local().Format(time.RFC1123))
			}

			history := state.UploadHistory
			if len(history) == 0 {
				fmt.Fprintln(out, "No uploads recorded.")
				return nil
			}
			if limit > 0 && len(history) > limit {
				history = history[len(history)-limit:]
			}

			rows := make([][]string, 0, len(history))
			for _, entry := range history {
				detail := entry.VideoID
				if entry.Status == uploader.StatusFailed {
					detail = entry.Error
				}
				rows = append(rows, []string{
					entry.Timestamp.Local().Format("2006-01-02 15:04"),
					filepath.Base(entry.FilePath),
					string(entry.Status),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"When", "File", "Status", "Detail"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Only show the most recent N entries (0 = all)")
	return cmd
}
