package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cvcutter/internal/services/youtube"
	"cvcutter/internal/uploader"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var metadataPath string
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "upload <dir>",
		Short: "Upload encoded clips under the daily quota budget",
		Long: "Uploads every video file in the directory, pairing files (by\n" +
			"creation time) with the entries of the metadata document. The\n" +
			"batch blocks when the daily quota is spent and resumes after the\n" +
			"reset; interrupt it at any time and re-run to continue.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			quotaZone, err := time.LoadLocation(cfg.Upload.QuotaTimeZone)
			if err != nil {
				return fmt.Errorf("load quota time zone %q: %w", cfg.Upload.QuotaTimeZone, err)
			}

			tokenSource, err := youtube.TokenSource(cmd.Context(),
				cfg.Upload.ClientSecretsFile, cfg.Upload.TokenFile, consolePrompt(cmd))
			if err != nil {
				return err
			}
			service, err := youtube.New(cmd.Context(), youtube.Config{
				ChunkSizeMiB: cfg.Upload.ChunkSizeMiB,
				CategoryID:   cfg.Upload.CategoryID,
				Language:     cfg.Upload.Language,
			}, tokenSource, logger)
			if err != nil {
				return err
			}

			quota := uploader.NewQuotaManager(
				uploader.NewFileStore(cfg.Upload.StateFile),
				uploader.QuotaConfig{
					DailyBudgetUnits: cfg.Upload.DailyQuotaUnits,
					UploadCostUnits:  cfg.Upload.UploadCostUnits,
					Location:         quotaZone,
				}, logger)

			var confirm uploader.ConfirmFunc
			if assumeYes {
				confirm = func([]string, []uploader.VideoMetadata, error) bool { return true }
			} else {
				confirm = consoleConfirm(cmd)
			}

			scheduler := uploader.New(service, quota, uploader.Config{
				MaxRetries:     cfg.Upload.MaxRetries,
				DefaultPrivacy: cfg.Upload.PrivacyStatus,
			}, confirm, logger)

			summary, err := scheduler.Run(cmd.Context(), args[0], metadataPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded %d of %d file(s); %d failed.\n",
				summary.Success, summary.Total, summary.Failed)
			fmt.Fprintf(out, "Uploads this quota window: %d (resets %s)\n",
				summary.UploadsToday, summary.QuotaReset.In(quotaZone).Format(time.RFC1123))
			return nil
		},
	}

	cmd.Flags().StringVarP(&metadataPath, "metadata", "f", "metadata.json", "Metadata document for the batch")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip all confirmation prompts")
	return cmd
}

// consolePrompt runs the OAuth consent flow interactively.
func consolePrompt(cmd *cobra.Command) youtube.AuthPrompt {
	return func(authURL string) (string, error) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Authorize this application by visiting:")
		fmt.Fprintln(out, "  "+authURL)
		fmt.Fprint(out, "Enter the authorization code: ")

		reader := bufio.NewReader(os.Stdin)
		code, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(code), nil
	}
}

// consoleConfirm surfaces preflight problems and the final batch go-ahead.
func consoleConfirm(cmd *cobra.Command) uploader.ConfirmFunc {
	return func(files []string, metadata []uploader.VideoMetadata, problem error) bool {
		out := cmd.OutOrStdout()
		if problem != nil {
			fmt.Fprintf(out, "Warning: %v\n", problem)
			fmt.Fprint(out, "Continue anyway? [y/N] ")
		} else {
			fmt.Fprintf(out, "About to upload %d file(s).\n", len(files))
			fmt.Fprint(out, "Proceed? [y/N] ")
		}

		reader := bufio.NewReader(os.Stdin)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		return answer == "y" || answer == "yes"
	}
}
