package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"fetchmill/internal/daemon"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var (
		sourceID        string
		title           string
		duration        int64
		quality         string
		audioBitrate    int
		availableList   []string
		strategy        string
		totalBytes      int64
		markUnavailable bool
	)

	cmd := &cobra.Command{
		Use:   "submit URL",
		Short: "Submit a media URL for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			sourceURL := strings.TrimSpace(args[0])
			id := strings.TrimSpace(sourceID)
			if id == "" {
				id = sourceURL
			}
			available := !markUnavailable
			created, err := client.Submit(daemon.SubmitRequest{
				SourceID:           id,
				SourceURL:          sourceURL,
				Title:              title,
				DurationSeconds:    duration,
				Quality:            quality,
				AudioBitrateKbps:   audioBitrate,
				Available:          &available,
				AvailableQualities: availableList,
				Strategy:           strategy,
				TotalBytesEstimate: totalBytes,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Task %s submitted (%s, %s)\n", created.ID, created.Quality, created.Strategy)
			fmt.Fprintf(out, "Track it with: fetchmill show %s\n", created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceID, "source-id", "", "Source identifier (defaults to the URL)")
	cmd.Flags().StringVar(&title, "title", "", "Source title used for the download filename")
	cmd.Flags().Int64Var(&duration, "duration", 0, "Source duration in seconds")
	cmd.Flags().StringVarP(&quality, "quality", "q", "720p", "Output quality (360p|480p|720p|1080p|4k|audio)")
	cmd.Flags().IntVar(&audioBitrate, "audio-bitrate", 0, "Audio bitrate in kbps for audio output")
	cmd.Flags().StringSliceVar(&availableList, "available-qualities", nil, "Qualities the source natively offers")
	cmd.Flags().StringVar(&strategy, "strategy", "real", "Execution strategy (real|simulated)")
	cmd.Flags().Int64Var(&totalBytes, "total-bytes", 0, "Total byte estimate for simulated progress")
	cmd.Flags().BoolVar(&markUnavailable, "unavailable", false, "Mark the chosen option unavailable (testing aid)")
	_ = cmd.Flags().MarkHidden("unavailable")

	return cmd
}
