package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"fetchmill/internal/daemon"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active and recent tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			tasks, err := client.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks")
				return nil
			}

			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{
					t.ID,
					truncate(t.Title, 32),
					t.Quality,
					t.Status,
					fmt.Sprintf("%.1f%%", t.Progress.Percentage),
					formatSpeed(t.Progress.BytesPerSecond),
					formatETA(t.Progress.ETASeconds),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{name: "ID"},
					{name: "Title"},
					{name: "Quality"},
					{name: "Status"},
					{name: "Progress", rightAlign: true},
					{name: "Speed", rightAlign: true},
					{name: "ETA", rightAlign: true},
				},
				rows,
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.Get(args[0])
			if err != nil {
				return err
			}
			printTask(cmd, t)
			return nil
		},
	}
}

func printTask(cmd *cobra.Command, t daemon.TaskPayload) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Task:      %s\n", t.ID)
	fmt.Fprintf(out, "Source:    %s\n", t.SourceID)
	if t.Title != "" {
		fmt.Fprintf(out, "Title:     %s\n", t.Title)
	}
	fmt.Fprintf(out, "Output:    %s (%s)\n", t.Quality, t.Container)
	fmt.Fprintf(out, "Strategy:  %s\n", t.Strategy)
	fmt.Fprintf(out, "Status:    %s\n", t.Status)
	if t.Phase != "" {
		fmt.Fprintf(out, "Phase:     %s\n", t.Phase)
	}
	if t.Reason != "" {
		fmt.Fprintf(out, "Reason:    %s\n", t.Reason)
	}
	fmt.Fprintf(out, "Progress:  %.1f%% (%s of %s)\n",
		t.Progress.Percentage,
		humanize.IBytes(uint64(t.Progress.DownloadedBytes)),
		humanize.IBytes(uint64(max64(t.Progress.TotalBytes, 0))))
	if t.Progress.BytesPerSecond > 0 {
		fmt.Fprintf(out, "Speed:     %s\n", formatSpeed(t.Progress.BytesPerSecond))
	}
	if t.Progress.ETASeconds > 0 {
		fmt.Fprintf(out, "ETA:       %s\n", formatETA(t.Progress.ETASeconds))
	}
	fmt.Fprintf(out, "Created:   %s\n", humanize.Time(t.CreatedAt))
	if t.EndedAt != nil {
		fmt.Fprintf(out, "Ended:     %s\n", humanize.Time(*t.EndedAt))
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause ID",
		Short: "Pause a simulated task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.Pause(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s paused at %.1f%%\n", t.ID, t.Progress.Percentage)
			return nil
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume ID",
		Short: "Resume a paused task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			t, err := client.Resume(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s resumed\n", t.ID)
			return nil
		},
	}
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel ID",
		Short: "Cancel a task and discard its work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Cancel(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s cancelled\n", args[0])
			return nil
		},
	}
}

func newFetchCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "fetch ID",
		Short: "Download the produced file of a completed task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(outputPath)
			tmp, err := os.CreateTemp(filepath.Dir(targetOrCwd(target)), ".fetchmill-*")
			if err != nil {
				return fmt.Errorf("create download file: %w", err)
			}
			defer func() {
				tmp.Close()
				_ = os.Remove(tmp.Name())
			}()

			filename, written, err := client.FetchFile(args[0], tmp)
			if err != nil {
				return err
			}
			if err := tmp.Close(); err != nil {
				return fmt.Errorf("flush download: %w", err)
			}

			if target == "" {
				if filename == "" {
					filename = args[0]
				}
				target = filename
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return fmt.Errorf("move download into place: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s)\n", target, humanize.IBytes(uint64(written)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Destination path (defaults to the server-suggested name)")
	return cmd
}

func targetOrCwd(target string) string {
	if target == "" {
		return "."
	}
	return target
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:limit]
	}
	return value[:limit-3] + "..."
}
