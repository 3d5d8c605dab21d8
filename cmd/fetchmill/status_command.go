package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and dependency availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			running := "stopped"
			if status.Running {
				running = fmt.Sprintf("running (pid %d)", status.PID)
			}
			fmt.Fprintf(out, "Daemon:    %s\n", running)
			fmt.Fprintf(out, "Lock:      %s\n", status.LockFilePath)
			if status.HistoryDBPath != "" {
				fmt.Fprintf(out, "History:   %s\n", status.HistoryDBPath)
			}

			if len(status.TaskCounts) > 0 {
				statuses := make([]string, 0, len(status.TaskCounts))
				for name := range status.TaskCounts {
					statuses = append(statuses, name)
				}
				sort.Strings(statuses)
				fmt.Fprintln(out, "Tasks:")
				for _, name := range statuses {
					fmt.Fprintf(out, "  %-10s %d\n", name, status.TaskCounts[name])
				}
			}

			fmt.Fprintln(out, "Dependencies:")
			for _, dep := range status.Dependencies {
				detail := dep.Detail
				if detail == "" {
					detail = dep.Command
				}
				fmt.Fprintf(out, "  %-10s %-8s %s\n", dep.Name, markAvailability(dep.Available, colorize), detail)
			}
			return nil
		},
	}
}
