package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived task outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			entries, err := client.History(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived tasks")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				detail := entry.Reason
				if detail == "" {
					detail = humanize.IBytes(uint64(entry.DownloadedBytes))
				}
				rows = append(rows, []string{
					entry.TaskID,
					truncate(entry.Title, 32),
					entry.Quality,
					entry.Status,
					humanize.Time(entry.EndedAt),
					truncate(detail, 40),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]column{
					{name: "ID"},
					{name: "Title"},
					{name: "Quality"},
					{name: "Outcome"},
					{name: "Ended"},
					{name: "Detail"},
				},
				rows,
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum rows to list")
	return cmd
}
