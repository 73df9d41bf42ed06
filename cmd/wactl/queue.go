package main

import (
	"github.com/spf13/cobra"
	"github.com/wa-marketing/backend/internal/services"
)

var failedLimit int

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the campaign send queue",
}

var queueStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print job counts per state",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		counts, err := e.queue().Counts(cmd.Context(), services.TaskSendMessages)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), counts)
	},
}

var queueFailedCmd = &cobra.Command{
	Use:   "failed",
	Short: "List the most recent failed jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		jobs, err := e.queue().Failed(cmd.Context(), failedLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), jobs)
	},
}

func init() {
	queueFailedCmd.Flags().IntVar(&failedLimit, "limit", 20, "number of jobs to show")
	queueCmd.AddCommand(queueStatsCmd, queueFailedCmd)
}
