package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent page outcomes from the local ledger (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openLedgerReadOnly()
		if err != nil {
			return err
		}
		defer db.Close()
		results, err := db.ListRecentResults(context.Background(), limit)
		if err != nil {
			return err
		}
		for _, r := range results {
			ts := r.OccurredAt.Format("2006-01-02 15:04:05")
			fmt.Fprintf(cmd.OutOrStdout(), "%s  run=%-4d  %-15s  %s  videos=%d missing=%d extra=%d words=%d\n",
				ts, r.RunID, r.Outcome, r.Slug, r.VideoCount, r.MissingVideos, r.ExtraVideos, r.WordCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 50, "Number of recent results to show")
}
