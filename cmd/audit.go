package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sw33tLie/wpaudit/internal/utils"
	"github.com/sw33tLie/wpaudit/pkg/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Compare legacy WordPress pages with their replacements and write review notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		liveOnly, _ := cmd.Flags().GetBool("live-only")
		slugs, _ := cmd.Flags().GetString("slugs")

		// dry runs never touch the ledger
		a, cleanup, err := newAuditor(cmd, !dryRun)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := a.Run(cmd.Context(), audit.Options{
			DryRun:   dryRun,
			LiveOnly: liveOnly,
			Slugs:    utils.SplitCSV(slugs),
		})
		if err != nil {
			return err
		}
		if stats.PersistFailed > 0 {
			utils.Log.Warnf("%d page updates failed, rerun to retry them", stats.PersistFailed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Bool("dry-run", false, "Print the would-be updates instead of writing them")
	auditCmd.Flags().Bool("live-only", false, "Only audit pages whose replacement is live")
	auditCmd.Flags().String("slugs", "", "Comma-separated list of slugs to audit")
}
