package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/wpaudit/internal/utils"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect the local run ledger",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive sqlite3 shell on the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, err := utils.ResolveLedgerPath(viper.GetString("ledger.path"))
		if err != nil {
			return err
		}
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return fmt.Errorf("ledger not found: %s", dbPath)
		}

		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		fmt.Println("--> Ledger schema:")
		schemaCmd := exec.Command(sqlitePath, dbPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, dbPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints the counters of the most recent runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		db, err := openLedgerReadOnly()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.GetRunStats(context.Background(), limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "RUN\tSTARTED\tTOTAL\tPASSED\tREVISION\tINVENTORIED\tFETCH-FAILED\tLOCAL-MISSING\tPERSIST-FAILED\t")

		var total, passed, revision int
		for _, r := range runs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t\n", r.ID, r.StartedAt.Format("2006-01-02 15:04"),
				r.Total, r.Passed, r.NeedsRevision, r.InventoriedOnly, r.FetchFailed, r.LocalMissing, r.PersistFailed)
			total += r.Total
			passed += r.Passed
			revision += r.NeedsRevision
		}

		fmt.Fprintln(w, " \t \t \t \t \t \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t \t%d\t%d\t%d\t \t \t \t \t\n", total, passed, revision)

		return w.Flush()
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recent runs and page results to an Excel workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("xlsx")
		limit, _ := cmd.Flags().GetInt("limit")
		if out == "" {
			return fmt.Errorf("--xlsx is required")
		}
		db, err := openLedgerReadOnly()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.ExportXLSX(cmd.Context(), out, limit); err != nil {
			return err
		}
		utils.Log.Infof("Wrote %s", out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(exportCmd)
	statsCmd.Flags().Int("limit", 10, "Number of recent runs to show")
	exportCmd.Flags().String("xlsx", "", "Output .xlsx file")
	exportCmd.Flags().Int("limit", 1000, "Maximum runs and results to export")
}
