package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sw33tLie/wpaudit/pkg/extract"
)

var extractCmd = &cobra.Command{
	Use:   "extract <url|file>",
	Short: "Print the content inventory of a legacy page as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := loadRules()
		if err != nil {
			return err
		}

		src := args[0]
		var body string
		if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
			f, err := newFetcher(cmd)
			if err != nil {
				return err
			}
			doc, err := f.Fetch(cmd.Context(), src)
			if err != nil {
				return err
			}
			body = doc.Body
		} else {
			data, err := os.ReadFile(src)
			if err != nil {
				return err
			}
			body = string(data)
		}

		inv, err := extract.NewRemote(rules).Extract(body)
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(inv, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
