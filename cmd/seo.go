package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/wpaudit/internal/utils"
	"github.com/sw33tLie/wpaudit/pkg/audit"
	"github.com/sw33tLie/wpaudit/pkg/seo"
)

var seoCmd = &cobra.Command{
	Use:   "seo",
	Short: "Score legacy pages for SEO and AI readiness",
	RunE: func(cmd *cobra.Command, args []string) error {
		liveOnly, _ := cmd.Flags().GetBool("live-only")
		slugs, _ := cmd.Flags().GetString("slugs")

		a, cleanup, err := newAuditor(cmd, true)
		if err != nil {
			return err
		}
		defer cleanup()

		checker := seo.New(seo.Config{Languages: viper.GetStringSlice("seo.languages")})
		_, err = a.RunSEO(cmd.Context(), audit.Options{
			LiveOnly: liveOnly,
			Slugs:    utils.SplitCSV(slugs),
		}, checker)
		return err
	},
}

func init() {
	rootCmd.AddCommand(seoCmd)
	seoCmd.Flags().Bool("live-only", false, "Only check pages whose replacement is live")
	seoCmd.Flags().String("slugs", "", "Comma-separated list of slugs to check")
}
