package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/sw33tLie/wpaudit/internal/utils"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

const (
	LOGO = `                                 _ _ _   
 __      ___ __   __ _ _   _  __| (_) |_ 
 \ \ /\ / / '_ \ / _' | | | |/ _' | | __|
  \ V  V /| |_) | (_| | |_| | (_| | | |_ 
   \_/\_/ | .__/ \__,_|\__,_|\__,_|_|\__|
          |_|                            

`
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wpaudit",
	Short: "Audit migrated pages against their legacy WordPress originals.",
	Long: LOGO + `wpaudit fetches every legacy WordPress page listed in the pages table,
inventories its videos, images, headings and copy, compares it with the
replacement page source and writes review notes back to the record.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wpaudit.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".wpaudit")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("supabase.url", "SUPABASE_URL")
	_ = viper.BindEnv("supabase.key", "SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_KEY")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Printf("Error reading config file: %s\n", err)
			os.Exit(1)
		}
	}

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}

func setDefaults() {
	viper.SetDefault("supabase.url", "")
	viper.SetDefault("supabase.key", "")
	viper.SetDefault("supabase.table", "pages")
	viper.SetDefault("legacy.origin", "")
	viper.SetDefault("site.root", ".")
	viper.SetDefault("site.page_pattern", "app/{slug}/page.tsx")
	viper.SetDefault("site.constants_file", "lib/videos.ts")
	viper.SetDefault("audit.delay", "500ms")
	viper.SetDefault("audit.timeout", "30s")
	viper.SetDefault("audit.user_agent", "")
	viper.SetDefault("audit.replaced_status", "live")
	viper.SetDefault("rules.file", "")
	viper.SetDefault("ledger.path", "")
	viper.SetDefault("ledger.enabled", true)
	viper.SetDefault("metrics.textfile", "")
	viper.SetDefault("seo.languages", []string{"en", "es", "fr", "de"})
}
