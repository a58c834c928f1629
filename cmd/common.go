package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sw33tLie/wpaudit/internal/utils"
	"github.com/sw33tLie/wpaudit/pkg/audit"
	"github.com/sw33tLie/wpaudit/pkg/extract"
	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
	"github.com/sw33tLie/wpaudit/pkg/metrics"
	"github.com/sw33tLie/wpaudit/pkg/pages"
	"github.com/sw33tLie/wpaudit/pkg/storage"
	"github.com/sw33tLie/wpaudit/pkg/supabase"
)

func httpLogger() utils.LeveledLogger {
	return utils.LeveledLogger{Logger: utils.Log}
}

func newStore(cmd *cobra.Command) (*supabase.Client, error) {
	url := viper.GetString("supabase.url")
	key := viper.GetString("supabase.key")
	if url == "" || key == "" {
		return nil, pages.ErrMissingCredentials
	}
	proxy, _ := cmd.Flags().GetString("proxy")
	return supabase.New(supabase.Config{
		URL:        url,
		Key:        key,
		Table:      viper.GetString("supabase.table"),
		Proxy:      proxy,
		HTTPLogger: httpLogger(),
	})
}

func newFetcher(cmd *cobra.Command) (*fetch.Fetcher, error) {
	proxy, _ := cmd.Flags().GetString("proxy")
	return fetch.New(fetch.Config{
		UserAgent:  viper.GetString("audit.user_agent"),
		Timeout:    viper.GetDuration("audit.timeout"),
		Proxy:      proxy,
		Log:        utils.Log,
		HTTPLogger: httpLogger(),
	})
}

func loadRules() (inventory.Rules, error) {
	rules, err := inventory.LoadRules(viper.GetString("rules.file"))
	if err != nil {
		return inventory.Rules{}, fmt.Errorf("loading rules: %w", err)
	}
	return rules, nil
}

// ledger is an opened, locked run ledger. A nil *ledger is valid.
type ledger struct {
	db   *storage.DB
	lock *utils.LedgerLock
}

func openLedger(ctx context.Context) (*ledger, error) {
	if !viper.GetBool("ledger.enabled") {
		return nil, nil
	}
	path, err := utils.ResolveLedgerPath(viper.GetString("ledger.path"))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	lock := utils.NewLedgerLock(path)
	if err := lock.Acquire(ctx); err != nil {
		return nil, err
	}
	db, err := storage.Open(path)
	if err != nil {
		_ = lock.Release()
		return nil, err
	}
	utils.Log.Debugf("Recording run in %s", path)
	return &ledger{db: db, lock: lock}, nil
}

func (l *ledger) Close() {
	if l == nil {
		return
	}
	if err := l.db.Close(); err != nil {
		utils.Log.Warnf("Closing ledger: %v", err)
	}
	if err := l.lock.Release(); err != nil {
		utils.Log.Warnf("%v", err)
	}
}

// newAuditor wires store, fetcher, rules, ledger and metrics from config.
// The returned cleanup writes the metrics textfile and releases the ledger.
func newAuditor(cmd *cobra.Command, withLedger bool) (*audit.Auditor, func(), error) {
	store, err := newStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	fetcher, err := newFetcher(cmd)
	if err != nil {
		return nil, nil, err
	}
	rules, err := loadRules()
	if err != nil {
		return nil, nil, err
	}
	origin := viper.GetString("legacy.origin")
	if origin == "" {
		utils.Log.Warn("legacy.origin is not set, relative wp_url values will not resolve")
	}

	var l *ledger
	if withLedger {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if l, err = openLedger(ctx); err != nil {
			utils.Log.Warnf("Ledger unavailable, continuing without it: %v", err)
			l = nil
		}
	}

	var rec *metrics.Recorder
	textfile := viper.GetString("metrics.textfile")
	if textfile != "" {
		rec = metrics.New()
	}

	cfg := audit.Config{
		Store:          store,
		Fetcher:        fetcher,
		Rules:          rules,
		LegacyOrigin:   origin,
		SiteRoot:       viper.GetString("site.root"),
		PagePattern:    viper.GetString("site.page_pattern"),
		ConstantsFile:  viper.GetString("site.constants_file"),
		Constants:      extract.NewConstantsLoader(),
		ReplacedStatus: viper.GetString("audit.replaced_status"),
		Delay:          viper.GetDuration("audit.delay"),
		Metrics:        rec,
		Out:            cmd.OutOrStdout(),
		Log:            utils.Log,
	}
	if l != nil {
		cfg.Ledger = l.db
	}

	a, err := audit.New(cfg)
	if err != nil {
		l.Close()
		return nil, nil, err
	}
	cleanup := func() {
		if err := rec.WriteTextfile(textfile, time.Now()); err != nil {
			utils.Log.Warnf("Could not write metrics to %s: %v", textfile, err)
		}
		l.Close()
	}
	return a, cleanup, nil
}

func openLedgerReadOnly() (*storage.DB, error) {
	path, err := utils.ResolveLedgerPath(viper.GetString("ledger.path"))
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("ledger not found: %s", path)
	}
	return storage.Open(path)
}
