// Package audit walks the page records, compares every legacy page with its
// local replacement and patches the audit fields back onto the record.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sw33tLie/wpaudit/pkg/diff"
	"github.com/sw33tLie/wpaudit/pkg/extract"
	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
	"github.com/sw33tLie/wpaudit/pkg/metrics"
	"github.com/sw33tLie/wpaudit/pkg/pages"
	"github.com/sw33tLie/wpaudit/pkg/report"
	"github.com/sw33tLie/wpaudit/pkg/storage"
)

const (
	DefaultDelay          = 500 * time.Millisecond
	DefaultReplacedStatus = "live"
	DefaultPagePattern    = "app/{slug}/page.tsx"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// PageFetcher is satisfied by *fetch.Fetcher.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Document, error)
}

// Ledger is the part of *storage.DB a run writes to.
type Ledger interface {
	StartRun(ctx context.Context, kind storage.RunKind, dryRun bool, startedAt time.Time) (int64, error)
	RecordResult(ctx context.Context, r storage.Result) error
	RecordSEO(ctx context.Context, r storage.SEOResult) error
	FinishRun(ctx context.Context, runID int64, c storage.Counters, finishedAt time.Time) error
}

type Config struct {
	Store   pages.Store
	Fetcher PageFetcher
	Rules   inventory.Rules

	// LegacyOrigin is prefixed to relative wp_url values.
	LegacyOrigin string
	// SiteRoot and PagePattern locate the replacement source; "{slug}" in the
	// pattern is substituted.
	SiteRoot      string
	PagePattern   string
	ConstantsFile string
	Constants     *extract.ConstantsLoader // optional

	ReplacedStatus string        // defaults to "live"
	Delay          time.Duration // minimum spacing between fetches

	Ledger  Ledger            // optional
	Metrics *metrics.Recorder // optional
	Out     io.Writer         // defaults to os.Stdout
	Log     Logger            // optional; nil = no logging
	Now     func() time.Time
}

type Options struct {
	DryRun   bool
	LiveOnly bool
	Slugs    []string
}

// Stats are the run counters printed in the summary block.
type Stats struct {
	Total           int
	Passed          int
	NeedsRevision   int
	InventoriedOnly int
	FetchFailed     int
	LocalMissing    int
	PersistFailed   int
}

type Auditor struct {
	cfg    Config
	log    Logger
	remote *extract.RemoteExtractor
}

func New(cfg Config) (*Auditor, error) {
	if cfg.Store == nil || cfg.Fetcher == nil {
		return nil, errors.New("audit: store and fetcher are required")
	}
	if cfg.ReplacedStatus == "" {
		cfg.ReplacedStatus = DefaultReplacedStatus
	}
	if cfg.PagePattern == "" {
		cfg.PagePattern = DefaultPagePattern
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Constants == nil {
		cfg.Constants = extract.NewConstantsLoader()
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Auditor{cfg: cfg, log: log, remote: extract.NewRemote(cfg.Rules)}, nil
}

// run is the per-invocation state shared by both audit loops.
type run struct {
	id      int64
	dryRun  bool
	limiter *rate.Limiter
}

func (a *Auditor) listPages(ctx context.Context, opts Options) ([]pages.Page, error) {
	filter := pages.Filter{Slugs: opts.Slugs}
	if opts.LiveOnly {
		filter.Status = a.cfg.ReplacedStatus
	}
	list, err := a.cfg.Store.ListPages(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	return list, nil
}

func (a *Auditor) startRun(ctx context.Context, kind storage.RunKind, dryRun bool) *run {
	r := &run{dryRun: dryRun, limiter: rate.NewLimiter(rate.Every(a.cfg.Delay), 1)}
	if a.cfg.Ledger == nil || dryRun {
		return r
	}
	id, err := a.cfg.Ledger.StartRun(ctx, kind, false, a.cfg.Now())
	if err != nil {
		a.log.Warnf("Could not start ledger run, results will not be recorded locally: %v", err)
		return r
	}
	r.id = id
	return r
}

func (a *Auditor) recording(r *run) bool {
	return a.cfg.Ledger != nil && r.id != 0
}

// Run audits every selected page in slug order. Only the initial page
// listing is fatal; per-page failures are counted and the run continues.
func (a *Auditor) Run(ctx context.Context, opts Options) (*Stats, error) {
	list, err := a.listPages(ctx, opts)
	if err != nil {
		return nil, err
	}

	constants, err := a.cfg.Constants.Load(a.resolvePath(a.cfg.ConstantsFile))
	if err != nil {
		a.log.Warnf("Constants file unavailable, indirect video references will not resolve: %v", err)
	}
	local := extract.NewLocal(a.cfg.Rules, constants)

	r := a.startRun(ctx, storage.RunKindAudit, opts.DryRun)
	stats := &Stats{}

	mode := ""
	if opts.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(a.cfg.Out, "Auditing %d pages%s\n", len(list), mode)

	var runErr error
	for i, p := range list {
		if runErr = r.limiter.Wait(ctx); runErr != nil {
			break
		}
		fmt.Fprintf(a.cfg.Out, "[%d/%d] %s\n", i+1, len(list), p.Slug)
		a.auditPage(ctx, r, p, local, stats)
	}

	if a.recording(r) {
		if ferr := a.cfg.Ledger.FinishRun(context.Background(), r.id, storage.Counters(*stats), a.cfg.Now()); ferr != nil {
			a.log.Warnf("Could not finish ledger run %d: %v", r.id, ferr)
		}
	}
	stats.Print(a.cfg.Out)
	if runErr != nil {
		return stats, fmt.Errorf("run interrupted after %d pages: %w", stats.Total, runErr)
	}
	return stats, nil
}

// auditPage runs one page through fetch, extract, diff, format and persist.
func (a *Auditor) auditPage(ctx context.Context, r *run, p pages.Page, local *extract.LocalExtractor, stats *Stats) {
	stats.Total++
	res := storage.Result{RunID: r.id, PageID: p.ID, Slug: p.Slug}

	doc, err := a.cfg.Fetcher.Fetch(ctx, a.legacyURL(p.LegacyURL))
	if doc != nil {
		a.cfg.Metrics.Fetch(doc.Elapsed)
	}
	if err != nil {
		stats.FetchFailed++
		fmt.Fprintf(a.cfg.Out, "  fetch failed: %v\n", err)
		a.finishPage(r, res, storage.OutcomeFetchFailed)
		return
	}

	inv, err := a.remote.Extract(doc.Body)
	if err != nil {
		stats.FetchFailed++
		a.log.Warnf("Could not parse %s: %v", doc.FinalURL, err)
		a.finishPage(r, res, storage.OutcomeFetchFailed)
		return
	}
	res.VideoCount, res.ImageCount, res.WordCount = len(inv.VideoIDs), len(inv.Images), inv.WordCount

	replaced := p.Status == a.cfg.ReplacedStatus
	var result *diff.AuditResult
	outcome := storage.OutcomeInventoried

	if replaced {
		src, lerr := a.readLocal(p.Slug)
		if lerr != nil {
			stats.LocalMissing++
			outcome = storage.OutcomeLocalMissing
			a.log.Warnf("Page %s is %s but has no local source: %v", p.Slug, p.Status, lerr)
		} else {
			result = diff.Diff(inv, local.Extract(src))
			res.MissingVideos = len(result.MissingVideos)
			res.ExtraVideos = len(result.ExtraVideos)
			res.MissingImages = len(result.MissingImages)
			a.cfg.Metrics.MissingVideos(len(result.MissingVideos))
		}
	}

	rep := report.Format(result, inv, replaced)
	reviewed := result != nil
	switch {
	case reviewed && rep.Status == report.StatusPassed:
		stats.Passed++
		outcome = storage.OutcomePassed
		fmt.Fprintln(a.cfg.Out, "  PASSED")
	case reviewed:
		stats.NeedsRevision++
		outcome = storage.OutcomeNeedsRevision
		fmt.Fprintf(a.cfg.Out, "  NEEDS REVISION: %s\n", rep.ReviewNotes)
	case outcome == storage.OutcomeInventoried:
		stats.InventoriedOnly++
		fmt.Fprintf(a.cfg.Out, "  inventoried: %s\n", inv.Summary())
	default:
		fmt.Fprintf(a.cfg.Out, "  local source missing, inventory only: %s\n", inv.Summary())
	}
	if reviewed {
		res.ReviewStatus = rep.Status
	}
	res.Notes = rep.ReviewNotes

	patch := pages.NewPatch(inv, rep, reviewed, a.cfg.Now())
	if err := a.persist(ctx, r, p, patch); err != nil {
		stats.PersistFailed++
		a.log.Errorf("Failed to update page %s (%s): %v", p.ID, p.Slug, err)
		outcome = storage.OutcomePersistFailed
	}
	a.finishPage(r, res, outcome)
}

func (a *Auditor) persist(ctx context.Context, r *run, p pages.Page, patch pages.Patch) error {
	if r.dryRun {
		data, err := json.MarshalIndent(patch, "  ", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(a.cfg.Out, "  would update page %s:\n  %s\n", p.ID, data)
		return nil
	}
	return a.cfg.Store.UpdatePage(ctx, p.ID, patch)
}

func (a *Auditor) finishPage(r *run, res storage.Result, outcome string) {
	a.cfg.Metrics.Page(outcome)
	if !a.recording(r) {
		return
	}
	res.Outcome = outcome
	res.OccurredAt = a.cfg.Now()
	if err := a.cfg.Ledger.RecordResult(context.Background(), res); err != nil {
		a.log.Warnf("Could not record %s in the ledger: %v", res.Slug, err)
	}
}

// legacyURL joins relative wp_url values onto the legacy origin.
func (a *Auditor) legacyURL(wpURL string) string {
	if u, err := url.Parse(wpURL); err == nil && u.IsAbs() {
		return wpURL
	}
	return strings.TrimRight(a.cfg.LegacyOrigin, "/") + "/" + strings.TrimLeft(wpURL, "/")
}

// LocalPath maps a slug to its replacement source file.
func (a *Auditor) LocalPath(slug string) string {
	return a.resolvePath(strings.ReplaceAll(a.cfg.PagePattern, "{slug}", strings.Trim(slug, "/")))
}

func (a *Auditor) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(a.cfg.SiteRoot, filepath.FromSlash(p))
}

func (a *Auditor) readLocal(slug string) (string, error) {
	if slug == "" || strings.Contains(slug, "..") {
		return "", fmt.Errorf("unusable slug %q", slug)
	}
	data, err := os.ReadFile(a.LocalPath(slug))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Print writes the end-of-run summary block.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Summary")
	fmt.Fprintf(w, "  Total:            %d\n", s.Total)
	fmt.Fprintf(w, "  Passed:           %d\n", s.Passed)
	fmt.Fprintf(w, "  Needs revision:   %d\n", s.NeedsRevision)
	fmt.Fprintf(w, "  Inventoried only: %d\n", s.InventoriedOnly)
	fmt.Fprintf(w, "  Fetch failed:     %d\n", s.FetchFailed)
	fmt.Fprintf(w, "  Local missing:    %d\n", s.LocalMissing)
	fmt.Fprintf(w, "  Persist failed:   %d\n", s.PersistFailed)
}
