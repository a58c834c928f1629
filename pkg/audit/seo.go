package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/seo"
	"github.com/sw33tLie/wpaudit/pkg/storage"
)

// SEOChecker is satisfied by *seo.Auditor.
type SEOChecker interface {
	Check(doc *fetch.Document) *seo.Report
}

type SEOStats struct {
	Total       int
	Checked     int
	FetchFailed int
	ScoreSum    int
	LowestScore int
	LowestSlug  string
	ErrorPages  int // pages with at least one error finding
}

func (s *SEOStats) Average() float64 {
	if s.Checked == 0 {
		return 0
	}
	return float64(s.ScoreSum) / float64(s.Checked)
}

// RunSEO fetches every selected legacy page and scores it. Nothing is
// written to the record store.
func (a *Auditor) RunSEO(ctx context.Context, opts Options, checker SEOChecker) (*SEOStats, error) {
	list, err := a.listPages(ctx, opts)
	if err != nil {
		return nil, err
	}

	r := a.startRun(ctx, storage.RunKindSEO, false)
	stats := &SEOStats{LowestScore: -1}
	fmt.Fprintf(a.cfg.Out, "Checking %d pages\n", len(list))

	var runErr error
	for i, p := range list {
		if runErr = r.limiter.Wait(ctx); runErr != nil {
			break
		}
		stats.Total++
		fmt.Fprintf(a.cfg.Out, "[%d/%d] %s\n", i+1, len(list), p.Slug)

		doc, err := a.cfg.Fetcher.Fetch(ctx, a.legacyURL(p.LegacyURL))
		if doc != nil {
			a.cfg.Metrics.Fetch(doc.Elapsed)
		}
		if err != nil {
			stats.FetchFailed++
			a.cfg.Metrics.Page(storage.OutcomeFetchFailed)
			fmt.Fprintf(a.cfg.Out, "  fetch failed: %v\n", err)
			continue
		}

		rep := checker.Check(doc)
		stats.Checked++
		stats.ScoreSum += rep.Score
		if stats.LowestScore < 0 || rep.Score < stats.LowestScore {
			stats.LowestScore, stats.LowestSlug = rep.Score, p.Slug
		}
		if rep.Count(seo.SeverityError) > 0 {
			stats.ErrorPages++
		}
		a.cfg.Metrics.Page("seo_checked")

		fmt.Fprintf(a.cfg.Out, "  score %d (%d errors, %d warnings)\n", rep.Score, rep.Count(seo.SeverityError), rep.Count(seo.SeverityWarning))
		for _, f := range rep.Findings {
			if f.Severity == seo.SeverityInfo {
				continue
			}
			fmt.Fprintf(a.cfg.Out, "  - [%s] %s\n", f.Severity, f.Message)
		}

		if a.recording(r) {
			findings, _ := json.Marshal(rep.Findings)
			if err := a.cfg.Ledger.RecordSEO(ctx, storage.SEOResult{RunID: r.id, Slug: p.Slug, URL: rep.URL, Score: rep.Score, Findings: string(findings)}); err != nil {
				a.log.Warnf("Could not record SEO result for %s: %v", p.Slug, err)
			}
		}
	}

	if a.recording(r) {
		c := storage.Counters{Total: stats.Total, FetchFailed: stats.FetchFailed}
		if err := a.cfg.Ledger.FinishRun(context.Background(), r.id, c, a.cfg.Now()); err != nil {
			a.log.Warnf("Could not finish ledger run %d: %v", r.id, err)
		}
	}

	fmt.Fprintln(a.cfg.Out, "")
	fmt.Fprintln(a.cfg.Out, "Summary")
	fmt.Fprintf(a.cfg.Out, "  Checked:       %d of %d\n", stats.Checked, stats.Total)
	fmt.Fprintf(a.cfg.Out, "  Fetch failed:  %d\n", stats.FetchFailed)
	fmt.Fprintf(a.cfg.Out, "  Average score: %.1f\n", stats.Average())
	fmt.Fprintf(a.cfg.Out, "  Pages with errors: %d\n", stats.ErrorPages)
	if stats.LowestSlug != "" {
		fmt.Fprintf(a.cfg.Out, "  Lowest score:  %d (%s)\n", stats.LowestScore, stats.LowestSlug)
	}
	if runErr != nil {
		return stats, fmt.Errorf("run interrupted after %d pages: %w", stats.Total, runErr)
	}
	return stats, nil
}
