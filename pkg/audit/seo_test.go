package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/seo"
	"github.com/sw33tLie/wpaudit/pkg/storage"
)

type scoreByPath map[string]int

func (s scoreByPath) Check(doc *fetch.Document) *seo.Report {
	for suffix, score := range s {
		if strings.HasSuffix(doc.URL, suffix) {
			r := &seo.Report{URL: doc.URL, Score: score}
			if score < 90 {
				r.Findings = []seo.Finding{{Severity: seo.SeverityError, Code: "title_missing", Message: "Page has no <title>"}}
			}
			return r
		}
	}
	return &seo.Report{URL: doc.URL, Score: 100}
}

func TestRunSEO(t *testing.T) {
	srv := legacyServer(t)
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	var out bytes.Buffer
	a := newTestAuditor(t, &fakeStore{pages: samplePages()}, srv.URL, t.TempDir(), &out)
	a.cfg.Ledger = db

	stats, err := a.RunSEO(context.Background(), Options{}, scoreByPath{"/faq/": 70})
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.Checked)
	assert.Equal(t, 1, stats.FetchFailed)
	assert.Equal(t, 1, stats.ErrorPages)
	assert.Equal(t, "faq", stats.LowestSlug)
	assert.InDelta(t, 92.5, stats.Average(), 0.001)
	assert.Contains(t, out.String(), "  - [error] Page has no <title>")

	audits, err := db.GetRunStats(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, audits)

	runs, err := db.ListRuns(context.Background(), storage.RunKindSEO, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].Total)
	assert.Equal(t, 1, runs[0].FetchFailed)
	got, err := db.ListSEOResults(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "faq", got[0].Slug)
}
