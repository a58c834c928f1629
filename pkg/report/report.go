// Package report turns audit results into the review notes and revision
// checklist stored on the page record.
package report

import (
	"fmt"
	"strings"

	"github.com/sw33tLie/wpaudit/pkg/diff"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

const (
	StatusPassed        = "passed"
	StatusNeedsRevision = "needs_revision"
	StatusInventoried   = "inventoried"
)

// Caps keep the persisted text bounded. Overflow is always counted.
const (
	MaxInventoryImages = 10
	MaxKeySections     = 10
	MaxMissingImages   = 20
	MaxMissingHeadings = 10

	keySectionMinWords = 20
)

type Report struct {
	ReviewNotes   string
	RevisionItems string
	Status        string
}

func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// Format builds the report. result is ignored unless replaced is true; a
// replaced page with a nil result is treated like an unreplaced one.
func Format(result *diff.AuditResult, inv *inventory.ContentInventory, replaced bool) Report {
	if !replaced || result == nil {
		return inventoryReport(inv)
	}
	if result.IsClean {
		return Report{
			ReviewNotes: "PASSED: videos and word count match the WordPress page.",
			Status:      StatusPassed,
		}
	}
	return issuesReport(result)
}

func inventoryReport(inv *inventory.ContentInventory) Report {
	var b strings.Builder

	fmt.Fprintf(&b, "VIDEOS (%d):\n", len(inv.VideoIDs))
	for _, id := range inv.VideoIDs {
		fmt.Fprintf(&b, "- %s\n", VideoURL(id))
	}

	fmt.Fprintf(&b, "\nIMAGES (%d):\n", len(inv.Images))
	for i, img := range inv.Images {
		if i == MaxInventoryImages {
			writeOverflow(&b, len(inv.Images)-MaxInventoryImages)
			break
		}
		fmt.Fprintf(&b, "- %s%s\n", img.Src, altSuffix(img.Alt))
	}

	fmt.Fprintf(&b, "\nHEADINGS (%d):\n", len(inv.Headings))
	for _, h := range inv.Headings {
		fmt.Fprintf(&b, "- H%d: %s\n", h.Level, h.Text)
	}

	var key []inventory.TextSection
	for _, s := range inv.TextSections {
		if s.WordCount > keySectionMinWords {
			key = append(key, s)
		}
	}
	if len(key) > 0 {
		b.WriteString("\nKEY SECTIONS:\n")
		for i, s := range key {
			if i == MaxKeySections {
				writeOverflow(&b, len(key)-MaxKeySections)
				break
			}
			fmt.Fprintf(&b, "- %s (%d words)\n", s.Heading, s.WordCount)
		}
	}

	return Report{
		ReviewNotes:   "Inventory: " + inv.Summary(),
		RevisionItems: strings.TrimRight(b.String(), "\n"),
		Status:        StatusInventoried,
	}
}

func issuesReport(r *diff.AuditResult) Report {
	var issues []string
	if n := len(r.MissingVideos); n > 0 {
		issues = append(issues, countNoun(n, "missing video"))
	}
	if n := len(r.ExtraVideos); n > 0 {
		issues = append(issues, countNoun(n, "extra video"))
	}
	if r.WordCountGap != nil {
		issues = append(issues, fmt.Sprintf("word count %d%% short", r.WordCountGap.Pct))
	}
	if n := len(r.MissingImages); n > 0 {
		issues = append(issues, countNoun(n, "missing image"))
	}
	if n := len(r.HeadingsDiff.Missing); n > 0 {
		issues = append(issues, countNoun(n, "missing heading"))
	}

	var b strings.Builder
	for _, id := range r.MissingVideos {
		fmt.Fprintf(&b, "- Missing video: %s\n", VideoURL(id))
	}
	for _, id := range r.ExtraVideos {
		fmt.Fprintf(&b, "- Extra/wrong video (not on WordPress page): %s\n", VideoURL(id))
	}
	for i, img := range r.MissingImages {
		if i == MaxMissingImages {
			writeOverflow(&b, len(r.MissingImages)-MaxMissingImages)
			break
		}
		fmt.Fprintf(&b, "- Missing image: %s%s\n", img.Src, altSuffix(img.Alt))
	}
	if g := r.WordCountGap; g != nil {
		fmt.Fprintf(&b, "- Word count: WordPress has %d words, local page has %d (%d%% short)\n", g.WPWords, g.LocalWords, g.Pct)
	}
	for i, h := range r.HeadingsDiff.Missing {
		if i == MaxMissingHeadings {
			writeOverflow(&b, len(r.HeadingsDiff.Missing)-MaxMissingHeadings)
			break
		}
		fmt.Fprintf(&b, "- Missing heading: %q\n", h.Text)
	}

	return Report{
		ReviewNotes:   strings.Join(issues, ", "),
		RevisionItems: strings.TrimRight(b.String(), "\n"),
		Status:        StatusNeedsRevision,
	}
}

func writeOverflow(b *strings.Builder, n int) {
	fmt.Fprintf(b, "- ...and %d more.\n", n)
}

func altSuffix(alt string) string {
	if alt == "" {
		return ""
	}
	return fmt.Sprintf(" (alt: %q)", alt)
}

func countNoun(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
