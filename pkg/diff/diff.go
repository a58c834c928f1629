// Package diff compares a legacy page inventory with its replacement.
package diff

import (
	"math"
	"path"
	"strings"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

const (
	// MinWordsForGap: shorter legacy pages are not checked for a word gap.
	MinWordsForGap = 50
	// GapRatio is the local/remote word ratio below which a gap is reported.
	GapRatio = 0.60
)

type WordCountGap struct {
	WPWords    int `json:"wp_words"`
	LocalWords int `json:"local_words"`
	Pct        int `json:"pct"`
}

type HeadingsDiff struct {
	Missing []inventory.Heading `json:"missing"`
	Extra   []inventory.Heading `json:"extra"`
}

// AuditResult is produced per comparison and never stored on its own.
//
// IsClean is gated only on videos and word count. Image and heading
// differences are advisory and never fail a page.
type AuditResult struct {
	MissingVideos []string          `json:"missing_videos"`
	ExtraVideos   []string          `json:"extra_videos"`
	MissingImages []inventory.Image `json:"missing_images"`
	WordCountGap  *WordCountGap     `json:"word_count_gap,omitempty"`
	HeadingsDiff  HeadingsDiff      `json:"headings_diff"`
	IsClean       bool              `json:"is_clean"`
}

func Diff(remote, local *inventory.ContentInventory) *AuditResult {
	r := &AuditResult{
		MissingVideos: subtract(remote.VideoIDs, local.VideoIDs),
		ExtraVideos:   subtract(local.VideoIDs, remote.VideoIDs),
		MissingImages: missingImages(remote.Images, local.Images),
		WordCountGap:  wordGap(remote.WordCount, local.WordCount),
		HeadingsDiff: HeadingsDiff{
			Missing: subtractHeadings(remote.Headings, local.Headings),
			Extra:   subtractHeadings(local.Headings, remote.Headings),
		},
	}
	r.IsClean = len(r.MissingVideos) == 0 && len(r.ExtraVideos) == 0 && r.WordCountGap == nil
	return r
}

// subtract returns a - b, keeping a's order.
func subtract(a, b []string) []string {
	in := make(map[string]bool, len(b))
	for _, v := range b {
		in[v] = true
	}
	out := []string{}
	for _, v := range a {
		if !in[v] {
			out = append(out, v)
		}
	}
	return out
}

// ImageFilename is the comparison key for images: last path segment, query
// and fragment stripped, lower-cased. Domain and directory are ignored.
func ImageFilename(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	src = strings.TrimRight(src, "/")
	return strings.ToLower(path.Base(src))
}

func missingImages(remote, local []inventory.Image) []inventory.Image {
	have := make(map[string]bool, len(local))
	for _, img := range local {
		have[ImageFilename(img.Src)] = true
	}
	out := []inventory.Image{}
	for _, img := range remote {
		if !have[ImageFilename(img.Src)] {
			out = append(out, img)
		}
	}
	return out
}

func wordGap(wp, local int) *WordCountGap {
	if wp <= MinWordsForGap || local <= 0 {
		return nil
	}
	ratio := float64(local) / float64(wp)
	if ratio >= GapRatio {
		return nil
	}
	return &WordCountGap{
		WPWords:    wp,
		LocalWords: local,
		Pct:        int(math.Round((1 - ratio) * 100)),
	}
}

func subtractHeadings(a, b []inventory.Heading) []inventory.Heading {
	in := make(map[string]bool, len(b))
	for _, h := range b {
		in[inventory.NormalizeHeading(h.Text)] = true
	}
	out := []inventory.Heading{}
	for _, h := range a {
		if !in[inventory.NormalizeHeading(h.Text)] {
			out = append(out, h)
		}
	}
	return out
}
