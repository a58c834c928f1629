package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sw33tLie/wpaudit/pkg/diff"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

func TestFormatPassed(t *testing.T) {
	r := Format(&diff.AuditResult{IsClean: true}, &inventory.ContentInventory{}, true)
	assert.Equal(t, StatusPassed, r.Status)
	assert.True(t, strings.HasPrefix(r.ReviewNotes, "PASSED"))
	assert.Empty(t, r.RevisionItems)
}

func TestFormatMissingImagesOverflow(t *testing.T) {
	res := &diff.AuditResult{MissingVideos: []string{"BBBBBBBBBBB"}}
	for i := 0; i < 25; i++ {
		res.MissingImages = append(res.MissingImages, inventory.Image{Src: fmt.Sprintf("/wp-content/uploads/img-%02d.jpg", i)})
	}

	r := Format(res, &inventory.ContentInventory{}, true)
	assert.Equal(t, StatusNeedsRevision, r.Status)
	assert.Equal(t, 20, strings.Count(r.RevisionItems, "- Missing image:"))
	assert.Contains(t, r.RevisionItems, "- ...and 5 more.")
	assert.Contains(t, r.RevisionItems, "img-19.jpg")
	assert.NotContains(t, r.RevisionItems, "img-20.jpg")
	assert.Equal(t, "1 missing video, 25 missing images", r.ReviewNotes)
}

func TestFormatIssues(t *testing.T) {
	res := &diff.AuditResult{
		MissingVideos: []string{"BBBBBBBBBBB"},
		ExtraVideos:   []string{"ZZZZZZZZZZZ"},
		MissingImages: []inventory.Image{{Src: "/wp-content/uploads/a.jpg", Alt: "Linen drape"}},
		WordCountGap:  &diff.WordCountGap{WPWords: 500, LocalWords: 200, Pct: 60},
	}
	for i := 0; i < 12; i++ {
		res.HeadingsDiff.Missing = append(res.HeadingsDiff.Missing, inventory.Heading{Level: 2, Text: fmt.Sprintf("Heading %d", i)})
	}

	r := Format(res, &inventory.ContentInventory{}, true)
	assert.Equal(t, "1 missing video, 1 extra video, word count 60% short, 1 missing image, 12 missing headings", r.ReviewNotes)
	assert.Contains(t, r.RevisionItems, "- Missing video: https://www.youtube.com/watch?v=BBBBBBBBBBB")
	assert.Contains(t, r.RevisionItems, "- Extra/wrong video (not on WordPress page): https://www.youtube.com/watch?v=ZZZZZZZZZZZ")
	assert.Contains(t, r.RevisionItems, `- Missing image: /wp-content/uploads/a.jpg (alt: "Linen drape")`)
	assert.Contains(t, r.RevisionItems, "- Word count: WordPress has 500 words, local page has 200 (60% short)")
	assert.Equal(t, 10, strings.Count(r.RevisionItems, "- Missing heading:"))
	assert.Contains(t, r.RevisionItems, "- ...and 2 more.")
}

func TestFormatInventory(t *testing.T) {
	inv := &inventory.ContentInventory{
		VideoIDs:  []string{"AAAAAAAAAAA"},
		Headings:  []inventory.Heading{{Level: 1, Text: "Roman Shades"}},
		WordCount: 640,
		TextSections: []inventory.TextSection{
			{Heading: inventory.IntroSection, WordCount: 5},
			{Heading: "Fabrics", WordCount: 21},
		},
	}
	for i := 0; i < 13; i++ {
		inv.Images = append(inv.Images, inventory.Image{Src: fmt.Sprintf("/wp-content/uploads/%d.jpg", i), Alt: "alt"})
	}

	// A replaced page that could not be diffed falls back to the inventory.
	for _, r := range []Report{Format(nil, inv, false), Format(nil, inv, true)} {
		assert.Equal(t, StatusInventoried, r.Status)
		assert.Equal(t, "Inventory: 1 video, 13 images, 1 heading, 640 words", r.ReviewNotes)
		assert.Contains(t, r.RevisionItems, "- https://www.youtube.com/watch?v=AAAAAAAAAAA")
		assert.Equal(t, 10, strings.Count(r.RevisionItems, `(alt: "alt")`))
		assert.Contains(t, r.RevisionItems, "- ...and 3 more.")
		assert.Contains(t, r.RevisionItems, "- H1: Roman Shades")
		assert.Contains(t, r.RevisionItems, "- Fabrics (21 words)")
		assert.NotContains(t, r.RevisionItems, inventory.IntroSection)
	}
}
