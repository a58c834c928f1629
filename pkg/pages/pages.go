// Package pages models the migrated-page records the auditor reads and
// patches. The record store itself is owned elsewhere.
package pages

import (
	"context"
	"errors"
	"time"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
	"github.com/sw33tLie/wpaudit/pkg/report"
)

var ErrMissingCredentials = errors.New("record store URL and key are required (SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY)")

type Page struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	LegacyURL    string `json:"wp_url"`
	Status       string `json:"status"`
	ReviewStatus string `json:"review_status,omitempty"`
}

// Filter selects pages with a non-null legacy URL, optionally narrowed by
// status and an explicit slug list.
type Filter struct {
	Status string
	Slugs  []string
}

// Patch is the fixed field subset the auditor writes. Nothing else on the
// record is touched. ReviewStatus and ReviewedAt are sent only when set.
type Patch struct {
	ReviewNotes   string     `json:"review_notes"`
	RevisionItems string     `json:"revision_items"`
	HasVideo      bool       `json:"has_video"`
	VideoCount    int        `json:"video_count"`
	HasImages     bool       `json:"has_images"`
	ImageCount    int        `json:"image_count"`
	WordCount     int        `json:"word_count"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ReviewStatus  string     `json:"review_status,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
}

// Store is the record store contract the auditor depends on.
type Store interface {
	ListPages(ctx context.Context, f Filter) ([]Page, error)
	UpdatePage(ctx context.Context, id string, p Patch) error
}

// NewPatch builds the update for one page from its legacy inventory and the
// formatted report. reviewed marks a completed diff and sets review_status.
func NewPatch(inv *inventory.ContentInventory, rep report.Report, reviewed bool, now time.Time) Patch {
	p := Patch{
		ReviewNotes:   rep.ReviewNotes,
		RevisionItems: rep.RevisionItems,
		HasVideo:      len(inv.VideoIDs) > 0,
		VideoCount:    len(inv.VideoIDs),
		HasImages:     len(inv.Images) > 0,
		ImageCount:    len(inv.Images),
		WordCount:     inv.WordCount,
		UpdatedAt:     now.UTC(),
	}
	if reviewed {
		at := now.UTC()
		p.ReviewStatus = rep.Status
		p.ReviewedAt = &at
	}
	return p
}
