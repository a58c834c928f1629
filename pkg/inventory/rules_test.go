package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRulesOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
template_video_ids: ["TPLTPLTPL01"]
template_headings: ["Why Choose Us"]
section_text_limit: 120
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"TPLTPLTPL01"}, rules.TemplateVideoIDs)
	assert.Equal(t, 120, rules.SectionTextLimit)
	assert.Equal(t, DefaultRules().TextBlockSelector, rules.TextBlockSelector)
	assert.True(t, rules.IsTemplateHeading("  why choose us "))
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestRuleMatchers(t *testing.T) {
	r := DefaultRules()
	r.TemplateImageSubstrings = []string{"Footer-BG"}

	assert.True(t, r.SkipImage("https://secure.gravatar.com/avatar/x"))
	assert.True(t, r.IsUpload("https://old.example.com/wp-content/uploads/2020/01/a.jpg"))
	assert.False(t, r.IsUpload("https://cdn.example.com/a.jpg"))
	assert.True(t, r.IsTemplateImage("/wp-content/uploads/footer-bg.jpg"))
}

func TestSummary(t *testing.T) {
	inv := &ContentInventory{VideoIDs: []string{"AAAAAAAAAAA"}, WordCount: 12}
	assert.Equal(t, "1 video, 0 images, 0 headings, 12 words", inv.Summary())
}
