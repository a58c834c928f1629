package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules carries every denylist and selector used by the extractors. Nothing
// in the extract package reads globals; callers pass a Rules value in.
type Rules struct {
	// Video ids used as decorative or template players on every legacy page.
	TemplateVideoIDs []string `yaml:"template_video_ids"`

	// Image src substrings that mark infrastructure or tracking assets.
	ImageSkipSubstrings []string `yaml:"image_skip_substrings"`
	// Path markers of user-uploaded media; only these images are content.
	UploadPathMarkers []string `yaml:"upload_path_markers"`
	// Filename substrings of uploads shared across every page.
	TemplateImageSubstrings []string `yaml:"template_image_substrings"`

	// Boilerplate headings, compared lower-cased.
	TemplateHeadings []string `yaml:"template_headings"`

	NoiseSelector        string `yaml:"noise_selector"`
	TextBlockSelector    string `yaml:"text_block_selector"`
	HeadingBlockSelector string `yaml:"heading_block_selector"`
	CalloutBlockSelector string `yaml:"callout_block_selector"`
	FallbackSelector     string `yaml:"fallback_selector"`
	SectionTextLimit     int    `yaml:"section_text_limit"`

	// Local source heuristics.
	VideoProps         []string `yaml:"video_props"`
	ConstantNamespaces []string `yaml:"constant_namespaces"`
	LocalImageHosts    []string `yaml:"local_image_hosts"`
	ImageExtensions    []string `yaml:"image_extensions"`
	HeadingComponents  []string `yaml:"heading_components"`
	HeadingProps       []string `yaml:"heading_props"`
}

func DefaultRules() Rules {
	return Rules{
		TemplateVideoIDs: []string{},
		ImageSkipSubstrings: []string{
			"google-analytics", "googletagmanager", "facebook.com/tr", "doubleclick",
			"gravatar.com", "logo", "favicon", "icon", "pixel", "emoji",
			"/plugins/woocommerce/", "/wp-includes/",
		},
		UploadPathMarkers:       []string{"/wp-content/uploads/"},
		TemplateImageSubstrings: []string{},
		TemplateHeadings: []string{
			"get a free quote", "request a quote", "contact us", "follow us",
			"quick links", "our products", "newsletter", "related products",
		},
		NoiseSelector:        "script, style, noscript, #wpadminbar, nav",
		TextBlockSelector:    ".elementor-widget-text-editor",
		HeadingBlockSelector: ".elementor-widget-heading",
		CalloutBlockSelector: ".elementor-widget-icon-box, .elementor-accordion-item, .elementor-toggle-item",
		FallbackSelector:     "main, article, .entry-content",
		SectionTextLimit:     500,

		VideoProps:         []string{"videoId", "youtubeId", "youTubeId", "ytId"},
		ConstantNamespaces: []string{"VIDEOS", "VIDEO_COLLECTIONS"},
		LocalImageHosts:    []string{"/wp-content/uploads/", "supabase.co/storage/", "res.cloudinary.com"},
		ImageExtensions:    []string{"jpg", "jpeg", "png", "webp", "gif", "avif", "svg"},
		HeadingComponents:  []string{"Heading", "SectionHeading", "SectionTitle"},
		HeadingProps:       []string{"title", "heading"},
	}
}

// LoadRules overlays the YAML file at path on DefaultRules. Keys absent from
// the file keep their defaults; an empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("reading rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parsing rules file %s: %w", path, err)
	}
	return rules, nil
}

// IsTemplateVideo reports whether id is a known decorative player.
func (r *Rules) IsTemplateVideo(id string) bool {
	for _, t := range r.TemplateVideoIDs {
		if t == id {
			return true
		}
	}
	return false
}

// IsTemplateHeading matches the lower-cased trimmed heading exactly.
func (r *Rules) IsTemplateHeading(text string) bool {
	key := strings.ToLower(strings.TrimSpace(text))
	for _, t := range r.TemplateHeadings {
		if strings.ToLower(strings.TrimSpace(t)) == key {
			return true
		}
	}
	return false
}

// IsTemplateImage matches filename substrings case-insensitively.
func (r *Rules) IsTemplateImage(src string) bool {
	return containsAnyFold(src, r.TemplateImageSubstrings)
}

// SkipImage reports infrastructure/tracking images.
func (r *Rules) SkipImage(src string) bool {
	return containsAnyFold(src, r.ImageSkipSubstrings)
}

// IsUpload reports whether src lives under a user-upload directory.
func (r *Rules) IsUpload(src string) bool {
	return containsAnyFold(src, r.UploadPathMarkers)
}

func containsAnyFold(s string, subs []string) bool {
	ls := strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(ls, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}
