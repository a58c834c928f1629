// Package seo scores a fetched legacy page for search and AI readiness.
package seo

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"
	"github.com/tidwall/gjson"
	"github.com/weppos/publicsuffix-go/publicsuffix"

	"github.com/sw33tLie/wpaudit/pkg/fetch"
	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	titleMin       = 10
	titleMax       = 60
	descriptionMax = 160

	// language detection on shorter text is unreliable
	minDetectChars = 200
)

var DefaultLanguages = []string{"en", "es", "fr", "de"}

type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

type Report struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Score       int       `json:"score"`
	SchemaTypes []string  `json:"schema_types"`
	Language    string    `json:"language,omitempty"`
	Findings    []Finding `json:"findings"`
}

// Count returns the number of findings with the given severity.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

type Config struct {
	// Languages the detector chooses between (ISO 639-1). At least two.
	Languages       []string
	MinContentChars int     // default 500
	MinAltCoverage  float64 // default 0.8
}

type Auditor struct {
	cfg      Config
	detector lingua.LanguageDetector
}

func New(cfg Config) *Auditor {
	if cfg.MinContentChars <= 0 {
		cfg.MinContentChars = 500
	}
	if cfg.MinAltCoverage <= 0 {
		cfg.MinAltCoverage = 0.8
	}
	langs := parseLanguages(cfg.Languages)
	if len(langs) < 2 {
		langs = parseLanguages(DefaultLanguages)
	}
	return &Auditor{
		cfg:      cfg,
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}
}

func parseLanguages(codes []string) []lingua.Language {
	var out []lingua.Language
	seen := map[lingua.Language]bool{}
	for _, c := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(c)))
		lang := lingua.GetLanguageFromIsoCode639_1(iso)
		if lang == lingua.Unknown || seen[lang] {
			continue
		}
		seen[lang] = true
		out = append(out, lang)
	}
	return out
}

// Check never fails: unparseable markup yields findings, not errors.
func (a *Auditor) Check(doc *fetch.Document) *Report {
	pageURL := doc.FinalURL
	if pageURL == "" {
		pageURL = doc.URL
	}
	r := &Report{URL: pageURL, SchemaTypes: []string{}, Findings: []Finding{}}

	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc.Body))
	if err != nil {
		r.add(SeverityError, "unparseable", fmt.Sprintf("HTML could not be parsed: %v", err))
		r.score()
		return r
	}
	base, _ := url.Parse(pageURL)

	a.checkTitle(d, r)
	a.checkDescription(d, r)
	a.checkCanonical(d, base, r)
	a.checkRobots(d, r)
	a.checkHeadings(d, r)
	a.checkOpenGraph(d, r)
	a.checkStructuredData(d, r)
	a.checkLanguage(d, r)
	a.checkMainContent(doc.Body, base, r)
	a.checkImageAlts(d, r)

	r.score()
	return r
}

func (r *Report) add(s Severity, code, msg string) {
	r.Findings = append(r.Findings, Finding{Severity: s, Code: code, Message: msg})
}

// score is 100 minus 10 per error and 4 per warning, floored at zero.
func (r *Report) score() {
	s := 100 - 10*r.Count(SeverityError) - 4*r.Count(SeverityWarning)
	if s < 0 {
		s = 0
	}
	r.Score = s
}

func metaContent(d *goquery.Document, selector string) string {
	v, _ := d.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}

func (a *Auditor) checkTitle(d *goquery.Document, r *Report) {
	title := inventory.CollapseSpace(d.Find("head title").First().Text())
	r.Title = title
	n := utf8.RuneCountInString(title)
	switch {
	case n == 0:
		r.add(SeverityError, "title_missing", "Page has no <title>")
	case n < titleMin || n > titleMax:
		r.add(SeverityWarning, "title_length", fmt.Sprintf("Title is %d characters (recommended %d-%d)", n, titleMin, titleMax))
	}
}

func (a *Auditor) checkDescription(d *goquery.Document, r *Report) {
	desc := metaContent(d, `meta[name="description"]`)
	n := utf8.RuneCountInString(desc)
	switch {
	case n == 0:
		r.add(SeverityError, "description_missing", "Meta description is missing")
	case n > descriptionMax:
		r.add(SeverityWarning, "description_length", fmt.Sprintf("Meta description is %d characters (max %d)", n, descriptionMax))
	}
}

func (a *Auditor) checkCanonical(d *goquery.Document, base *url.URL, r *Report) {
	href, ok := d.Find(`link[rel="canonical"]`).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		r.add(SeverityWarning, "canonical_missing", "No canonical link")
		return
	}
	canon, err := url.Parse(href)
	if err != nil {
		r.add(SeverityError, "canonical_invalid", fmt.Sprintf("Canonical URL %q is invalid", href))
		return
	}
	if base != nil {
		canon = base.ResolveReference(canon)
	}
	if base == nil || base.Hostname() == "" {
		return
	}
	if registrable(canon.Hostname()) != registrable(base.Hostname()) {
		r.add(SeverityError, "canonical_offsite", fmt.Sprintf("Canonical points to another site: %s", canon.String()))
	}
}

// registrable returns the eTLD+1 of host, or host itself when it has none
// (IP addresses, localhost).
func registrable(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if net.ParseIP(host) != nil {
		return host
	}
	if dom, err := publicsuffix.Domain(host); err == nil {
		return dom
	}
	return host
}

func (a *Auditor) checkRobots(d *goquery.Document, r *Report) {
	robots := strings.ToLower(metaContent(d, `meta[name="robots"]`))
	if strings.Contains(robots, "noindex") {
		r.add(SeverityError, "noindex", "Page is marked noindex")
	}
}

func (a *Auditor) checkHeadings(d *goquery.Document, r *Report) {
	switch n := d.Find("h1").Length(); {
	case n == 0:
		r.add(SeverityError, "h1_missing", "Page has no <h1>")
	case n > 1:
		r.add(SeverityWarning, "h1_multiple", fmt.Sprintf("Page has %d <h1> elements", n))
	}
}

func (a *Auditor) checkOpenGraph(d *goquery.Document, r *Report) {
	if metaContent(d, `meta[property="og:title"]`) == "" {
		r.add(SeverityWarning, "og_title_missing", "og:title is missing")
	}
	if metaContent(d, `meta[property="og:image"]`) == "" {
		r.add(SeverityWarning, "og_image_missing", "og:image is missing")
	}
}

func (a *Auditor) checkStructuredData(d *goquery.Document, r *Report) {
	blocks := d.Find(`script[type="application/ld+json"]`)
	if blocks.Length() == 0 {
		r.add(SeverityWarning, "structured_data_missing", "No JSON-LD structured data")
		return
	}
	types := map[string]bool{}
	blocks.Each(func(i int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			r.add(SeverityError, "structured_data_invalid", fmt.Sprintf("JSON-LD block %d is not valid JSON", i+1))
			return
		}
		for _, t := range schemaTypes(gjson.Parse(raw)) {
			types[t] = true
		}
	})
	for t := range types {
		r.SchemaTypes = append(r.SchemaTypes, t)
	}
	sort.Strings(r.SchemaTypes)
	if len(r.SchemaTypes) > 0 {
		r.add(SeverityInfo, "structured_data", "Structured data types: "+strings.Join(r.SchemaTypes, ", "))
	}
}

// schemaTypes collects @type values from a JSON-LD node, an array of nodes,
// or an @graph container.
func schemaTypes(v gjson.Result) []string {
	var out []string
	if v.IsArray() {
		v.ForEach(func(_, item gjson.Result) bool {
			out = append(out, schemaTypes(item)...)
			return true
		})
		return out
	}
	t := v.Get("@type")
	if t.IsArray() {
		t.ForEach(func(_, item gjson.Result) bool {
			out = append(out, item.String())
			return true
		})
	} else if t.String() != "" {
		out = append(out, t.String())
	}
	if g := v.Get("@graph"); g.IsArray() {
		out = append(out, schemaTypes(g)...)
	}
	return out
}

func (a *Auditor) checkLanguage(d *goquery.Document, r *Report) {
	declared, _ := d.Find("html").First().Attr("lang")
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexAny(declared, "-_"); i > 0 {
		declared = declared[:i]
	}
	if declared == "" {
		r.add(SeverityWarning, "lang_missing", "<html> has no lang attribute")
	}

	body := d.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := inventory.CollapseSpace(body.Text())
	if utf8.RuneCountInString(text) < minDetectChars {
		return
	}
	lang, ok := a.detector.DetectLanguageOf(text)
	if !ok {
		return
	}
	detected := strings.ToLower(lang.IsoCode639_1().String())
	r.Language = detected
	if declared != "" && declared != detected {
		r.add(SeverityWarning, "lang_mismatch", fmt.Sprintf("lang=%q but content reads as %q", declared, detected))
	}
}

func (a *Auditor) checkMainContent(rawHTML string, base *url.URL, r *Report) {
	if base == nil {
		base = &url.URL{}
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(rawHTML), base)
	if err != nil {
		r.add(SeverityWarning, "thin_content", fmt.Sprintf("No main content could be identified: %v", err))
		return
	}
	text := ""
	if cd, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
		text = inventory.CollapseSpace(cd.Text())
	}
	if n := utf8.RuneCountInString(text); n < a.cfg.MinContentChars {
		r.add(SeverityWarning, "thin_content", fmt.Sprintf("Main content is %d characters (min %d)", n, a.cfg.MinContentChars))
	}
}

func (a *Auditor) checkImageAlts(d *goquery.Document, r *Report) {
	imgs := d.Find("img")
	total := imgs.Length()
	if total == 0 {
		return
	}
	withAlt := 0
	imgs.Each(func(_ int, s *goquery.Selection) {
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			withAlt++
		}
	})
	coverage := float64(withAlt) / float64(total)
	if coverage < a.cfg.MinAltCoverage {
		r.add(SeverityWarning, "image_alt_coverage", fmt.Sprintf("%d of %d images have alt text (%.0f%%)", withAlt, total, coverage*100))
	}
}
