// Package extract builds content inventories from legacy WordPress HTML and
// from the source text of replacement pages.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

// videoPattern matches watch, embed and short-link player URLs anywhere in
// raw markup, including JSON-escaped slashes inside structured data.
var videoPattern = regexp.MustCompile(`(?:youtube(?:-nocookie)?\.com\\?/(?:watch\?v=|embed\\?/|v\\?/|shorts\\?/)|youtu\.be\\?/)([A-Za-z0-9_-]{11})`)

var zeroWidth = strings.NewReplacer("\u200b", "", "\ufeff", "", "\u200c", "", "\u200d", "")

type RemoteExtractor struct {
	rules inventory.Rules
}

func NewRemote(rules inventory.Rules) *RemoteExtractor {
	return &RemoteExtractor{rules: rules}
}

// Extract parses rawHTML into a ContentInventory. Missing blocks yield empty
// categories, never an error; the error return only covers reader failures.
func (e *RemoteExtractor) Extract(rawHTML string) (*inventory.ContentInventory, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	inv := &inventory.ContentInventory{
		VideoIDs: e.videos(rawHTML),
		Images:   e.images(doc),
		Headings: e.headings(doc),
	}

	if e.rules.NoiseSelector != "" {
		doc.Find(e.rules.NoiseSelector).Remove()
	}
	inv.WordCount = inventory.CountWords(e.bodyText(doc))
	inv.TextSections = e.sections(doc)
	return inv, nil
}

func (e *RemoteExtractor) videos(raw string) []string {
	var ids []string
	for _, m := range videoPattern.FindAllStringSubmatch(raw, -1) {
		ids = append(ids, m[1])
	}
	return filterVideos(ids, &e.rules)
}

// filterVideos dedupes in first-seen order and drops template players.
func filterVideos(ids []string, rules *inventory.Rules) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, id := range ids {
		if seen[id] || rules.IsTemplateVideo(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (e *RemoteExtractor) images(doc *goquery.Document) []inventory.Image {
	seen := make(map[string]bool)
	out := []inventory.Image{}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" || strings.HasPrefix(src, "data:") {
			for _, attr := range []string{"data-src", "data-lazy-src"} {
				if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
					src = v
					break
				}
			}
		}
		switch {
		case src == "", strings.HasPrefix(src, "data:"):
			return
		case e.rules.SkipImage(src):
			return
		case !e.rules.IsUpload(src):
			return
		case e.rules.IsTemplateImage(src):
			return
		case seen[src]:
			return
		}
		seen[src] = true
		out = append(out, inventory.Image{Src: src, Alt: inventory.CollapseSpace(s.AttrOr("alt", ""))})
	})
	return out
}

func (e *RemoteExtractor) headings(doc *goquery.Document) []inventory.Heading {
	var hs []inventory.Heading
	doc.Find("h1, h2, h3, h4").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(zeroWidth.Replace(textOf(s)))
		hs = append(hs, inventory.Heading{Level: headingLevel(goquery.NodeName(s)), Text: text})
	})
	return filterHeadings(hs, &e.rules)
}

// filterHeadings drops empty and template headings and dedupes
// case-insensitively, keeping the first casing seen.
func filterHeadings(hs []inventory.Heading, rules *inventory.Rules) []inventory.Heading {
	seen := make(map[string]bool)
	out := []inventory.Heading{}
	for _, h := range hs {
		if h.Text == "" || rules.IsTemplateHeading(h.Text) {
			continue
		}
		key := strings.ToLower(h.Text)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
	}
	return out
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 2
}

func (e *RemoteExtractor) blockSelectors() []string {
	var sels []string
	for _, s := range []string{e.rules.TextBlockSelector, e.rules.HeadingBlockSelector, e.rules.CalloutBlockSelector} {
		if s != "" {
			sels = append(sels, s)
		}
	}
	return sels
}

func (e *RemoteExtractor) bodyText(doc *goquery.Document) string {
	var parts []string
	for _, sel := range e.blockSelectors() {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := textOf(s); t != "" {
				parts = append(parts, t)
			}
		})
	}
	if len(parts) == 0 && e.rules.FallbackSelector != "" {
		// Non-builder pages: take the first semantic container.
		parts = append(parts, textOf(doc.Find(e.rules.FallbackSelector).First()))
	}
	return inventory.CollapseSpace(strings.Join(parts, " "))
}

func (e *RemoteExtractor) sections(doc *goquery.Document) []inventory.TextSection {
	sels := e.blockSelectors()
	if len(sels) == 0 {
		return nil
	}

	var (
		sections []inventory.TextSection
		label    = inventory.IntroSection
		buf      []string
	)
	flush := func() {
		text := inventory.CollapseSpace(strings.Join(buf, " "))
		buf = nil
		if text == "" && label == inventory.IntroSection {
			return
		}
		sections = append(sections, inventory.TextSection{
			Heading:   label,
			Text:      truncateRunes(text, e.rules.SectionTextLimit),
			WordCount: inventory.CountWords(text),
		})
	}

	doc.Find(strings.Join(sels, ", ")).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(zeroWidth.Replace(textOf(s)))
		if e.rules.HeadingBlockSelector != "" && s.Is(e.rules.HeadingBlockSelector) {
			if text == "" {
				return
			}
			flush()
			label = text
			return
		}
		if text != "" {
			buf = append(buf, text)
		}
	})
	flush()
	return sections
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// textOf joins every text node under s with spaces so adjacent block
// elements do not glue their words together.
func textOf(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return inventory.CollapseSpace(b.String())
}
