// Package inventory holds the normalized content inventory extracted from a
// page, and the rules that decide what counts as page content.
package inventory

import (
	"fmt"
	"strings"
)

// IntroSection labels text that appears before the first heading.
const IntroSection = "(intro)"

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

type TextSection struct {
	Heading   string `json:"heading"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
}

// ContentInventory is built once per document and never mutated after the
// extractor returns it.
type ContentInventory struct {
	VideoIDs     []string      `json:"video_ids"`
	Images       []Image       `json:"images"`
	Headings     []Heading     `json:"headings"`
	WordCount    int           `json:"word_count"`
	TextSections []TextSection `json:"text_sections,omitempty"`
}

// Summary is the one-line count overview used for pages without a replacement.
func (c *ContentInventory) Summary() string {
	return fmt.Sprintf("%s, %s, %s, %s",
		plural(len(c.VideoIDs), "video"),
		plural(len(c.Images), "image"),
		plural(len(c.Headings), "heading"),
		plural(c.WordCount, "word"))
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// CountWords counts whitespace-delimited tokens.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// CollapseSpace trims s and folds every run of whitespace into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeHeading is the comparison key for headings: lower-cased with
// whitespace collapsed.
func NormalizeHeading(s string) string {
	return strings.ToLower(CollapseSpace(s))
}
