package seo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/wpaudit/pkg/fetch"
)

var englishCopy = strings.Repeat("Our made to measure roller blinds are cut in our own workshop and fitted by a local team. "+
	"Every blind is finished with a chain or motorised control and comes with a five year guarantee. ", 6)

func page(head, body string) *fetch.Document {
	return &fetch.Document{
		URL:      "https://shop.example.co.uk/roller-blinds/",
		FinalURL: "https://shop.example.co.uk/roller-blinds/",
		Body:     "<html" + head + body + "</body></html>",
	}
}

func codes(r *Report) []string {
	var out []string
	for _, f := range r.Findings {
		out = append(out, f.Code)
	}
	return out
}

func TestCheckWellFormedPage(t *testing.T) {
	doc := page(` lang="en-GB"><head>
<title>Roller Blinds Made to Measure</title>
<meta name="description" content="Made to measure roller blinds, fitted locally.">
<link rel="canonical" href="https://www.example.co.uk/roller-blinds/">
<meta property="og:title" content="Roller Blinds">
<meta property="og:image" content="https://www.example.co.uk/og.jpg">
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Organization"},{"@type":["Product","Thing"]}]}</script>
</head><body>`, `<article><h1>Roller Blinds</h1><p>`+englishCopy+`</p><img src="/a.jpg" alt="Blind"></article>`)

	r := New(Config{}).Check(doc)

	got := codes(r)
	for _, c := range []string{"title_missing", "title_length", "description_missing", "canonical_missing",
		"canonical_offsite", "noindex", "h1_missing", "h1_multiple", "og_title_missing", "og_image_missing",
		"structured_data_missing", "structured_data_invalid", "lang_missing", "lang_mismatch", "image_alt_coverage"} {
		assert.NotContains(t, got, c)
	}
	assert.Equal(t, "Roller Blinds Made to Measure", r.Title)
	assert.Equal(t, []string{"Organization", "Product", "Thing"}, r.SchemaTypes)
	assert.Equal(t, "en", r.Language)
	assert.Contains(t, got, "structured_data")
}

func TestCheckProblemPage(t *testing.T) {
	doc := page(` lang="fr"><head>
<title>Blinds</title>
<meta name="robots" content="NOINDEX, follow">
<link rel="canonical" href="https://elsewhere.net/roller-blinds/">
<script type="application/ld+json">{"@type": "Product",</script>
</head><body>`, `<h1>One</h1><h1>Two</h1><p>`+englishCopy+`</p>
<img src="/a.jpg"><img src="/b.jpg" alt=""><img src="/c.jpg" alt="C">`)

	r := New(Config{}).Check(doc)

	got := codes(r)
	for _, c := range []string{"title_length", "description_missing", "canonical_offsite", "noindex", "h1_multiple",
		"og_title_missing", "og_image_missing", "structured_data_invalid", "lang_mismatch", "image_alt_coverage"} {
		assert.Contains(t, got, c)
	}
	assert.Empty(t, r.SchemaTypes)
	assert.Less(t, r.Score, 60)
}

func TestCheckEmptyPage(t *testing.T) {
	r := New(Config{}).Check(&fetch.Document{URL: "http://127.0.0.1:8080/x/", Body: ""})

	got := codes(r)
	assert.Contains(t, got, "title_missing")
	assert.Contains(t, got, "h1_missing")
	assert.Contains(t, got, "structured_data_missing")
	assert.Contains(t, got, "lang_missing")
	assert.Contains(t, got, "thin_content")
	assert.NotContains(t, got, "image_alt_coverage")
	assert.Empty(t, r.Language)
}

func TestScoreFloor(t *testing.T) {
	r := &Report{}
	r.add(SeverityError, "a", "")
	r.add(SeverityWarning, "b", "")
	r.add(SeverityInfo, "c", "")
	r.score()
	assert.Equal(t, 86, r.Score)

	for i := 0; i < 12; i++ {
		r.add(SeverityError, "x", "")
	}
	r.score()
	assert.Equal(t, 0, r.Score)
}

func TestRegistrable(t *testing.T) {
	assert.Equal(t, "example.co.uk", registrable("shop.example.co.uk"))
	assert.Equal(t, "example.com", registrable("WWW.Example.com."))
	assert.Equal(t, "127.0.0.1", registrable("127.0.0.1"))
}

func TestParseLanguagesFallsBack(t *testing.T) {
	require.Len(t, parseLanguages([]string{"en", "EN", "xx"}), 1)
	a := New(Config{Languages: []string{"en"}})
	assert.NotNil(t, a.detector)
}
