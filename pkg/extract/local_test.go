package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

const constantsSource = `export const VIDEOS = {
  HERO: "AAAAAAAAAAA",
  MEASURE: 'CCCCCCCCCCC',
  TEMPLATE: "TPLTPLTPL01",
} as const;

export const VIDEO_COLLECTIONS = {
  INSTALL: [
    { id: VIDEOS.MEASURE, title: "How to measure [inside] mount" },
    { id: "DDDDDDDDDDD", title: "Fitting brackets" },
  ],
};
`

const pageSource = `import { VIDEOS, VIDEO_COLLECTIONS } from "@/lib/videos";

export default function Page() {
  return (
    <main>
      <h1 className="text-4xl">Roller Blinds</h1>
      <YouTubeEmbed videoId={VIDEOS.HERO} />
      <VideoGrid videos={VIDEO_COLLECTIONS.INSTALL} />
      <YouTubeEmbed videoId="EEEEEEEEEEE" />
      <YouTubeEmbed videoId={VIDEOS.TEMPLATE} />
      <SectionHeading level={3}>Our   Story</SectionHeading>
      <p>We started sewing curtains in {year} in a small shop.</p>
      <FeatureCard title="Made to Measure" />
      <Image src="https://old.example.com/wp-content/uploads/2020/01/blinds.jpg" alt="" />
      <Image src="/images/lazy.webp" alt="" />
      <Image src="/images/lazy.webp" alt="" />
      <h2>Get a free quote</h2>
    </main>
  );
}
`

func TestLocalExtract(t *testing.T) {
	inv := NewLocal(testRules(), constantsSource).Extract(pageSource)

	assert.Equal(t, []string{"AAAAAAAAAAA", "CCCCCCCCCCC", "DDDDDDDDDDD", "EEEEEEEEEEE"}, inv.VideoIDs)
	assert.Equal(t, []inventory.Image{
		{Src: "https://old.example.com/wp-content/uploads/2020/01/blinds.jpg"},
		{Src: "/images/lazy.webp"},
	}, inv.Images)
	assert.Equal(t, []inventory.Heading{
		{Level: 1, Text: "Roller Blinds"},
		{Level: 3, Text: "Our Story"},
		{Level: 2, Text: "Made to Measure"},
	}, inv.Headings)
	assert.Equal(t, 17, inv.WordCount)
	assert.Nil(t, inv.TextSections)
}

func TestLocalWithoutConstantsResolvesLiteralsOnly(t *testing.T) {
	inv := NewLocal(testRules(), "").Extract(pageSource)
	assert.Equal(t, []string{"EEEEEEEEEEE"}, inv.VideoIDs)
}

func TestLocalAliasConstant(t *testing.T) {
	constants := `export const VIDEOS = { HERO: "AAAAAAAAAAA", BANNER: VIDEOS.HERO };`
	inv := NewLocal(testRules(), constants).Extract(`<Player youtubeId={VIDEOS.BANNER} />`)
	assert.Equal(t, []string{"AAAAAAAAAAA"}, inv.VideoIDs)
}

func TestLocalObjectAndQuotedMembers(t *testing.T) {
	constants := `export const VIDEOS = {
  "HERO": "AAAAAAAAAAA",
  'FEATURE': { id: "BBBBBBBBBBB", title: "Feature" },
  GALLERY: { main: VIDEOS.HERO, extra: { id: 'CCCCCCCCCCC' } },
};`
	e := NewLocal(testRules(), constants)

	inv := e.Extract(`<Player youtubeId={VIDEOS.HERO} />`)
	assert.Equal(t, []string{"AAAAAAAAAAA"}, inv.VideoIDs)

	inv = e.Extract(`<Player youtubeId={VIDEOS.FEATURE} />`)
	assert.Equal(t, []string{"BBBBBBBBBBB"}, inv.VideoIDs)

	inv = e.Extract(`<Gallery videos={VIDEOS.GALLERY} />`)
	assert.Equal(t, []string{"AAAAAAAAAAA", "CCCCCCCCCCC"}, inv.VideoIDs)
}

func TestMatchSpan(t *testing.T) {
	src := `x = [ "a]", { b: [1, 2] } ] tail`
	open := 4
	end := matchSpan(src, open)
	require.Greater(t, end, 0)
	assert.Equal(t, `[ "a]", { b: [1, 2] } ]`, src[open:end])
	assert.Equal(t, -1, matchSpan(`[ unbalanced`, 0))
}

func TestConstantsLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videos.ts")
	require.NoError(t, os.WriteFile(path, []byte(constantsSource), 0o644))

	l := NewConstantsLoader()
	got, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, constantsSource, got)

	// Served from memory after the first read.
	require.NoError(t, os.Remove(path))
	got, err = l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, constantsSource, got)

	missing, err := l.Load(filepath.Join(dir, "missing.ts"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
