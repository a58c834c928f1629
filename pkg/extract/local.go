package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/sw33tLie/wpaudit/pkg/inventory"
)

const (
	idChars      = `[A-Za-z0-9_-]{11}`
	quoteChars   = "[\"'`]"
	maxRefDepth  = 4
	codeTokenSet = "{}=;()<>`"
)

var (
	idPattern       = regexp.MustCompile(`^` + idChars + `$`)
	collectionIDRef = regexp.MustCompile(`\bid\s*:\s*` + quoteChars + `(` + idChars + `)` + quoteChars)
	textNodePattern = regexp.MustCompile(`>([^<>]+)<`)
	hTagPattern     = regexp.MustCompile(`<h([1-6])\b[^>]*>([^<{]+)</h[1-6]>`)
	levelAttr       = regexp.MustCompile(`(?:level\s*=\s*\{?\s*["']?|as\s*=\s*["']h)([1-6])`)
)

// LocalExtractor infers an inventory from replacement page source text.
// These are best-effort regex heuristics, not a parser.
type LocalExtractor struct {
	rules     inventory.Rules
	constants string

	videoLiteral *regexp.Regexp
	nsRef        *regexp.Regexp
	srcAttr      *regexp.Regexp
	rootImage    *regexp.Regexp
	component    *regexp.Regexp
	headingProp  *regexp.Regexp
}

// NewLocal builds an extractor; constantsSource is the text of the sibling
// constants file used to resolve NAMESPACE.CONSTANT references.
func NewLocal(rules inventory.Rules, constantsSource string) *LocalExtractor {
	e := &LocalExtractor{rules: rules, constants: constantsSource}

	if len(rules.VideoProps) > 0 {
		e.videoLiteral = regexp.MustCompile(`\b(?:` + alternation(rules.VideoProps) + `)\s*[=:]\s*\{?\s*` + quoteChars + `(` + idChars + `)` + quoteChars)
	}
	if len(rules.ConstantNamespaces) > 0 {
		e.nsRef = regexp.MustCompile(`\b(` + alternation(rules.ConstantNamespaces) + `)\.([A-Za-z_][A-Za-z0-9_]*)\b`)
	}
	e.srcAttr = regexp.MustCompile(`\b(?:src|href)\s*=\s*\{?\s*` + quoteChars + "([^\"'`]+)" + quoteChars)
	if len(rules.ImageExtensions) > 0 {
		e.rootImage = regexp.MustCompile(`(?i)` + quoteChars + "(/[^\"'`\\s]+\\.(?:" + alternation(rules.ImageExtensions) + "))(?:\\?[^\"'`]*)?" + quoteChars)
	}
	if len(rules.HeadingComponents) > 0 {
		names := alternation(rules.HeadingComponents)
		e.component = regexp.MustCompile(`<(?:` + names + `)\b([^>]*)>([^<{]+)</(?:` + names + `)>`)
	}
	if len(rules.HeadingProps) > 0 {
		e.headingProp = regexp.MustCompile(`\b(?:` + alternation(rules.HeadingProps) + `)\s*=\s*\{?\s*["']([^"']+)["']`)
	}
	return e
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return strings.Join(quoted, "|")
}

type positioned struct {
	pos  int
	vals []string
}

func (e *LocalExtractor) Extract(source string) *inventory.ContentInventory {
	return &inventory.ContentInventory{
		VideoIDs:  e.videos(source),
		Images:    e.images(source),
		Headings:  e.headings(source),
		WordCount: e.wordCount(source),
	}
}

func (e *LocalExtractor) videos(source string) []string {
	var found []positioned
	if e.videoLiteral != nil {
		for _, m := range e.videoLiteral.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, positioned{pos: m[0], vals: []string{source[m[2]:m[3]]}})
		}
	}
	if e.nsRef != nil {
		for _, m := range e.nsRef.FindAllStringSubmatchIndex(source, -1) {
			ids := e.resolve(source[m[2]:m[3]], source[m[4]:m[5]], 0)
			if len(ids) > 0 {
				found = append(found, positioned{pos: m[0], vals: ids})
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var ids []string
	for _, f := range found {
		ids = append(ids, f.vals...)
	}
	return filterVideos(ids, &e.rules)
}

// resolve looks NAMESPACE.NAME up in the constants source. A string constant
// yields one id; an array or object constant yields every reference or id:
// literal inside its span, in order. Member names may be quoted.
func (e *LocalExtractor) resolve(namespace, name string, depth int) []string {
	if e.constants == "" || depth > maxRefDepth {
		return nil
	}

	scope := e.constants
	nsDecl := regexp.MustCompile(`\b` + regexp.QuoteMeta(namespace) + `\s*(?::[^=]*)?=\s*\{`)
	if loc := nsDecl.FindStringIndex(scope); loc != nil {
		if end := matchSpan(scope, loc[1]-1); end > 0 {
			scope = scope[loc[1]-1 : end]
		}
	}

	member := regexp.MustCompile(`(?:\b|["'])` + regexp.QuoteMeta(name) + `["']?\s*[:=]\s*`)
	loc := member.FindStringIndex(scope)
	if loc == nil {
		return nil
	}
	i := loc[1]
	if i >= len(scope) {
		return nil
	}

	switch scope[i] {
	case '"', '\'', '`':
		end := skipString(scope, i)
		if end < 0 {
			return nil
		}
		if lit := scope[i+1 : end]; idPattern.MatchString(lit) {
			return []string{lit}
		}
		return nil
	case '[', '{':
		end := matchSpan(scope, i)
		if end < 0 {
			return nil
		}
		return e.collection(scope[i:end], depth)
	default:
		// Alias of another constant.
		if e.nsRef != nil {
			if m := e.nsRef.FindStringSubmatchIndex(scope[i:]); m != nil && m[0] == 0 {
				return e.resolve(scope[i+m[2]:i+m[3]], scope[i+m[4]:i+m[5]], depth+1)
			}
		}
		return nil
	}
}

func (e *LocalExtractor) collection(span string, depth int) []string {
	var found []positioned
	for _, m := range collectionIDRef.FindAllStringSubmatchIndex(span, -1) {
		found = append(found, positioned{pos: m[0], vals: []string{span[m[2]:m[3]]}})
	}
	if e.videoLiteral != nil {
		for _, m := range e.videoLiteral.FindAllStringSubmatchIndex(span, -1) {
			found = append(found, positioned{pos: m[0], vals: []string{span[m[2]:m[3]]}})
		}
	}
	if e.nsRef != nil {
		for _, m := range e.nsRef.FindAllStringSubmatchIndex(span, -1) {
			if ids := e.resolve(span[m[2]:m[3]], span[m[4]:m[5]], depth+1); len(ids) > 0 {
				found = append(found, positioned{pos: m[0], vals: ids})
			}
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	var ids []string
	for _, f := range found {
		ids = append(ids, f.vals...)
	}
	return ids
}

func (e *LocalExtractor) images(source string) []inventory.Image {
	var found []positioned
	for _, m := range e.srcAttr.FindAllStringSubmatchIndex(source, -1) {
		src := source[m[2]:m[3]]
		if containsAny(strings.ToLower(src), e.rules.LocalImageHosts) {
			found = append(found, positioned{pos: m[0], vals: []string{src}})
		}
	}
	if e.rootImage != nil {
		for _, m := range e.rootImage.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, positioned{pos: m[0], vals: []string{source[m[2]:m[3]]}})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	seen := make(map[string]bool)
	out := []inventory.Image{}
	for _, f := range found {
		src := f.vals[0]
		if seen[src] {
			continue
		}
		seen[src] = true
		out = append(out, inventory.Image{Src: src})
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func (e *LocalExtractor) headings(source string) []inventory.Heading {
	type ph struct {
		pos int
		h   inventory.Heading
	}
	var found []ph
	for _, m := range hTagPattern.FindAllStringSubmatchIndex(source, -1) {
		level := int(source[m[2]] - '0')
		found = append(found, ph{m[0], inventory.Heading{Level: level, Text: inventory.CollapseSpace(source[m[4]:m[5]])}})
	}
	if e.component != nil {
		for _, m := range e.component.FindAllStringSubmatchIndex(source, -1) {
			level := 2
			if lm := levelAttr.FindStringSubmatch(source[m[2]:m[3]]); lm != nil {
				level = int(lm[1][0] - '0')
			}
			found = append(found, ph{m[0], inventory.Heading{Level: level, Text: inventory.CollapseSpace(source[m[4]:m[5]])}})
		}
	}
	if e.headingProp != nil {
		for _, m := range e.headingProp.FindAllStringSubmatchIndex(source, -1) {
			found = append(found, ph{m[0], inventory.Heading{Level: 2, Text: inventory.CollapseSpace(source[m[2]:m[3]])}})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	hs := make([]inventory.Heading, 0, len(found))
	for _, f := range found {
		hs = append(hs, f.h)
	}
	return filterHeadings(hs, &e.rules)
}

// wordCount sums tokens of >text< spans, skipping anything that looks like
// code. {"literal"} JSX expressions are not counted.
func (e *LocalExtractor) wordCount(source string) int {
	total := 0
	for _, m := range textNodePattern.FindAllStringSubmatch(source, -1) {
		for _, tok := range strings.Fields(m[1]) {
			if strings.ContainsAny(tok, codeTokenSet) {
				continue
			}
			total++
		}
	}
	return total
}
