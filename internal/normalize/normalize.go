// Package normalize prepares raw article text for mention detection: it
// strips boilerplate and markup, folds case and diacritics while keeping a
// map back to original offsets, detects state mentions and extracts the
// sentence around a span.
package normalize

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// hyphenVariants are treated as whitespace during folding so hyphenated
// names still respect word boundaries.
var hyphenVariants = map[rune]bool{
	'-': true, '‐': true, '‑': true, '‒': true, '–': true, '—': true, '―': true,
}

const softHyphen = '­'

// Folded is a lower-cased, accent-stripped view of a text plus the mapping
// from folded byte offsets back to the original bytes.
type Folded struct {
	Text   string
	starts []int // original byte offset of the rune behind each folded byte
	sizes  []int // byte length of that original rune
}

// Fold returns the folded form of text with its offset map.
func Fold(text string) *Folded {
	var b strings.Builder
	starts := make([]int, 0, len(text))
	sizes := make([]int, 0, len(text))

	for i, r := range text {
		size := utf8.RuneLen(r)
		for _, out := range foldRune(r) {
			n := utf8.RuneLen(out)
			b.WriteRune(out)
			for j := 0; j < n; j++ {
				starts = append(starts, i)
				sizes = append(sizes, size)
			}
		}
	}

	return &Folded{Text: b.String(), starts: starts, sizes: sizes}
}

// Span maps a byte range in the folded text back to original byte offsets.
// Out-of-range inputs are clamped.
func (f *Folded) Span(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(f.starts) {
		end = len(f.starts)
	}
	if start >= end {
		return 0, 0
	}
	return f.starts[start], f.starts[end-1] + f.sizes[end-1]
}

// FoldString returns the folded form of text without offset tracking,
// with whitespace collapsed. Used to build index keys.
func FoldString(text string) string {
	return strings.Join(strings.Fields(Fold(text).Text), " ")
}

func foldRune(r rune) []rune {
	if hyphenVariants[r] {
		return []rune{' '}
	}
	if r == softHyphen {
		return nil
	}

	out := make([]rune, 0, 2)
	for _, d := range norm.NFKD.String(string(r)) {
		if unicode.Is(unicode.Mn, d) {
			continue
		}
		out = append(out, unicode.ToLower(d))
	}
	return out
}

// Clean strips boilerplate lines and collapses whitespace.
// Prefixes are compared case-insensitively against each line start.
func Clean(raw string, boilerplatePrefixes []string) string {
	var lines []string
	for _, rawLine := range strings.Split(raw, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		skip := false
		for _, prefix := range boilerplatePrefixes {
			if strings.HasPrefix(lower, strings.ToLower(prefix)) {
				skip = true
				break
			}
		}
		if !skip {
			lines = append(lines, line)
		}
	}
	cleaned := strings.Join(lines, "\n")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// StripHTML extracts visible text from HTML markup, inserting line breaks at
// block boundaries so boilerplate stripping can still work per line.
func StripHTML(markup string) string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return markup
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6":
				buf.WriteString("\n")
			}
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.TrimSpace(buf.String())
}

// ufAbbrevRe matches any of the 27 codes at word boundaries, case-insensitive.
var ufAbbrevRe = func() *regexp.Regexp {
	codes := make([]string, 0, len(UFMetadata))
	for code := range UFMetadata {
		codes = append(codes, code)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(codes, "|") + `)\b`)
}()

// stateNameRe matches folded state names at word boundaries. Longer names
// come first so "mato grosso do sul" is not consumed as "mato grosso".
// Pará is excluded: folded it equals the preposition "para".
var stateNameRe = func() *regexp.Regexp {
	names := make([]string, 0, len(foldedStateNames))
	for name := range foldedStateNames {
		if name == "para" {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return regexp.MustCompile(`\b(` + strings.Join(names, "|") + `)\b`)
}()

// DetectUFs returns the set of state codes mentioned anywhere in the text,
// either as a two-letter abbreviation or as a full state name
// (diacritic-insensitive). The set is the document-level disambiguation
// context when a span has no local UF hint.
func DetectUFs(text string) map[string]bool {
	mentions := make(map[string]bool)

	for _, m := range ufAbbrevRe.FindAllString(text, -1) {
		mentions[strings.ToUpper(m)] = true
	}

	folded := FoldString(text)
	for _, m := range stateNameRe.FindAllString(folded, -1) {
		mentions[foldedStateNames[m]] = true
	}
	// Without the accent "pará" is just the preposition.
	if strings.Contains(strings.ToLower(text), "pará") {
		mentions["PA"] = true
	}

	return mentions
}

var sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

// Sentence returns the sentence containing the byte span [start, end).
// Offsets outside the text are clamped rather than rejected.
func Sentence(text string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if start > len(text) {
		start = len(text)
	}

	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		if loc[0] <= start && start < loc[1] {
			return strings.TrimSpace(text[loc[0]:loc[1]])
		}
	}
	return strings.TrimSpace(text)
}
