// Package match detects city mentions through deterministic journalistic
// patterns, independent of any NER model. Offsets always point into the
// text the matcher was given so phrase extraction stays accurate.
package match

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/normalize"
)

// Pattern rule names recorded on spans.
const (
	MethodCityUF      = "pattern:city-uf"
	MethodPrefeitoDe  = "pattern:prefeito-de"
	MethodMunicipioDe = "pattern:municipio-de"
)

const patternConfidence = 0.9

var (
	// "Campinas-SP", "Campinas/SP". The two-letter tail is validated
	// against the 27 UF codes after the regex match.
	cityUFRe = regexp.MustCompile(`(\p{Lu}[\p{L}' .]{1,60}?)\s*[-/]\s*([A-Za-z]{2})\b`)

	// "prefeito de Campinas", "prefeita de São José dos Campos".
	prefeitoRe = regexp.MustCompile(`(?i)prefeit[ao]\s+de\s+(\p{Lu}[\p{L}' -]+)`)

	// "município de Campinas", accent-tolerant.
	municipioRe = regexp.MustCompile(`(?i)munic[ií]pio\s+de\s+(\p{Lu}[\p{L}' -]+)`)
)

var nameConnectors = map[string]bool{"da": true, "de": true, "dos": true, "das": true, "do": true, "e": true}

// FindCityPatterns scans text for city-mention patterns and returns LOCATION
// spans with byte offsets into text. Overlapping matches are deduplicated
// keeping the longest one.
func FindCityPatterns(text string) []model.EntitySpan {
	var spans []model.EntitySpan

	for _, loc := range cityUFRe.FindAllStringSubmatchIndex(text, -1) {
		uf := strings.ToUpper(text[loc[4]:loc[5]])
		if !normalize.ValidUF(uf) {
			continue
		}
		start, end := trimNameTail(text, loc[2], loc[3]), loc[5]
		if start >= loc[3] {
			// The capture held no proper noun, only sentence words.
			continue
		}
		spans = append(spans, model.EntitySpan{
			Text:       text[start:end],
			Label:      model.LabelLocation,
			Start:      start,
			End:        end,
			Confidence: patternConfidence,
			Method:     MethodCityUF,
		})
	}

	for _, rule := range []struct {
		re     *regexp.Regexp
		method string
	}{
		{prefeitoRe, MethodPrefeitoDe},
		{municipioRe, MethodMunicipioDe},
	} {
		for _, loc := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := trimName(text, loc[2], loc[3])
			if start >= end {
				continue
			}
			spans = append(spans, model.EntitySpan{
				Text:       text[start:end],
				Label:      model.LabelLocation,
				Start:      start,
				End:        end,
				Confidence: patternConfidence,
				Method:     rule.method,
			})
		}
	}

	return DedupeOverlaps(spans)
}

// trimName shrinks a captured proper-noun sequence: connectors only count
// when followed by another proper noun, and the run stops at the first plain
// lowercase word.
func trimName(text string, start, end int) (int, int) {
	captured := text[start:end]

	keptEnd := 0 // end offset (relative to start) of the last kept word
	pos := 0
	for pos < len(captured) {
		// Skip separators.
		for pos < len(captured) && (captured[pos] == ' ' || captured[pos] == '\t') {
			pos++
		}
		wordStart := pos
		for pos < len(captured) && captured[pos] != ' ' && captured[pos] != '\t' {
			pos++
		}
		if wordStart == pos {
			break
		}

		word := captured[wordStart:pos]
		lower := strings.ToLower(word)
		if nameConnectors[lower] {
			continue
		}
		if word != lower {
			keptEnd = pos
			continue
		}
		break
	}

	return start, start + keptEnd
}

// trimNameTail drops the sentence words the lazy name prefix picks up before
// a City-UF separator, keeping the trailing run of capitalized words plus
// interior connectors. Returns the new start offset.
func trimNameTail(text string, start, end int) int {
	captured := text[start:end]

	type word struct {
		offset int
		text   string
	}
	var words []word
	pos := 0
	for pos < len(captured) {
		for pos < len(captured) && (captured[pos] == ' ' || captured[pos] == '\t') {
			pos++
		}
		wordStart := pos
		for pos < len(captured) && captured[pos] != ' ' && captured[pos] != '\t' {
			pos++
		}
		if wordStart < pos {
			words = append(words, word{offset: wordStart, text: captured[wordStart:pos]})
		}
	}

	runStart := -1
	for i := len(words) - 1; i >= 0; i-- {
		lower := strings.ToLower(words[i].text)
		if nameConnectors[lower] {
			// Connectors only count when a capitalized word precedes them.
			continue
		}
		r, _ := utf8.DecodeRuneInString(words[i].text)
		if !unicode.IsUpper(r) {
			break
		}
		runStart = i
	}

	if runStart < 0 {
		return end
	}
	return start + words[runStart].offset
}

// DedupeOverlaps removes spans that overlap another span, keeping the
// longest match (ties broken by earliest start).
func DedupeOverlaps(spans []model.EntitySpan) []model.EntitySpan {
	if len(spans) <= 1 {
		return spans
	}

	ordered := make([]model.EntitySpan, len(spans))
	copy(ordered, spans)
	sort.SliceStable(ordered, func(i, j int) bool {
		li, lj := ordered[i].End-ordered[i].Start, ordered[j].End-ordered[j].Start
		if li != lj {
			return li > lj
		}
		return ordered[i].Start < ordered[j].Start
	})

	var kept []model.EntitySpan
	for _, span := range ordered {
		overlaps := false
		for _, existing := range kept {
			if span.Start < existing.End && existing.Start < span.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, span)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	return kept
}

// SplitCityUF extracts the bare city name and UF code from a surface form
// like "Campinas-SP" or "Campinas / SP". The UF is empty when the surface
// does not encode one.
func SplitCityUF(surface string) (string, string) {
	text := strings.TrimSpace(surface)
	for _, sep := range []string{"-", "/"} {
		idx := strings.LastIndex(text, sep)
		if idx < 0 {
			continue
		}
		tail := strings.TrimSpace(text[idx+1:])
		if len(tail) == 2 && normalize.ValidUF(strings.ToUpper(tail)) {
			return strings.TrimSpace(text[:idx]), strings.ToUpper(tail)
		}
	}
	return text, ""
}
