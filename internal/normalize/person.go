package normalize

import (
	"regexp"
	"strings"
)

// PersonName is the canonical form of a person mention, used as an upsert key.
type PersonName struct {
	Canonical string
	Aliases   []string
}

var honorificRe = regexp.MustCompile(`(?i)\bdr\.?\b|\bdra\.?\b|\bdep\.?\b|\bdeputad[ao]\b|\bministr[ao]\b|\bpresidente\b|\bgovernador[ae]?\b|\bprefeit[ao]\b|\bvereador[ae]?\b|\bsenador[ae]?\b`)

var (
	exPrefixRe     = regexp.MustCompile(`(?i)^ex[\s-]+`)
	leadingJunkRe  = regexp.MustCompile(`^[^\p{L}\p{N}]+`)
	personSpacesRe = regexp.MustCompile(`\s+`)
	nameConnectors = map[string]bool{"da": true, "de": true, "dos": true, "das": true, "do": true, "e": true}
)

// CanonicalPersonName strips honorific titles, normalizes connectors and
// hyphenation, and title-cases the result. The original surface form is kept
// as an alias when it differs from the canonical name.
func CanonicalPersonName(surface string) PersonName {
	name := strings.TrimSpace(surface)
	name = honorificRe.ReplaceAllString(name, "")
	name = exPrefixRe.ReplaceAllString(name, "")
	name = leadingJunkRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(personSpacesRe.ReplaceAllString(name, " "))

	tokens := strings.Fields(name)
	for i, token := range tokens {
		tokens[i] = titlecaseWord(token)
	}
	canonical := strings.Join(tokens, " ")

	var aliases []string
	if trimmed := strings.TrimSpace(surface); canonical != "" && canonical != trimmed {
		aliases = append(aliases, trimmed)
	}
	return PersonName{Canonical: canonical, Aliases: aliases}
}

// titlecaseWord capitalizes a name token, lowercasing connector words and
// preserving short all-caps tokens (acronyms, party initials).
func titlecaseWord(word string) string {
	if word == "" {
		return word
	}
	lowered := strings.ToLower(word)
	if word == strings.ToUpper(word) && len(word) <= 3 && !nameConnectors[lowered] {
		return word
	}
	if nameConnectors[lowered] {
		return lowered
	}

	parts := strings.Split(word, "-")
	for i, part := range parts {
		parts[i] = capitalize(part)
	}
	return strings.Join(parts, "-")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(strings.ToLower(s))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
