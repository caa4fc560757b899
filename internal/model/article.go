package model

import (
	"strings"
	"time"
)

// NewsDocument is an article pending city/person extraction.
type NewsDocument struct {
	URL         string    `json:"url"` // Stable article identifier
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at,omitempty"`
	Source      string    `json:"source,omitempty"` // Portal the article was collected from
}

// CombinedText returns the text analysed by the extraction pipeline.
func (d NewsDocument) CombinedText() string {
	parts := make([]string, 0, 2)
	for _, part := range []string{d.Title, d.Body} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n")
}

// SpanLabel classifies an entity span.
type SpanLabel string

const (
	LabelPerson   SpanLabel = "PERSON"
	LabelLocation SpanLabel = "LOCATION"
)

// EntitySpan is a text mention detected by the NER engine or a pattern rule.
// Start and End are byte offsets into the source text, Start < End.
type EntitySpan struct {
	Text       string    `json:"text"`
	Label      SpanLabel `json:"label"`
	Start      int       `json:"start"`
	End        int       `json:"end"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"` // "ner" or the pattern rule name
}

// Valid reports whether the span offsets are sane for a text of the given length.
func (s EntitySpan) Valid(textLen int) bool {
	return s.Start >= 0 && s.Start < s.End && s.End <= textLen
}

// OccurrenceStatus is the terminal resolution state of a city mention.
type OccurrenceStatus string

const (
	// StatusResolved means exactly one candidate survived disambiguation.
	StatusResolved OccurrenceStatus = "resolved"
	// StatusAmbiguous means two or more equally plausible candidates remain.
	StatusAmbiguous OccurrenceStatus = "ambiguous"
	// StatusForeign means the surface matched no cataloged Brazilian municipality.
	StatusForeign OccurrenceStatus = "foreign"
)

// CityOccurrence is the resolution result for one span in one article.
// Occurrences are keyed by (ArticleURL, Start, End) for idempotent upserts.
type CityOccurrence struct {
	ArticleURL   string           `json:"article_url"`
	Surface      string           `json:"surface"`
	Start        int              `json:"start"`
	End          int              `json:"end"`
	UFHint       string           `json:"uf_hint,omitempty"`
	Status       OccurrenceStatus `json:"status"`
	ResolvedCity string           `json:"resolved_city,omitempty"` // IBGE id when resolved
	Candidates   []CityCandidate  `json:"candidates,omitempty"`
	Confidence   float64          `json:"confidence"`
	Phrase       string           `json:"phrase,omitempty"` // Sentence surrounding the span
	Method       string           `json:"method"`
}

// PersonOccurrence is a person mention tied to its canonical record.
type PersonOccurrence struct {
	ArticleURL    string  `json:"article_url"`
	PersonID      string  `json:"person_id"`
	CanonicalName string  `json:"canonical_name"`
	Surface       string  `json:"surface"`
	Start         int     `json:"start"`
	End           int     `json:"end"`
	Phrase        string  `json:"phrase,omitempty"`
	Method        string  `json:"method"`
	Confidence    float64 `json:"confidence"`
}

// DocumentResult is the outcome of resolving a single article.
type DocumentResult struct {
	URL           string             `json:"url"`
	SkippedEmpty  bool               `json:"skipped_empty,omitempty"`
	Cities        []CityOccurrence   `json:"cities,omitempty"`
	Persons       []PersonOccurrence `json:"persons,omitempty"`
	ArticleCities []string           `json:"article_cities,omitempty"` // Aggregated resolved IBGE ids, first-mention order
}

// BatchError records a per-article failure inside a batch.
type BatchError struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// BatchResult summarizes a processed batch of articles.
type BatchResult struct {
	Processed    int          `json:"processed"`
	SkippedEmpty int          `json:"skipped_empty"`
	Resolved     int          `json:"resolved"`
	Ambiguous    int          `json:"ambiguous"`
	Foreign      int          `json:"foreign"`
	Errors       []BatchError `json:"errors,omitempty"`
	DryRun       bool         `json:"dry_run,omitempty"`
}
