// Package store provides in-memory implementations of the resolution
// collaborators. They back tests and file-based CLI runs; swapping in a
// database-backed implementation touches nothing in the resolution core.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasvilar/garimpo/internal/model"
)

type articleState struct {
	doc              model.NewsDocument
	nerVersion       string
	gazetteerVersion string
	processedAt      time.Time
	lastError        string
}

// MemoryNewsRepository holds articles and their processing state. An article
// is pending while its recorded pipeline versions differ from the requested
// ones — the sole reprocessing trigger.
type MemoryNewsRepository struct {
	mu       sync.Mutex
	articles map[string]*articleState
	order    []string
}

// NewMemoryNewsRepository creates an empty repository.
func NewMemoryNewsRepository() *MemoryNewsRepository {
	return &MemoryNewsRepository{articles: make(map[string]*articleState)}
}

// Add registers articles for processing.
func (r *MemoryNewsRepository) Add(docs ...model.NewsDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range docs {
		if _, exists := r.articles[doc.URL]; !exists {
			r.order = append(r.order, doc.URL)
		}
		r.articles[doc.URL] = &articleState{doc: doc}
	}
}

// FetchPending returns up to batchSize articles whose recorded versions are
// stale relative to the requested ones, in insertion order.
func (r *MemoryNewsRepository) FetchPending(_ context.Context, batchSize int, nerVersion, gazetteerVersion string) ([]model.NewsDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []model.NewsDocument
	for _, url := range r.order {
		state := r.articles[url]
		if state.nerVersion == nerVersion && state.gazetteerVersion == gazetteerVersion {
			continue
		}
		pending = append(pending, state.doc)
		if batchSize > 0 && len(pending) >= batchSize {
			break
		}
	}
	return pending, nil
}

// MarkProcessed records the pipeline versions an article was processed with.
func (r *MemoryNewsRepository) MarkProcessed(_ context.Context, url, nerVersion, gazetteerVersion string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.articles[url]
	if !ok {
		return fmt.Errorf("unknown article: %s", url)
	}
	state.nerVersion = nerVersion
	state.gazetteerVersion = gazetteerVersion
	state.processedAt = at
	state.lastError = ""
	return nil
}

// MarkError records a processing failure for an article.
func (r *MemoryNewsRepository) MarkError(_ context.Context, url, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.articles[url]
	if !ok {
		return fmt.Errorf("unknown article: %s", url)
	}
	state.lastError = message
	return nil
}

// LastError returns the recorded failure message for an article, if any.
func (r *MemoryNewsRepository) LastError(url string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.articles[url]; ok {
		return state.lastError
	}
	return ""
}

type occurrenceKey struct {
	url        string
	start, end int
}

// MemoryResultWriter collects extraction results. City occurrences are
// upserted on (ArticleURL, Start, End) so reprocessing updates in place.
type MemoryResultWriter struct {
	mu            sync.Mutex
	personsByName map[string]string
	cities        map[occurrenceKey]model.CityOccurrence
	cityOrder     []occurrenceKey
	persons       []model.PersonOccurrence
	articleCities map[string][]string
}

// NewMemoryResultWriter creates an empty writer.
func NewMemoryResultWriter() *MemoryResultWriter {
	return &MemoryResultWriter{
		personsByName: make(map[string]string),
		cities:        make(map[occurrenceKey]model.CityOccurrence),
		articleCities: make(map[string][]string),
	}
}

// EnsurePerson returns the id for a canonical name, creating it on first use.
func (w *MemoryResultWriter) EnsurePerson(_ context.Context, canonicalName string, _ []string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if id, ok := w.personsByName[canonicalName]; ok {
		return id, nil
	}
	id := uuid.NewString()
	w.personsByName[canonicalName] = id
	return id, nil
}

// WritePersonOccurrence appends a person occurrence.
func (w *MemoryResultWriter) WritePersonOccurrence(_ context.Context, occ model.PersonOccurrence) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.persons = append(w.persons, occ)
	return nil
}

// WriteCityOccurrence upserts a city occurrence by its span key.
func (w *MemoryResultWriter) WriteCityOccurrence(_ context.Context, occ model.CityOccurrence) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	key := occurrenceKey{url: occ.ArticleURL, start: occ.Start, end: occ.End}
	if _, exists := w.cities[key]; !exists {
		w.cityOrder = append(w.cityOrder, key)
	}
	w.cities[key] = occ
	return nil
}

// UpdateArticleCities replaces the aggregated city list for an article.
func (w *MemoryResultWriter) UpdateArticleCities(_ context.Context, url string, cityIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.articleCities[url] = append([]string(nil), cityIDs...)
	return nil
}

// CityOccurrences returns the stored occurrences in insertion order.
func (w *MemoryResultWriter) CityOccurrences() []model.CityOccurrence {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]model.CityOccurrence, 0, len(w.cityOrder))
	for _, key := range w.cityOrder {
		out = append(out, w.cities[key])
	}
	return out
}

// PersonOccurrences returns the stored person occurrences.
func (w *MemoryResultWriter) PersonOccurrences() []model.PersonOccurrence {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.PersonOccurrence(nil), w.persons...)
}

// ArticleCities returns the aggregated city list for an article.
func (w *MemoryResultWriter) ArticleCities(url string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.articleCities[url]...)
}

// PersonCount returns the number of distinct canonical persons.
func (w *MemoryResultWriter) PersonCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.personsByName)
}
