// Package resolve merges NER and pattern-matched spans, disambiguates city
// mentions against the gazetteer and persists occurrences through injected
// collaborators. All I/O happens at the batch boundary; resolving a single
// document touches no network or storage beyond the collaborators it is
// handed.
package resolve

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lucasvilar/garimpo/internal/cache"
	"github.com/lucasvilar/garimpo/internal/gazetteer"
	"github.com/lucasvilar/garimpo/internal/match"
	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/ner"
	"github.com/lucasvilar/garimpo/internal/normalize"
	"github.com/lucasvilar/garimpo/internal/worker"
)

// NewsRepository is the external article store. Implementations decide what
// "pending" means: an article is pending when its recorded pipeline versions
// are stale relative to the requested ones.
type NewsRepository interface {
	FetchPending(ctx context.Context, batchSize int, nerVersion, gazetteerVersion string) ([]model.NewsDocument, error)
	MarkProcessed(ctx context.Context, url, nerVersion, gazetteerVersion string, at time.Time) error
	MarkError(ctx context.Context, url, message string) error
}

// ResultWriter persists extraction results. WriteCityOccurrence must upsert
// on (ArticleURL, Start, End) so reprocessing never duplicates rows.
type ResultWriter interface {
	EnsurePerson(ctx context.Context, canonicalName string, aliases []string) (string, error)
	WritePersonOccurrence(ctx context.Context, occ model.PersonOccurrence) error
	WriteCityOccurrence(ctx context.Context, occ model.CityOccurrence) error
	UpdateArticleCities(ctx context.Context, url string, cityIDs []string) error
}

// Options configures an Engine. Versions are passed explicitly so the core
// stays testable without ambient state.
type Options struct {
	NERVersion          string
	BatchSize           int
	Workers             int
	DryRun              bool
	BoilerplatePrefixes []string
}

// Confidence assignment: a lone candidate gets the baseline, raised when the
// surface itself carried the UF; ambiguity splits the baseline across the
// surviving candidates.
const (
	confidenceBaseline = 0.9
	confidenceUFBoost  = 0.95
)

// Engine resolves city and person mentions for batches of articles.
type Engine struct {
	gaz     *gazetteer.Gazetteer
	nerEng  ner.Engine // nil: pattern matching only
	repo    NewsRepository
	writer  ResultWriter
	opts    Options
	persons cache.Cache // canonical name -> person id memoization
	log     *zap.Logger
}

// New creates an Engine. nerEngine may be nil.
func New(gaz *gazetteer.Gazetteer, nerEngine ner.Engine, repo NewsRepository, writer ResultWriter, opts Options, logger *zap.Logger) *Engine {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Engine{
		gaz:     gaz,
		nerEng:  nerEngine,
		repo:    repo,
		writer:  writer,
		opts:    opts,
		persons: cache.NewMemoryCache(1*time.Hour, 10*time.Minute),
		log:     logger,
	}
}

// ProcessBatch fetches the next pending batch and resolves every article.
// A failing article is recorded and skipped, never aborts the batch. In dry
// run the full resolution logic runs but nothing is persisted or marked.
func (e *Engine) ProcessBatch(ctx context.Context) (model.BatchResult, error) {
	result := model.BatchResult{DryRun: e.opts.DryRun}

	docs, err := e.repo.FetchPending(ctx, e.opts.BatchSize, e.opts.NERVersion, e.gaz.Version())
	if err != nil {
		return result, fmt.Errorf("fetch pending: %w", err)
	}

	processor := worker.NewBatchProcessor(e, e.opts.Workers)
	for _, r := range processor.ProcessDocuments(ctx, docs) {
		if r.Error != nil {
			e.log.Error("article processing failed", zap.String("url", r.URL), zap.Error(r.Error))
			result.Errors = append(result.Errors, model.BatchError{URL: r.URL, Message: r.Error.Error()})
			if !e.opts.DryRun {
				if markErr := e.repo.MarkError(ctx, r.URL, r.Error.Error()); markErr != nil {
					e.log.Warn("mark error failed", zap.String("url", r.URL), zap.Error(markErr))
				}
			}
			continue
		}

		if r.Result.SkippedEmpty {
			result.SkippedEmpty++
		} else {
			result.Processed++
		}
		for _, occ := range r.Result.Cities {
			switch occ.Status {
			case model.StatusResolved:
				result.Resolved++
			case model.StatusAmbiguous:
				result.Ambiguous++
			case model.StatusForeign:
				result.Foreign++
			}
		}

		if !e.opts.DryRun {
			if err := e.repo.MarkProcessed(ctx, r.URL, e.opts.NERVersion, e.gaz.Version(), time.Now().UTC()); err != nil {
				e.log.Warn("mark processed failed", zap.String("url", r.URL), zap.Error(err))
			}
		}
	}

	return result, nil
}

// ProcessDocument fully resolves one article. Panics from collaborators are
// converted into errors so a malformed article cannot take the batch down.
func (e *Engine) ProcessDocument(ctx context.Context, doc model.NewsDocument) (result *model.DocumentResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic resolving %s: %v", doc.URL, r)
		}
	}()

	combined := doc.CombinedText()
	if combined == "" {
		return &model.DocumentResult{URL: doc.URL, SkippedEmpty: true}, nil
	}

	text := normalize.Clean(normalize.StripHTML(combined), e.opts.BoilerplatePrefixes)
	if text == "" {
		return &model.DocumentResult{URL: doc.URL, SkippedEmpty: true}, nil
	}

	docUFs := normalize.DetectUFs(text)

	nerSpans, err := e.analyzeNER(ctx, doc.URL, text)
	if err != nil {
		return nil, err
	}

	result = &model.DocumentResult{URL: doc.URL}

	if err := e.processPersons(ctx, doc.URL, text, nerSpans, result); err != nil {
		return nil, err
	}

	citySpans := mergeCitySpans(nerSpans, match.FindCityPatterns(text))
	for _, span := range citySpans {
		occ := e.resolveSpan(doc.URL, text, span, docUFs)
		result.Cities = append(result.Cities, occ)
		if !e.opts.DryRun {
			if err := e.writer.WriteCityOccurrence(ctx, occ); err != nil {
				return nil, fmt.Errorf("write city occurrence: %w", err)
			}
		}
	}

	result.ArticleCities = aggregateCities(result.Cities)
	if !e.opts.DryRun && len(result.ArticleCities) > 0 {
		if err := e.writer.UpdateArticleCities(ctx, doc.URL, result.ArticleCities); err != nil {
			return nil, fmt.Errorf("update article cities: %w", err)
		}
	}

	return result, nil
}

// analyzeNER runs the external engine and drops malformed spans with a
// warning; a broken offset from the engine is never fatal.
func (e *Engine) analyzeNER(ctx context.Context, url, text string) ([]model.EntitySpan, error) {
	if e.nerEng == nil {
		return nil, nil
	}

	spans, err := e.nerEng.Analyze(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ner analyze: %w", err)
	}

	valid := spans[:0]
	for _, span := range spans {
		if !span.Valid(len(text)) {
			e.log.Warn("discarding span with malformed offsets",
				zap.String("url", url),
				zap.String("surface", span.Text),
				zap.Int("start", span.Start),
				zap.Int("end", span.End),
			)
			continue
		}
		valid = append(valid, span)
	}
	return valid, nil
}

func (e *Engine) processPersons(ctx context.Context, url, text string, spans []model.EntitySpan, result *model.DocumentResult) error {
	for _, span := range spans {
		if span.Label != model.LabelPerson {
			continue
		}
		name := normalize.CanonicalPersonName(span.Text)
		if name.Canonical == "" {
			continue
		}

		var personID string
		if !e.opts.DryRun {
			key := cache.Key(name.Canonical)
			if cached, found := e.persons.Get(key); found {
				personID = string(cached)
			} else {
				id, err := e.writer.EnsurePerson(ctx, name.Canonical, name.Aliases)
				if err != nil {
					return fmt.Errorf("ensure person: %w", err)
				}
				personID = id
				_ = e.persons.Set(key, []byte(id), 0)
			}
		}

		occ := model.PersonOccurrence{
			ArticleURL:    url,
			PersonID:      personID,
			CanonicalName: name.Canonical,
			Surface:       span.Text,
			Start:         span.Start,
			End:           span.End,
			Phrase:        normalize.Sentence(text, span.Start, span.End),
			Method:        span.Method,
			Confidence:    span.Confidence,
		}
		result.Persons = append(result.Persons, occ)

		if !e.opts.DryRun {
			if err := e.writer.WritePersonOccurrence(ctx, occ); err != nil {
				return fmt.Errorf("write person occurrence: %w", err)
			}
		}
	}
	return nil
}

// mergeCitySpans combines NER LOCATION spans with pattern matches. On
// overlap, UF-qualified pattern matches win over anything else since they
// carry the strongest disambiguation signal; otherwise the longest match
// survives.
func mergeCitySpans(nerSpans, patternSpans []model.EntitySpan) []model.EntitySpan {
	combined := make([]model.EntitySpan, 0, len(nerSpans)+len(patternSpans))
	for _, span := range patternSpans {
		combined = append(combined, span)
	}
	for _, span := range nerSpans {
		if span.Label != model.LabelLocation {
			continue
		}
		overlapsUFPattern := false
		for _, pattern := range patternSpans {
			if pattern.Method == match.MethodCityUF && span.Start < pattern.End && pattern.Start < span.End {
				overlapsUFPattern = true
				break
			}
		}
		if !overlapsUFPattern {
			combined = append(combined, span)
		}
	}
	return match.DedupeOverlaps(combined)
}

// aggregateCities returns the resolved IBGE ids in first-mention order,
// deduplicated.
func aggregateCities(occurrences []model.CityOccurrence) []string {
	seen := make(map[string]bool)
	var cities []string
	for _, occ := range occurrences {
		if occ.Status != model.StatusResolved || occ.ResolvedCity == "" {
			continue
		}
		if !seen[occ.ResolvedCity] {
			seen[occ.ResolvedCity] = true
			cities = append(cities, occ.ResolvedCity)
		}
	}
	return cities
}
