package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lucasvilar/garimpo/internal/model"
)

// Resolver resolves a single article. One article is fully processed before
// a worker picks up the next.
type Resolver interface {
	ProcessDocument(ctx context.Context, doc model.NewsDocument) (*model.DocumentResult, error)
}

// ResolveJob resolves one article through the pipeline.
type ResolveJob struct {
	Document model.NewsDocument
	Resolver Resolver
}

// Execute executes the resolution job.
func (j *ResolveJob) Execute(ctx context.Context) Result {
	result, err := j.Resolver.ProcessDocument(ctx, j.Document)
	return &ResolveResult{
		URL:    j.Document.URL,
		Result: result,
		Error:  err,
	}
}

// ResolveResult is the outcome of one resolution job.
type ResolveResult struct {
	URL    string
	Result *model.DocumentResult
	Error  error
}

// GetError returns the error from the resolution result.
func (r *ResolveResult) GetError() error {
	return r.Error
}

// BatchProcessor resolves multiple articles concurrently. The gazetteer
// behind the resolver is read-only, so sharing one resolver across workers
// is safe.
type BatchProcessor struct {
	resolver    Resolver
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(resolver Resolver, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ProcessDocuments resolves the given articles across the worker pool.
func (b *BatchProcessor) ProcessDocuments(ctx context.Context, docs []model.NewsDocument) []*ResolveResult {
	if len(docs) == 0 {
		return []*ResolveResult{}
	}

	// All jobs are submitted up front, so the queue must hold the batch.
	pool := NewPoolWithQueue(b.concurrency, len(docs))
	pool.Start()

	for _, doc := range docs {
		pool.Submit(&ResolveJob{
			Document: doc,
			Resolver: b.resolver,
		})
	}

	results := pool.Wait()

	resolveResults := make([]*ResolveResult, len(results))
	for i, result := range results {
		resolveResults[i] = result.(*ResolveResult)
	}
	return resolveResults
}

// ReadDocumentsFromFile reads articles from an NDJSON file, one document per
// line. Empty lines and # comments are skipped; duplicate URLs keep the
// first occurrence.
func ReadDocumentsFromFile(filePath string) ([]model.NewsDocument, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var docs []model.NewsDocument
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var doc model.NewsDocument
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", lineNo, err)
		}
		if doc.URL == "" {
			return nil, fmt.Errorf("line %d: document without url", lineNo)
		}

		if !seen[doc.URL] {
			seen[doc.URL] = true
			docs = append(docs, doc)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	return docs, nil
}
