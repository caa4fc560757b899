package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lucasvilar/garimpo/internal/catalog"
	"github.com/lucasvilar/garimpo/internal/gazetteer"
	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/ner"
	"github.com/lucasvilar/garimpo/internal/resolve"
	"github.com/lucasvilar/garimpo/internal/store"
	"github.com/lucasvilar/garimpo/internal/worker"
)

var (
	extractCatalogPath string
	extractBatchSize   int
	extractWorkers     int
	extractDryRun      bool
	extractOutput      string
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <articles.ndjson>",
	Short: "Resolve city and person mentions in a batch of articles",
	Long: `Resolve city and person mentions in a batch of news articles.

The input file holds one JSON article per line with "url", "title" and
"body" fields. Lines starting with # are ignored and duplicate URLs are
collapsed. Each article is cleaned, matched against journalistic city
patterns and (when an NER provider is configured) an entity engine, and
every mention is resolved against the municipality catalog.

With --dry-run nothing is persisted; the run only reports what it would
have written.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		applyExtractFlags(cfg, cmd)

		logger := newLogger()
		defer func() { _ = logger.Sync() }()

		catalogPath := extractCatalogPath
		if catalogPath == "" {
			catalogPath = catalog.Path(cfg.Catalog.DataDir, cfg.Catalog.Version)
		}
		cat, err := catalog.Load(catalogPath, cfg.Catalog.MinRecords)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		gaz := gazetteer.FromCatalog(cat)
		logger.Info("gazetteer ready",
			zap.String("catalog", cat.Metadata.Version),
			zap.Int("cities", gaz.Len()),
		)

		nerCfg := ner.ConfigFromModel(cfg.NER)
		if nerCfg.APIKey == "" {
			nerCfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		nerEngine, err := ner.NewEngine(nerCfg)
		if err != nil {
			return fmt.Errorf("configure NER engine: %w", err)
		}
		if nerEngine == nil {
			logger.Info("no NER provider configured, using pattern matching only")
		}

		docs, err := worker.ReadDocumentsFromFile(args[0])
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no articles found in %s", args[0])
		}

		repo := store.NewMemoryNewsRepository()
		repo.Add(docs...)
		writer := store.NewMemoryResultWriter()

		engine := resolve.New(gaz, nerEngine, repo, writer, resolve.Options{
			NERVersion:          cfg.NER.Version,
			BatchSize:           cfg.Pipeline.BatchSize,
			Workers:             cfg.Concurrency.Workers,
			DryRun:              cfg.Pipeline.DryRun,
			BoilerplatePrefixes: cfg.Normalizer.BoilerplatePrefixes,
		}, logger)

		batch, err := engine.ProcessBatch(cmd.Context())
		if err != nil {
			return err
		}

		if extractOutput != "" {
			if err := writeOccurrences(extractOutput, writer.CityOccurrences(), writer.PersonOccurrences()); err != nil {
				return err
			}
			fmt.Printf("Occurrences written to %s\n", extractOutput)
		}

		printBatchResult(batch)
		if len(batch.Errors) > 0 {
			return fmt.Errorf("%d article(s) failed", len(batch.Errors))
		}
		return nil
	},
}

// applyExtractFlags overlays explicitly-set flags on the loaded config.
func applyExtractFlags(cfg *model.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("batch-size") {
		cfg.Pipeline.BatchSize = extractBatchSize
	}
	if cmd.Flags().Changed("workers") {
		cfg.Concurrency.Workers = extractWorkers
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.Pipeline.DryRun = extractDryRun
	}
}

// occurrenceDump is the serialized result of an extraction run.
type occurrenceDump struct {
	Cities  []model.CityOccurrence   `json:"cities"`
	Persons []model.PersonOccurrence `json:"persons"`
}

func writeOccurrences(path string, cities []model.CityOccurrence, persons []model.PersonOccurrence) error {
	data, err := json.MarshalIndent(occurrenceDump{Cities: cities, Persons: persons}, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize occurrences: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write occurrences: %w", err)
	}
	return nil
}

func printBatchResult(batch model.BatchResult) {
	fmt.Println()
	if batch.DryRun {
		fmt.Println("Dry run (nothing persisted)")
	}
	fmt.Printf("Articles processed: %d\n", batch.Processed)
	if batch.SkippedEmpty > 0 {
		fmt.Printf("Skipped (empty):    %d\n", batch.SkippedEmpty)
	}
	fmt.Printf("Mentions resolved:  %d\n", batch.Resolved)
	fmt.Printf("Ambiguous:          %d\n", batch.Ambiguous)
	fmt.Printf("Foreign:            %d\n", batch.Foreign)
	for _, failure := range batch.Errors {
		fmt.Fprintf(os.Stderr, "error: %s: %s\n", failure.URL, failure.Message)
	}
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractCatalogPath, "catalog", "", "catalog artifact path (default: <data-dir>/municipios_br_<version>.json)")
	extractCmd.Flags().IntVar(&extractBatchSize, "batch-size", 500, "articles per batch")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 4, "concurrent workers")
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "resolve without persisting")
	extractCmd.Flags().StringVar(&extractOutput, "output", "", "write occurrences to a JSON file")
}
