// Package catalog builds and loads the versioned municipality dataset the
// gazetteer depends on. Builds are deterministic: identical provider input
// produces byte-identical output and checksum.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lucasvilar/garimpo/internal/model"
)

var (
	// ErrProviderUnavailable marks a provider fetch or decode failure.
	// A build fails only when every provider returns it.
	ErrProviderUnavailable = errors.New("catalog provider unavailable")

	// ErrCatalogIntegrity marks a dataset that must not be published or
	// loaded: checksum mismatch, inconsistent count, or truncated content.
	ErrCatalogIntegrity = errors.New("catalog integrity violation")

	// ErrCatalogExists is returned when the target artifact already exists
	// and refresh was not requested.
	ErrCatalogExists = errors.New("catalog artifact already exists")
)

// Builder produces versioned catalog artifacts.
type Builder struct {
	client     *Client
	dataDir    string
	minRecords int
	log        *zap.Logger
}

// NewBuilder creates a Builder writing artifacts under dataDir. minRecords
// is the publication safeguard from configuration.
func NewBuilder(client *Client, dataDir string, minRecords int, logger *zap.Logger) *Builder {
	return &Builder{client: client, dataDir: dataDir, minRecords: minRecords, log: logger}
}

// Path returns the artifact location for a catalog version.
func Path(dataDir, version string) string {
	return filepath.Join(dataDir, fmt.Sprintf("municipios_br_%s.json", version))
}

// Build fetches, cleans and writes the catalog for the given version.
// The primary source is tried first; any provider failure falls through to
// the remaining sources. An existing artifact is never overwritten unless
// refresh is set.
func (b *Builder) Build(ctx context.Context, primarySource, version string, refresh bool) (*model.CatalogMetadata, error) {
	path := Path(b.dataDir, version)
	if _, err := os.Stat(path); err == nil && !refresh {
		return nil, fmt.Errorf("%w: %s (use refresh to overwrite)", ErrCatalogExists, path)
	}

	records, effectiveSource, err := b.fetchWithFallback(ctx, primarySource)
	if err != nil {
		return nil, err
	}

	records = cleanRecords(records)
	if len(records) < b.minRecords {
		return nil, fmt.Errorf("%w: got %d records, minimum is %d", ErrCatalogIntegrity, len(records), b.minRecords)
	}

	metadata := model.CatalogMetadata{
		Version:       version,
		PrimarySource: primarySource,
		Source:        effectiveSource,
		DownloadedAt:  time.Now().UTC().Truncate(time.Second),
		RecordCount:   len(records),
		Checksum:      Checksum(records),
	}

	if err := writeCatalog(path, &model.Catalog{Metadata: metadata, Records: records}); err != nil {
		return nil, err
	}

	b.log.Info("catalog written",
		zap.String("path", path),
		zap.String("source", effectiveSource),
		zap.Int("records", len(records)),
	)
	return &metadata, nil
}

func (b *Builder) fetchWithFallback(ctx context.Context, primary string) ([]model.CityRecord, string, error) {
	order := []string{primary}
	for source := range Providers {
		if source != primary {
			order = append(order, source)
		}
	}
	sort.Strings(order[1:]) // deterministic fallback order after the primary

	var failures []string
	for _, source := range order {
		records, err := b.client.Fetch(ctx, source)
		if err != nil {
			b.log.Warn("provider failed, trying next", zap.String("source", source), zap.Error(err))
			failures = append(failures, fmt.Sprintf("%s: %v", source, err))
			continue
		}
		b.log.Info("provider fetch succeeded", zap.String("source", source), zap.Int("records", len(records)))
		return records, source, nil
	}

	return nil, "", fmt.Errorf("%w: all sources failed (%v)", ErrProviderUnavailable, failures)
}

// cleanRecords drops entries missing the required fields, deduplicates by
// IBGE id (first seen wins) and sorts ascending by numeric id so repeated
// builds over identical input are byte-stable.
func cleanRecords(records []model.CityRecord) []model.CityRecord {
	seen := make(map[string]bool, len(records))
	cleaned := make([]model.CityRecord, 0, len(records))
	for _, record := range records {
		if record.IBGEID == "" || record.Name == "" {
			continue
		}
		if seen[record.IBGEID] {
			continue
		}
		seen[record.IBGEID] = true
		cleaned = append(cleaned, record)
	}

	sort.SliceStable(cleaned, func(i, j int) bool {
		a, errA := strconv.ParseInt(cleaned[i].IBGEID, 10, 64)
		b, errB := strconv.ParseInt(cleaned[j].IBGEID, 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return cleaned[i].IBGEID < cleaned[j].IBGEID
	})
	return cleaned
}

// Checksum computes the SHA-256 of the canonical record serialization.
func Checksum(records []model.CityRecord) string {
	serialized, err := json.Marshal(records)
	if err != nil {
		// CityRecord contains only marshalable fields.
		panic(fmt.Sprintf("serialize records: %v", err))
	}
	sum := sha256.Sum256(serialized)
	return hex.EncodeToString(sum[:])
}

func writeCatalog(path string, catalog *model.Catalog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	data, err := json.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize catalog: %w", err)
	}
	data = append(data, '\n')

	// Write to a temp file first so a failed write never leaves a partial
	// artifact behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("publish catalog: %w", err)
	}
	return nil
}

// Load reads a catalog artifact and verifies its integrity: the stored
// record count and checksum must match the actual content, and the count
// must meet minRecords. A failing catalog is never returned.
func Load(path string, minRecords int) (*model.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog model.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	if catalog.Metadata.RecordCount != len(catalog.Records) {
		return nil, fmt.Errorf("%w: metadata reports %d records, file has %d",
			ErrCatalogIntegrity, catalog.Metadata.RecordCount, len(catalog.Records))
	}
	if got := Checksum(catalog.Records); got != catalog.Metadata.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch (stored %s, computed %s)",
			ErrCatalogIntegrity, catalog.Metadata.Checksum, got)
	}
	if len(catalog.Records) < minRecords {
		return nil, fmt.Errorf("%w: %d records, minimum is %d",
			ErrCatalogIntegrity, len(catalog.Records), minRecords)
	}

	return &catalog, nil
}
