package model

import (
	"strings"
	"time"
)

// CityRecord is an immutable entry in the municipality catalog.
// IBGEID is the canonical identifier shared across catalog versions.
type CityRecord struct {
	IBGEID      string   `json:"ibge_id"`               // IBGE municipality code (unique key)
	Name        string   `json:"name"`                  // Official municipality name
	UF          string   `json:"uf"`                    // 2-letter state code
	State       string   `json:"state,omitempty"`       // Full state name
	Region      string   `json:"region,omitempty"`      // Macro-region (Norte, Sul, ...)
	AltNames    []string `json:"alt_names,omitempty"`   // Alternate spellings
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	Capital     bool     `json:"capital,omitempty"`
	SiafiID     string   `json:"siafi_id,omitempty"`
	DDD         string   `json:"ddd,omitempty"`
	Timezone    string   `json:"timezone,omitempty"`
	Mesoregion  string   `json:"mesoregion,omitempty"`
	Microregion string   `json:"microregion,omitempty"`
}

// Variants returns the name plus alternate spellings, skipping blanks.
func (r CityRecord) Variants() []string {
	variants := make([]string, 0, 1+len(r.AltNames))
	for _, name := range append([]string{r.Name}, r.AltNames...) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			variants = append(variants, trimmed)
		}
	}
	return variants
}

// CatalogMetadata accompanies a versioned catalog dataset.
type CatalogMetadata struct {
	Version       string    `json:"version"`        // Catalog version (v1, v2, ...)
	PrimarySource string    `json:"primary_source"` // Configured preferred provider
	Source        string    `json:"source"`         // Provider actually used (may differ after fallback)
	DownloadedAt  time.Time `json:"downloaded_at"`
	RecordCount   int       `json:"record_count"`
	Checksum      string    `json:"checksum"` // SHA-256 over the canonical record serialization
}

// Catalog is the on-disk dataset consumed by the gazetteer.
// Records are sorted by IBGEID so identical inputs produce identical bytes.
type Catalog struct {
	Metadata CatalogMetadata `json:"metadata"`
	Records  []CityRecord    `json:"records"`
}

// CityCandidate is one scored gazetteer candidate for a mention.
type CityCandidate struct {
	IBGEID string  `json:"ibge_id"`
	Name   string  `json:"name"`
	UF     string  `json:"uf"`
	Score  float64 `json:"score"`
}
