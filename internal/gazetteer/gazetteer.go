// Package gazetteer holds the in-memory municipality lookup. It is built
// once from a catalog and read-only afterwards, so a single instance is
// safely shared across concurrent resolution calls.
package gazetteer

import (
	"sort"
	"strings"

	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/normalize"
)

// Gazetteer indexes city records by their folded name and alternate names.
type Gazetteer struct {
	version string
	byName  map[string][]model.CityRecord
	count   int
}

// New builds a gazetteer from catalog records. The version string travels
// with every occurrence produced against this gazetteer.
func New(records []model.CityRecord, version string) *Gazetteer {
	g := &Gazetteer{
		version: version,
		byName:  make(map[string][]model.CityRecord, len(records)),
		count:   len(records),
	}

	for _, record := range records {
		for _, variant := range record.Variants() {
			key := normalize.FoldString(variant)
			if key == "" {
				continue
			}
			g.byName[key] = append(g.byName[key], record)
		}
	}

	// Stable candidate order: capitals first, then ascending IBGE id.
	for key := range g.byName {
		candidates := g.byName[key]
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Capital != candidates[j].Capital {
				return candidates[i].Capital
			}
			return candidates[i].IBGEID < candidates[j].IBGEID
		})
	}

	return g
}

// FromCatalog builds a gazetteer from a loaded catalog, taking the version
// from its metadata.
func FromCatalog(catalog *model.Catalog) *Gazetteer {
	return New(catalog.Records, catalog.Metadata.Version)
}

// Version returns the catalog version backing this gazetteer.
func (g *Gazetteer) Version() string { return g.version }

// Len returns the number of records indexed.
func (g *Gazetteer) Len() int { return g.count }

// Lookup returns candidate records for a surface name. When ufHint is given
// the candidates are filtered to that state first; an empty filtered set
// falls back to the full candidate list, since the hint itself may be wrong.
func (g *Gazetteer) Lookup(name, ufHint string) []model.CityRecord {
	key := normalize.FoldString(name)
	if key == "" {
		return nil
	}

	candidates := g.byName[key]
	if len(candidates) == 0 || ufHint == "" {
		return cloneRecords(candidates)
	}

	uf := strings.ToUpper(ufHint)
	var filtered []model.CityRecord
	for _, candidate := range candidates {
		if strings.ToUpper(candidate.UF) == uf {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		return cloneRecords(candidates)
	}
	return filtered
}

func cloneRecords(records []model.CityRecord) []model.CityRecord {
	if records == nil {
		return nil
	}
	out := make([]model.CityRecord, len(records))
	copy(out, records)
	return out
}
