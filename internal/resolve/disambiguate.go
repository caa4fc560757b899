package resolve

import (
	"strings"

	"github.com/lucasvilar/garimpo/internal/match"
	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/normalize"
)

// resolveSpan runs one span through the disambiguation state machine:
// detected -> disambiguating -> resolved | ambiguous | foreign.
func (e *Engine) resolveSpan(url, text string, span model.EntitySpan, docUFs map[string]bool) model.CityOccurrence {
	name, surfaceUF := match.SplitCityUF(span.Text)

	occ := model.CityOccurrence{
		ArticleURL: url,
		Surface:    span.Text,
		Start:      span.Start,
		End:        span.End,
		UFHint:     surfaceUF,
		Phrase:     normalize.Sentence(text, span.Start, span.End),
		Method:     span.Method,
	}

	candidates := e.gaz.Lookup(name, surfaceUF)
	if len(candidates) == 0 {
		occ.Status = model.StatusForeign
		occ.Confidence = 0
		return occ
	}

	// The surface-encoded UF is the strong disambiguation path. Without
	// one, state mentions across the document narrow the field.
	ufMatched := surfaceUF != "" && allInUF(candidates, surfaceUF)
	if len(candidates) > 1 && len(docUFs) > 0 {
		if filtered := filterByUFs(candidates, docUFs); len(filtered) > 0 {
			candidates = filtered
		}
	}

	if len(candidates) == 1 {
		occ.Status = model.StatusResolved
		occ.ResolvedCity = candidates[0].IBGEID
		occ.Confidence = confidenceBaseline
		if ufMatched {
			occ.Confidence = confidenceUFBoost
		}
		occ.Candidates = makeCandidates(candidates)
		return occ
	}

	occ.Status = model.StatusAmbiguous
	occ.Candidates = makeCandidates(candidates)
	occ.Confidence = confidenceBaseline / float64(len(candidates))
	return occ
}

// allInUF reports whether every candidate belongs to the given state, i.e.
// the gazetteer honored the UF filter instead of falling back.
func allInUF(candidates []model.CityRecord, uf string) bool {
	upper := strings.ToUpper(uf)
	for _, candidate := range candidates {
		if strings.ToUpper(candidate.UF) != upper {
			return false
		}
	}
	return true
}

func filterByUFs(candidates []model.CityRecord, ufs map[string]bool) []model.CityRecord {
	var filtered []model.CityRecord
	for _, candidate := range candidates {
		if ufs[strings.ToUpper(candidate.UF)] {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// makeCandidates converts records into scored candidates, splitting the
// weight evenly.
func makeCandidates(records []model.CityRecord) []model.CityCandidate {
	if len(records) == 0 {
		return nil
	}
	weight := 1.0 / float64(len(records))
	candidates := make([]model.CityCandidate, len(records))
	for i, record := range records {
		candidates[i] = model.CityCandidate{
			IBGEID: record.IBGEID,
			Name:   record.Name,
			UF:     record.UF,
			Score:  weight,
		}
	}
	return candidates
}
