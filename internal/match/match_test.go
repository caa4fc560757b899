package match

import (
	"testing"

	"github.com/lucasvilar/garimpo/internal/model"
)

func findByMethod(spans []model.EntitySpan, method string) []model.EntitySpan {
	var out []model.EntitySpan
	for _, span := range spans {
		if span.Method == method {
			out = append(out, span)
		}
	}
	return out
}

func TestFindCityPatterns_CityUF(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		surface string
	}{
		{"hyphen", "A obra fica em Campinas-SP e segue.", "Campinas-SP"},
		{"slash", "A obra fica em Campinas/SP e segue.", "Campinas/SP"},
		{"spaced hyphen", "O evento ocorreu em Recife - PE ontem.", "Recife - PE"},
		{"multi word city", "Ontem choveu em São José dos Campos-SP durante o dia.", "São José dos Campos-SP"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := findByMethod(FindCityPatterns(tt.text), MethodCityUF)
			if len(spans) != 1 {
				t.Fatalf("expected 1 city-uf span, got %d: %v", len(spans), spans)
			}
			span := spans[0]
			if span.Text != tt.surface {
				t.Errorf("surface = %q, want %q", span.Text, tt.surface)
			}
			if got := tt.text[span.Start:span.End]; got != tt.surface {
				t.Errorf("offsets select %q, want %q", got, tt.surface)
			}
			if span.Label != model.LabelLocation {
				t.Errorf("label = %q, want LOCATION", span.Label)
			}
		})
	}
}

func TestFindCityPatterns_InvalidUFIgnored(t *testing.T) {
	spans := FindCityPatterns("O placar ficou Corinthians-XX no fim.")
	if len(spans) != 0 {
		t.Errorf("expected no spans for invalid UF, got %v", spans)
	}
}

func TestFindCityPatterns_PrefeitoDe(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		surface string
	}{
		{"simple", "O prefeito de Campinas anunciou obras.", "Campinas"},
		{"feminine", "A prefeita de Fortaleza visitou a escola.", "Fortaleza"},
		{"connectors kept", "O prefeito de São José dos Campos falou ontem.", "São José dos Campos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := findByMethod(FindCityPatterns(tt.text), MethodPrefeitoDe)
			if len(spans) != 1 {
				t.Fatalf("expected 1 prefeito-de span, got %d: %v", len(spans), spans)
			}
			if spans[0].Text != tt.surface {
				t.Errorf("surface = %q, want %q", spans[0].Text, tt.surface)
			}
			if got := tt.text[spans[0].Start:spans[0].End]; got != tt.surface {
				t.Errorf("offsets select %q, want %q", got, tt.surface)
			}
		})
	}
}

func TestFindCityPatterns_MunicipioDe(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		surface string
	}{
		{"accented", "O município de Sobral recebeu verba.", "Sobral"},
		{"unaccented", "O municipio de Sobral recebeu verba.", "Sobral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans := findByMethod(FindCityPatterns(tt.text), MethodMunicipioDe)
			if len(spans) != 1 {
				t.Fatalf("expected 1 municipio-de span, got %d: %v", len(spans), spans)
			}
			if spans[0].Text != tt.surface {
				t.Errorf("surface = %q, want %q", spans[0].Text, tt.surface)
			}
		})
	}
}

func TestFindCityPatterns_TrailingLowercaseTrimmed(t *testing.T) {
	spans := findByMethod(FindCityPatterns("O prefeito de Campinas anunciou ontem."), MethodPrefeitoDe)
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Text != "Campinas" {
		t.Errorf("lowercase continuation must be trimmed, got %q", spans[0].Text)
	}
}

func TestFindCityPatterns_OverlapKeepsLongest(t *testing.T) {
	// "prefeito de Campinas-SP": the city-uf span covers the same city and
	// carries the UF, so it must win over the bare prefeito-de span.
	spans := FindCityPatterns("O prefeito de Campinas-SP anunciou obras.")
	if len(spans) != 1 {
		t.Fatalf("expected 1 span after dedup, got %d: %v", len(spans), spans)
	}
	if spans[0].Method != MethodCityUF {
		t.Errorf("expected city-uf to win, got %s", spans[0].Method)
	}
}

func TestDedupeOverlaps(t *testing.T) {
	spans := []model.EntitySpan{
		{Text: "Campinas", Start: 10, End: 18},
		{Text: "Campinas-SP", Start: 10, End: 21},
		{Text: "Sobral", Start: 40, End: 46},
	}

	kept := DedupeOverlaps(spans)
	if len(kept) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(kept))
	}
	if kept[0].Text != "Campinas-SP" {
		t.Errorf("expected longest overlap to win, got %q", kept[0].Text)
	}
	if kept[1].Text != "Sobral" {
		t.Errorf("expected disjoint span kept, got %q", kept[1].Text)
	}
}

func TestDedupeOverlaps_Empty(t *testing.T) {
	if got := DedupeOverlaps(nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestSplitCityUF(t *testing.T) {
	tests := []struct {
		surface string
		city    string
		uf      string
	}{
		{"Campinas-SP", "Campinas", "SP"},
		{"Campinas/SP", "Campinas", "SP"},
		{"Recife - PE", "Recife", "PE"},
		{"Campinas-sp", "Campinas", "SP"},
		{"Campinas", "Campinas", ""},
		{"Porto-Alegre", "Porto-Alegre", ""},
		{"Campinas-XX", "Campinas-XX", ""},
	}

	for _, tt := range tests {
		t.Run(tt.surface, func(t *testing.T) {
			city, uf := SplitCityUF(tt.surface)
			if city != tt.city || uf != tt.uf {
				t.Errorf("SplitCityUF(%q) = (%q, %q), want (%q, %q)", tt.surface, city, uf, tt.city, tt.uf)
			}
		})
	}
}
