package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lucasvilar/garimpo/internal/model"
)

const ibgePayload = `[
  {"id": 3550308, "nome": "São Paulo", "microrregiao": {"nome": "São Paulo", "mesorregiao": {"nome": "Metropolitana de São Paulo", "UF": {"sigla": "SP", "nome": "São Paulo", "regiao": {"nome": "Sudeste"}}}}},
  {"id": 2611606, "nome": "Recife", "microrregiao": {"nome": "Recife", "mesorregiao": {"nome": "Metropolitana de Recife", "UF": {"sigla": "PE", "nome": "Pernambuco", "regiao": {"nome": "Nordeste"}}}}},
  {"id": 1721000, "nome": "Palmas", "microrregiao": {"nome": "Porto Nacional", "mesorregiao": {"nome": "Oriental do Tocantins", "UF": {"sigla": "TO", "nome": "Tocantins", "regiao": {"nome": "Norte"}}}}}
]`

const brasilAPIPayload = `[
  {"codigo_ibge": "3550308", "nome": "São Paulo", "estado": "SP", "capital": true, "latitude": "-23.5329", "longitude": "-46.6395", "siafi_id": "7107", "ddd": "11", "fuso_horario": "America/Sao_Paulo"},
  {"codigo_ibge": "2611606", "nome": "Recife", "estado": "PE", "capital": true, "latitude": "-8.04666", "longitude": "-34.8771", "siafi_id": "2531", "ddd": "81", "fuso_horario": "America/Recife"}
]`

// withProviders points the package provider table at test servers and
// restores it afterwards.
func withProviders(t *testing.T, urls map[string]string) {
	t.Helper()
	original := Providers
	replaced := make(map[string]Provider, len(urls))
	for source, url := range urls {
		replaced[source] = Provider{Name: source, URL: url}
	}
	Providers = replaced
	t.Cleanup(func() { Providers = original })
}

func testBuilder(t *testing.T, dataDir string, minRecords int) *Builder {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimit.RequestsPerSecond = 1000
	client := NewClient(cfg, nil, zap.NewNop())
	return NewBuilder(client, dataDir, minRecords, zap.NewNop())
}

func jsonServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuild_FromIBGE(t *testing.T) {
	server := jsonServer(t, ibgePayload)
	withProviders(t, map[string]string{"ibge": server.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 2)

	metadata, err := builder.Build(context.Background(), "ibge", "v1", false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if metadata.Source != "ibge" || metadata.PrimarySource != "ibge" {
		t.Errorf("unexpected sources: %+v", metadata)
	}
	if metadata.RecordCount != 3 {
		t.Errorf("expected 3 records, got %d", metadata.RecordCount)
	}
	if metadata.Checksum == "" {
		t.Error("expected a checksum")
	}

	catalog, err := Load(Path(dir, "v1"), 2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// cleanRecords sorts ascending by numeric id.
	wantOrder := []string{"1721000", "2611606", "3550308"}
	for i, id := range wantOrder {
		if catalog.Records[i].IBGEID != id {
			t.Errorf("record %d = %s, want %s", i, catalog.Records[i].IBGEID, id)
		}
	}

	sp := catalog.Records[2]
	if sp.Name != "São Paulo" || sp.UF != "SP" || sp.State != "São Paulo" || sp.Region != "Sudeste" {
		t.Errorf("unexpected São Paulo record: %+v", sp)
	}
	if sp.Mesoregion == "" || sp.Microregion == "" {
		t.Errorf("expected meso/microregion enrichment: %+v", sp)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	server := jsonServer(t, ibgePayload)
	withProviders(t, map[string]string{"ibge": server.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 2)

	first, err := builder.Build(context.Background(), "ibge", "v1", false)
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	second, err := builder.Build(context.Background(), "ibge", "v1", true)
	if err != nil {
		t.Fatalf("second build failed: %v", err)
	}

	if first.Checksum != second.Checksum {
		t.Errorf("identical input must produce identical checksums: %s vs %s", first.Checksum, second.Checksum)
	}
}

func TestBuild_FallsBackToSecondary(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)
	fallback := jsonServer(t, brasilAPIPayload)
	withProviders(t, map[string]string{"ibge": broken.URL, "brasilapi": fallback.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 2)

	metadata, err := builder.Build(context.Background(), "ibge", "v1", false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if metadata.Source != "brasilapi" {
		t.Errorf("expected fallback source brasilapi, got %s", metadata.Source)
	}
	if metadata.PrimarySource != "ibge" {
		t.Errorf("primary source must record the configured provider, got %s", metadata.PrimarySource)
	}

	catalog, err := Load(Path(dir, "v1"), 2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	sp := catalog.Records[1]
	if sp.IBGEID != "3550308" || !sp.Capital || sp.DDD != "11" || sp.SiafiID != "7107" {
		t.Errorf("unexpected BrasilAPI record: %+v", sp)
	}
	if sp.State != "São Paulo" || sp.Region != "Sudeste" {
		t.Errorf("expected state metadata enrichment: %+v", sp)
	}
	if sp.Latitude == nil || *sp.Latitude != -23.5329 {
		t.Errorf("unexpected latitude: %v", sp.Latitude)
	}
}

func TestBuild_AllProvidersFail(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	t.Cleanup(broken.Close)
	withProviders(t, map[string]string{"ibge": broken.URL, "brasilapi": broken.URL})

	builder := testBuilder(t, t.TempDir(), 2)

	_, err := builder.Build(context.Background(), "ibge", "v1", false)
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestBuild_MinRecordsGuard(t *testing.T) {
	server := jsonServer(t, ibgePayload)
	withProviders(t, map[string]string{"ibge": server.URL})

	builder := testBuilder(t, t.TempDir(), 5000)

	_, err := builder.Build(context.Background(), "ibge", "v1", false)
	if !errors.Is(err, ErrCatalogIntegrity) {
		t.Errorf("expected ErrCatalogIntegrity for truncated catalog, got %v", err)
	}
}

func TestBuild_RefusesOverwrite(t *testing.T) {
	server := jsonServer(t, ibgePayload)
	withProviders(t, map[string]string{"ibge": server.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 2)

	if _, err := builder.Build(context.Background(), "ibge", "v1", false); err != nil {
		t.Fatalf("first build failed: %v", err)
	}

	_, err := builder.Build(context.Background(), "ibge", "v1", false)
	if !errors.Is(err, ErrCatalogExists) {
		t.Errorf("expected ErrCatalogExists, got %v", err)
	}
}

func TestBuild_DedupesRecords(t *testing.T) {
	payload := `[
	  {"id": "100", "nome": "Alfa"},
	  {"id": "100", "nome": "Alfa Duplicada"},
	  {"id": "", "nome": "Sem Id"},
	  {"id": "200", "nome": ""},
	  {"id": "300", "nome": "Beta"}
	]`
	server := jsonServer(t, payload)
	withProviders(t, map[string]string{"ibge": server.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 1)

	metadata, err := builder.Build(context.Background(), "ibge", "v1", false)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if metadata.RecordCount != 2 {
		t.Errorf("expected 2 records after cleaning, got %d", metadata.RecordCount)
	}

	catalog, err := Load(Path(dir, "v1"), 1)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if catalog.Records[0].Name != "Alfa" {
		t.Errorf("first seen must win on duplicate ids, got %q", catalog.Records[0].Name)
	}
}

func TestLoad_DetectsTampering(t *testing.T) {
	server := jsonServer(t, ibgePayload)
	withProviders(t, map[string]string{"ibge": server.URL})

	dir := t.TempDir()
	builder := testBuilder(t, dir, 2)
	if _, err := builder.Build(context.Background(), "ibge", "v1", false); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	path := Path(dir, "v1")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	idx := -1
	for i := range data {
		if data[i] == 'R' { // flip a byte inside "Recife"
			idx = i
			break
		}
	}
	if idx < 0 {
		t.Fatal("marker byte not found")
	}
	data[idx] = 'X'
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path, 2)
	if !errors.Is(err, ErrCatalogIntegrity) {
		t.Errorf("expected ErrCatalogIntegrity, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"), 1)
	if err == nil {
		t.Error("expected error for missing catalog")
	}
}

func TestPath(t *testing.T) {
	got := Path("data", "v2")
	want := filepath.Join("data", "municipios_br_v2.json")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
