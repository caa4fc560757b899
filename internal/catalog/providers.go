package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/lucasvilar/garimpo/internal/cache"
	"github.com/lucasvilar/garimpo/internal/model"
	"github.com/lucasvilar/garimpo/internal/normalize"
	"github.com/lucasvilar/garimpo/internal/util"
	"github.com/lucasvilar/garimpo/internal/worker"
)

// Provider describes a municipality data source.
type Provider struct {
	Name string
	URL  string
}

// Providers are the known municipality datasets, keyed by source id.
var Providers = map[string]Provider{
	"ibge": {
		Name: "IBGE Localidades API",
		URL:  "https://servicodados.ibge.gov.br/api/v1/localidades/municipios",
	},
	"brasilapi": {
		Name: "BrasilAPI",
		URL:  "https://brasilapi.com.br/api/ibge/municipios/v1",
	},
}

// Client fetches and normalizes provider payloads. Requests are rate-limited
// per host and responses can be served from cache.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	store      cache.Cache // nil disables caching
	cacheTTL   time.Duration
	log        *zap.Logger
}

// NewClient builds a provider client from configuration. store may be nil.
func NewClient(cfg *model.Config, store cache.Cache, logger *zap.Logger) *Client {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, ""),
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: transport,
		},
		userAgent: cfg.HTTP.UserAgent,
		maxBytes:  cfg.HTTP.MaxBodyBytes,
		limiter:   worker.NewLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		store:     store,
		cacheTTL:  cfg.Cache.DiskTTL,
		log:       logger,
	}
}

// Fetch downloads and normalizes the catalog from the given source id.
func (c *Client) Fetch(ctx context.Context, source string) ([]model.CityRecord, error) {
	provider, ok := Providers[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrProviderUnavailable, source)
	}

	body, err := c.fetchRaw(ctx, provider)
	if err != nil {
		return nil, err
	}

	switch source {
	case "ibge":
		return normalizeIBGE(provider, body)
	case "brasilapi":
		return normalizeBrasilAPI(provider, body)
	default:
		return nil, fmt.Errorf("%w: no normalizer for source %q", ErrProviderUnavailable, source)
	}
}

func (c *Client) fetchRaw(ctx context.Context, provider Provider) ([]byte, error) {
	key := cache.Key(provider.URL)
	if c.store != nil {
		if body, found := c.store.Get(key); found {
			c.log.Debug("provider payload served from cache", zap.String("provider", provider.Name))
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx, provider.URL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, provider.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrProviderUnavailable, provider.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s response: %v", ErrProviderUnavailable, provider.Name, err)
	}

	if c.store != nil {
		if err := c.store.Set(key, body, c.cacheTTL); err != nil {
			c.log.Warn("cache provider payload", zap.Error(err))
		}
	}
	return body, nil
}

// flex accepts both JSON strings and numbers, keeping the textual form.
// Provider payloads are inconsistent about numeric fields.
type flex string

func (f *flex) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flex(n.String())
	return nil
}

func (f flex) String() string { return string(f) }

func (f flex) Float64() (float64, error) { return strconv.ParseFloat(string(f), 64) }

// ibgeMunicipality mirrors the nested IBGE localidades payload.
type ibgeMunicipality struct {
	ID           flex   `json:"id"`
	Nome         string `json:"nome"`
	Microrregiao *struct {
		Nome        string `json:"nome"`
		Mesorregiao *struct {
			Nome string `json:"nome"`
			UF   *struct {
				Sigla  string `json:"sigla"`
				Nome   string `json:"nome"`
				Regiao *struct {
					Nome string `json:"nome"`
				} `json:"regiao"`
			} `json:"UF"`
		} `json:"mesorregiao"`
	} `json:"microrregiao"`
}

func normalizeIBGE(provider Provider, body []byte) ([]model.CityRecord, error) {
	var payload []ibgeMunicipality
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload could not be decoded: %v", ErrProviderUnavailable, provider.Name, err)
	}

	records := make([]model.CityRecord, 0, len(payload))
	for _, item := range payload {
		record := model.CityRecord{
			IBGEID: item.ID.String(),
			Name:   item.Nome,
		}
		if micro := item.Microrregiao; micro != nil {
			record.Microregion = micro.Nome
			if meso := micro.Mesorregiao; meso != nil {
				record.Mesoregion = meso.Nome
				if uf := meso.UF; uf != nil {
					record.UF = uf.Sigla
					record.State = uf.Nome
					if uf.Regiao != nil {
						record.Region = uf.Regiao.Nome
					}
				}
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// brasilAPIMunicipality mirrors the flat BrasilAPI payload.
type brasilAPIMunicipality struct {
	CodigoIBGE  flex   `json:"codigo_ibge"`
	Nome        string `json:"nome"`
	Estado      string `json:"estado"`
	Latitude    flex   `json:"latitude"`
	Longitude   flex   `json:"longitude"`
	Capital     bool   `json:"capital"`
	SiafiID     flex   `json:"siafi_id"`
	DDD         flex   `json:"ddd"`
	FusoHorario string `json:"fuso_horario"`
}

func normalizeBrasilAPI(provider Provider, body []byte) ([]model.CityRecord, error) {
	var payload []brasilAPIMunicipality
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s payload could not be decoded: %v", ErrProviderUnavailable, provider.Name, err)
	}

	records := make([]model.CityRecord, 0, len(payload))
	for _, item := range payload {
		record := model.CityRecord{
			IBGEID:   item.CodigoIBGE.String(),
			Name:     item.Nome,
			UF:       item.Estado,
			Capital:  item.Capital,
			SiafiID:  item.SiafiID.String(),
			DDD:      item.DDD.String(),
			Timezone: item.FusoHorario,
		}
		if info, ok := normalize.UFMetadata[item.Estado]; ok {
			record.State = info.Name
			record.Region = info.Region
		}
		if lat, err := item.Latitude.Float64(); err == nil {
			record.Latitude = &lat
		}
		if lon, err := item.Longitude.Float64(); err == nil {
			record.Longitude = &lon
		}
		records = append(records, record)
	}
	return records, nil
}
