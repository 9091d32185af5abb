package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solar-estimate/db/clickhouse"
	"solar-estimate/decision/document"
	"solar-estimate/decision/estimation"
	"solar-estimate/decision/geo"
	qerrors "solar-estimate/pkg/errors"
)

type stubGeocoder struct{ err error }

func (g stubGeocoder) Resolve(_ context.Context, address string) (geo.Location, error) {
	if g.err != nil {
		return geo.Location{}, g.err
	}
	return geo.Location{
		Coordinates:      geo.Coordinates{Latitude: 37.77, Longitude: -122.42},
		FormattedAddress: address + ", USA",
	}, nil
}

type stubSolar struct{ err error }

func (s stubSolar) Potential(_ context.Context, _ geo.Coordinates) (*geo.SolarPotential, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &geo.SolarPotential{MaxArrayAreaM2: 100, MaxSunshineHoursPerYear: 1825, MaxArrayPanelsCount: 40}, nil
}

type stubStore struct {
	pingErr   error
	snapshots []*clickhouse.BenchmarkSnapshot
}

func (s *stubStore) Ping(context.Context) error { return s.pingErr }

func (s *stubStore) ListSnapshots(_ context.Context, region string) ([]*clickhouse.BenchmarkSnapshot, error) {
	var out []*clickhouse.BenchmarkSnapshot
	for _, snap := range s.snapshots {
		if region == "" || snap.Region == region {
			out = append(out, snap)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, engine *estimation.Engine, store SnapshotStore, cfg *Config) *httptest.Server {
	t.Helper()
	if engine == nil {
		engine = estimation.NewEngine(estimation.DefaultAssumptions()).
			WithGeocoder(stubGeocoder{}).
			WithSolarProvider(stubSolar{})
	}
	srv := NewServer(engine, store, document.Installer{Company: "Sunrise Solar"}, cfg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := newTestServer(t, nil, &stubStore{pingErr: errors.New("refused")}, nil)
	resp, err = http.Get(down.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestEstimate(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	resp := post(t, ts.URL+"/api/v1/estimate", map[string]any{
		"roof_area_sqft": 1000,
		"cost_per_watt":  3.5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody[map[string]map[string]any](t, resp)
	assert.Equal(t, "roof_area", body["summary"]["strategy"])
	assert.Equal(t, "22.86", body["summary"]["system_size_kw"])
	assert.Equal(t, "80010", body["summary"]["gross_cost"])
	assert.EqualValues(t, 57, body["summary"]["panel_count"])
}

func TestEstimate_FixedPercentage(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	resp := post(t, ts.URL+"/api/v1/estimate", map[string]any{
		"monthly_usage_kwh": 800,
		"financing":         "fixed_percentage",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[EstimateResponse](t, resp)
	assert.Equal(t, estimation.FinancingFixedPercentage, body.Summary.Financing)
	assert.InDelta(t, body.Result.GrossCost*0.015, body.Result.MonthlyPayment, 1e-9)
}

func TestEstimate_Errors(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"roof_area_sqft":`, http.StatusBadRequest},
		{"no sizing input", `{}`, http.StatusUnprocessableEntity},
		{"zero roof area", `{"roof_area_sqft": 0}`, http.StatusUnprocessableEntity},
		{"negative usage", `{"monthly_usage_kwh": -5}`, http.StatusUnprocessableEntity},
		{"bad financing", `{"monthly_usage_kwh": 800, "financing": "lease"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/v1/estimate", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeBody[errorBody](t, resp)
			assert.Equal(t, string(qerrors.CodeInvalidInput), body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestQuote(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	resp := post(t, ts.URL+"/api/v1/quote", estimation.QuoteRequest{Address: "1 Market St"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	q := decodeBody[estimation.Quote](t, resp)
	assert.NotEqual(t, uuid.Nil, q.ID)
	assert.Equal(t, "1 Market St, USA", q.FormattedAddress)
	assert.Equal(t, estimation.StrategyProvider, q.Result.Strategy)
	assert.Empty(t, q.Warnings)
}

func TestQuote_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		engine *estimation.Engine
		status int
		code   qerrors.Code
	}{
		{
			"address not found",
			estimation.NewEngine(estimation.DefaultAssumptions()).
				WithGeocoder(stubGeocoder{err: qerrors.NewAddressNotFound("x")}).
				WithSolarProvider(stubSolar{}),
			http.StatusNotFound, qerrors.CodeAddressNotFound,
		},
		{
			"no solar data",
			estimation.NewEngine(estimation.DefaultAssumptions()).
				WithGeocoder(stubGeocoder{}).
				WithSolarProvider(stubSolar{err: qerrors.NewNoSolarData(1, 2)}),
			http.StatusNotFound, qerrors.CodeNoSolarData,
		},
		{
			"missing credentials",
			estimation.NewEngine(estimation.DefaultAssumptions()),
			http.StatusServiceUnavailable, qerrors.CodeMissingCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.engine, nil, nil)
			resp := post(t, ts.URL+"/api/v1/quote", estimation.QuoteRequest{Address: "1 Market St"})
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, string(tt.code), decodeBody[errorBody](t, resp).Code)
		})
	}
}

func TestQuote_FallbackWithRoofArea(t *testing.T) {
	engine := estimation.NewEngine(estimation.DefaultAssumptions())
	ts := newTestServer(t, engine, nil, nil)

	roof := 800.0
	resp := post(t, ts.URL+"/api/v1/quote", estimation.QuoteRequest{Address: "1 Market St", RoofAreaSqFt: &roof})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	q := decodeBody[estimation.Quote](t, resp)
	assert.Equal(t, estimation.StrategyRoofArea, q.Result.Strategy)
	assert.Equal(t, 1, q.Fallbacks)
	assert.Len(t, q.Warnings, 1)
}

func TestQuoteDocument(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	tests := []struct {
		format      string
		contentType string
		prefix      string
	}{
		{"pdf", "application/pdf", "%PDF-"},
		{"markdown", "text/markdown; charset=utf-8", "## Residential Solar Quote"},
		{"html", "text/html; charset=utf-8", "<!DOCTYPE html>"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp := post(t, ts.URL+"/api/v1/quote/document?format="+tt.format, estimation.QuoteRequest{Address: "1 Market St"})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			assert.Contains(t, resp.Header.Get("Content-Disposition"), "solar-quote-")
			assert.NotEmpty(t, resp.Header.Get("X-Quote-ID"))

			var buf bytes.Buffer
			_, err := buf.ReadFrom(resp.Body)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(buf.String(), tt.prefix), buf.String()[:min(40, buf.Len())])
		})
	}

	resp := post(t, ts.URL+"/api/v1/quote/document?format=docx", estimation.QuoteRequest{Address: "1 Market St"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestOffset(t *testing.T) {
	ts := newTestServer(t, nil, nil, nil)

	resp := post(t, ts.URL+"/api/v1/offset", map[string]any{
		"target_kwh_month":      800,
		"daily_sunlight_hours":  5.0,
		"panel_output_fraction": 0.4,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 13, decodeBody[estimation.OffsetResult](t, resp).NeededPanels)

	resp = post(t, ts.URL+"/api/v1/offset", map[string]any{"target_kwh_month": 800, "daily_sunlight_hours": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestListSnapshots(t *testing.T) {
	resp, err := http.Get(newTestServer(t, nil, nil, nil).URL + "/api/v1/benchmarks/snapshots")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	store := &stubStore{snapshots: []*clickhouse.BenchmarkSnapshot{
		{ID: uuid.New(), Region: "CA", Alias: "default", Hash: strings.Repeat("a", 64), IsActive: true, FetchedAt: time.Now()},
		{ID: uuid.New(), Region: "US", Alias: "default", Hash: "short"},
	}}
	resp, err = http.Get(newTestServer(t, nil, store, nil).URL + "/api/v1/benchmarks/snapshots?region=CA")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list := decodeBody[[]SnapshotResponse](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "CA", list[0].Region)
	assert.True(t, list[0].IsActive)
	assert.Equal(t, strings.Repeat("a", 16)+"...", list[0].Hash)
}

func TestAPIKeyAndCORS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "secret"
	cfg.CORSOrigins = []string{"https://quotes.example.com"}
	ts := newTestServer(t, nil, nil, cfg)

	resp := post(t, ts.URL+"/api/v1/offset", map[string]any{"target_kwh_month": 800, "daily_sunlight_hours": 5})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/offset",
		strings.NewReader(`{"target_kwh_month": 800, "daily_sunlight_hours": 5}`))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret")
	req.Header.Set("Origin", "https://quotes.example.com")
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
	assert.Equal(t, "https://quotes.example.com", authed.Header.Get("Access-Control-Allow-Origin"))

	// health stays open
	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}
