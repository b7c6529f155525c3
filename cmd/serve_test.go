package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/extractor"
	"github.com/verdantiq/esg-cli/internal/monitoring"
)

const sampleUpload = `Sustainability Report 2023

Scope 1 emissions: 15,000 tCO2e
Scope 2 emissions: 45,000 tCO2e
Energy consumption: 450,000 kWh
`

func newTestAPIServer(t *testing.T) *apiServer {
	t.Helper()
	cfg = &config.Config{
		Pipeline:   config.PipelineConfig{Stages: config.DefaultStages()},
		QA:         config.QAConfig{OutlierThreshold: 1.5, OutlierMinPopulation: 10},
		Carbon:     config.CarbonConfig{Industry: "Technology"},
		Monitoring: config.MonitoringConfig{MaxEvents: 100},
		Server:     config.ServerConfig{RatePerSecond: 1000, RateBurst: 1000},
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "api.db"),
		},
	}

	monitor := monitoring.NewMonitor(cfg.Monitoring)
	sampler := monitoring.NewSampler(cfg.Monitoring)
	monitor.AttachSampler(sampler)

	svc, err := extractor.NewService(cfg, monitor)
	require.NoError(t, err)

	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	return &apiServer{svc: svc, monitor: monitor, sampler: sampler, store: st}
}

func multipartUpload(t *testing.T, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestServeHealthEndpoint(t *testing.T) {
	api := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	// no samples collected yet
	assert.Equal(t, "unknown", body["status"])
}

func TestServeExtractAndRunsEndpoints(t *testing.T) {
	api := newTestAPIServer(t)
	router := api.routes()

	body, contentType := multipartUpload(t, "report.txt", sampleUpload)
	req := httptest.NewRequest(http.MethodPost, "/extract", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		RunID  string `json:"run_id"`
		Result struct {
			Success bool `json:"success"`
			Metrics []struct {
				Name string `json:"name"`
			} `json:"metrics"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.True(t, resp.Result.Success)
	assert.NotEmpty(t, resp.Result.Metrics)

	// the run is persisted with its result
	req = httptest.NewRequest(http.MethodGet, "/runs/"+resp.RunID, nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/runs", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var runs []json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	assert.Len(t, runs, 1)
}

func TestServeExtractRejectsMissingFile(t *testing.T) {
	api := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodPost, "/extract", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeRunNotFound(t *testing.T) {
	api := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/no-such-run", nil)
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServeFrameworksEndpoint(t *testing.T) {
	api := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/frameworks", nil)
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"gri"`)
	assert.Contains(t, rr.Body.String(), `"scoring"`)
}

func TestServeCorrectionEndpoints(t *testing.T) {
	api := newTestAPIServer(t)
	router := api.routes()

	payload := `{"original":{"id":"scope-1-emissions-0","name":"Scope 1 emissions"},"corrected":{"id":"scope-1-emissions-0","name":"Scope 1 emissions","value":16000},"reason":"restated figure","rule_ids":["range"]}`
	req := httptest.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics/qa", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "scope-1-emissions-0")

	req = httptest.NewRequest(http.MethodPost, "/corrections", bytes.NewBufferString(`{"reason":"missing original"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeCarbonMethodsEndpoint(t *testing.T) {
	api := newTestAPIServer(t)

	req := httptest.NewRequest(http.MethodGet, "/carbon/methods", nil)
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var methods []struct {
		ID      string             `json:"id"`
		Name    string             `json:"name"`
		Factors map[string]float64 `json:"factors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &methods))
	require.Len(t, methods, 2)
	assert.Equal(t, "ghg-protocol", methods[0].ID)
	assert.Equal(t, "ipcc", methods[1].ID)
	assert.InDelta(t, 0.5, methods[1].Factors["electricity"], 1e-9)
}

func TestServeCarbonFootprintEndpoint(t *testing.T) {
	api := newTestAPIServer(t)
	router := api.routes()

	body := `{"method":"ipcc","activities":{"electricity":1000,"diesel":100}}`
	req := httptest.NewRequest(http.MethodPost, "/carbon/footprint", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Method string  `json:"method"`
		Total  float64 `json:"total_kg_co2e"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ipcc", resp.Method)
	assert.InDelta(t, 770.0, resp.Total, 1e-9)

	req = httptest.NewRequest(http.MethodPost, "/carbon/footprint", bytes.NewBufferString(`{"method":"bogus","activities":{"electricity":1}}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/carbon/footprint", bytes.NewBufferString(`{"method":"ipcc"}`))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServeGaugesTrackLoad(t *testing.T) {
	api := newTestAPIServer(t)

	api.httpInFlight.Add(2)
	api.extractQueue.Add(1)
	api.publishGauges()

	conns, queue := api.sampler.Gauges()
	assert.Equal(t, 2.0, conns)
	assert.Equal(t, 1.0, queue)

	// a completed request leaves both gauges back at zero
	api.httpInFlight.Add(-2)
	api.extractQueue.Add(-1)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	api.routes().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	conns, queue = api.sampler.Gauges()
	assert.Zero(t, conns)
	assert.Zero(t, queue)
}

func TestServeRateLimit(t *testing.T) {
	api := newTestAPIServer(t)
	cfg.Server.RatePerSecond = 0
	cfg.Server.RateBurst = 1
	router := api.routes()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}
