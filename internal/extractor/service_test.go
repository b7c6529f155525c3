package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/monitoring"
)

const sampleReport = `Sustainability Report 2023

This report follows the GRI Standards, including GRI 305 emissions
disclosures from the Global Reporting Initiative.

Scope 1 emissions: 15,000 tCO2e
Scope 2 emissions: 45,000 tCO2e
Energy consumption: 450,000 kWh
Employee turnover rate: 12 %
`

func newTestService(t *testing.T) (*Service, *monitoring.Monitor) {
	t.Helper()
	cfg := &config.Config{
		Pipeline:   config.PipelineConfig{Stages: config.DefaultStages()},
		QA:         config.QAConfig{OutlierThreshold: 1.5, OutlierMinPopulation: 10},
		Carbon:     config.CarbonConfig{Industry: "Technology"},
		Monitoring: config.MonitoringConfig{MaxEvents: 100},
	}
	monitor := monitoring.NewMonitor(cfg.Monitoring)
	svc, err := NewService(cfg, monitor)
	require.NoError(t, err)
	return svc, monitor
}

func TestExtractEndToEnd(t *testing.T) {
	svc, monitor := newTestService(t)

	res := svc.Extract(context.Background(), []byte(sampleReport), "report.txt", "text/plain")
	require.True(t, res.Success)
	require.NotEmpty(t, res.Metrics)
	assert.NotEmpty(t, res.Verdicts)

	require.NotNil(t, res.Ingestion)
	assert.True(t, res.Ingestion.Success)
	require.NotNil(t, res.Detection)
	require.NotNil(t, res.Compliance)
	require.NotNil(t, res.Carbon)
	require.NotNil(t, res.Performance)

	assert.Greater(t, res.OverallConfidence, 0.0)
	assert.LessOrEqual(t, res.OverallConfidence, 1.0)
	assert.NotEmpty(t, res.Recommendations)
	assert.False(t, res.GeneratedAt.IsZero())

	stats := monitor.Stats(nil)
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 1, stats.Successful)
}

func TestExtractDeterministic(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first := svc.Extract(ctx, []byte(sampleReport), "report.txt", "text/plain")
	second := svc.Extract(ctx, []byte(sampleReport), "report.txt", "text/plain")

	require.Equal(t, len(first.Metrics), len(second.Metrics))
	for i := range first.Metrics {
		assert.Equal(t, first.Metrics[i].ID, second.Metrics[i].ID)
		assert.Equal(t, first.Metrics[i].Val(), second.Metrics[i].Val())
	}
	assert.Equal(t, first.OverallConfidence, second.OverallConfidence)
}

func TestExtractCancelledContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := svc.Extract(ctx, []byte(sampleReport), "report.txt", "text/plain")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "aborted")
	assert.Empty(t, res.Metrics)
	assert.Zero(t, res.OverallConfidence)
}

func TestExtractDocumentWithoutMetrics(t *testing.T) {
	svc, _ := newTestService(t)

	res := svc.Extract(context.Background(), []byte("An unremarkable memo about scheduling."), "memo.txt", "text/plain")
	require.True(t, res.Success)
	assert.Empty(t, res.Metrics)

	// scoring stages stay silent rather than reporting gaps and benchmark
	// commentary for a document that yielded nothing
	assert.Nil(t, res.Detection)
	assert.Empty(t, res.Mappings)
	assert.Nil(t, res.Compliance)
	assert.Nil(t, res.Carbon)
	assert.Empty(t, res.Insights)
	assert.Empty(t, res.Recommendations)
}

func TestFrameworkIDsFallBackToDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	ids := svc.frameworkIDs(model.DetectionResult{})
	assert.Equal(t, defaultFrameworkIDs, ids)

	ids = svc.frameworkIDs(model.DetectionResult{Frameworks: []model.DetectedFramework{
		{FrameworkID: "unknown-framework"},
	}})
	assert.Equal(t, defaultFrameworkIDs, ids)

	ids = svc.frameworkIDs(model.DetectionResult{Frameworks: []model.DetectedFramework{
		{FrameworkID: "gri"},
		{FrameworkID: "unknown-framework"},
	}})
	assert.Equal(t, []string{"gri"}, ids)
}

func TestFilterValidDropsInvalidMetrics(t *testing.T) {
	metrics := []model.Metric{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	verdicts := []model.Verdict{
		{MetricID: "a", Valid: true},
		{MetricID: "b", Valid: false},
		{MetricID: "c", Valid: true},
	}

	kept := filterValid(metrics, verdicts)
	require.Len(t, kept, 2)
	assert.Equal(t, "a", kept[0].ID)
	assert.Equal(t, "c", kept[1].ID)
}

func TestBlendConfidenceGating(t *testing.T) {
	// nothing ran beyond ingestion: floor at 0.5, lifted by ingest confidence
	conf := blendConfidence(model.IngestResult{Confidence: 0.8}, nil, nil, nil)
	assert.InDelta(t, 0.8, conf, 1e-9)

	// QA and metric averages fold in halves
	verdicts := []model.Verdict{{Confidence: 0.9}, {Confidence: 0.7}}
	metrics := []model.Metric{{Confidence: 0.6}}
	conf = blendConfidence(model.IngestResult{Confidence: 0.8}, nil, verdicts, metrics)
	assert.InDelta(t, ((0.8+0.8)/2+0.6)/2, conf, 1e-9)

	conf = blendConfidence(model.IngestResult{}, nil, nil, nil)
	assert.InDelta(t, 0.5, conf, 1e-9)
}
