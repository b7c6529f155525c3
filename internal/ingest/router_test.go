package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
)

func testIngestConfig() config.IngestConfig {
	return config.IngestConfig{
		MaxFileSize:           1 << 20,
		EnableContentAnalysis: true,
		TimeoutSecs:           30,
	}
}

func TestIngestOversizeRejected(t *testing.T) {
	r := NewRouter(config.IngestConfig{MaxFileSize: 10})
	res := r.Ingest(context.Background(), []byte("0123456789abc"), "big.txt", 13, "")

	assert.False(t, res.Success)
	assert.Empty(t, res.Metrics)
	assert.Contains(t, res.Error, "exceeds maximum")
}

func TestIngestTextDocument(t *testing.T) {
	r := NewRouter(testIngestConfig())
	content := []byte("Sustainability report. Total carbon emissions: 12,500 tonnes CO2e in 2023.")
	res := r.Ingest(context.Background(), content, "report.txt", int64(len(content)), "text/plain")

	require.True(t, res.Success)
	assert.Equal(t, "text", res.ParserID)
	assert.Equal(t, model.ContentText, res.Meta.Type)
	require.NotEmpty(t, res.Metrics)
	assert.Equal(t, 12500.0, res.Metrics[0].Val())
	assert.Greater(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
	require.NotNil(t, res.Meta.Analysis)
	assert.Equal(t, "en", res.Meta.Analysis.Language)
}

func TestIngestUnknownTypeFallsBackToText(t *testing.T) {
	r := NewRouter(testIngestConfig())
	content := []byte("Renewable energy share: 45 %")
	res := r.Ingest(context.Background(), content, "blob.bin", int64(len(content)), "application/octet-stream")

	require.True(t, res.Success)
	assert.Equal(t, "text", res.ParserID)
	assert.InDelta(t, fallbackConfidence*0.6, res.Confidence, 1e-9)
	require.Len(t, res.Warnings, 1)
	require.NotEmpty(t, res.Metrics)
	assert.Equal(t, 45.0, res.Metrics[0].Val())
}

func TestIngestESGTopicBoostsRouting(t *testing.T) {
	r := NewRouter(testIngestConfig())
	meta := model.ContentMeta{
		Type:       model.ContentText,
		Confidence: 0.5,
		Analysis: &model.ContentAnalysis{
			Language: "en",
			Topics:   []string{"ESG", "Environmental"},
		},
	}
	route := r.selectRoute(meta)
	assert.Equal(t, "text", route.parser.ID())
	assert.InDelta(t, 0.5*1.1*1.2, route.confidence, 1e-9)
}
