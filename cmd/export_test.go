package main

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantiq/esg-cli/internal/model"
)

func TestWriteMetricsCSV(t *testing.T) {
	metrics := []model.Metric{
		{
			ID:         "scope-1-emissions-0",
			Name:       "Scope 1 emissions",
			Value:      model.Float(15000),
			Unit:       "tCO2e",
			Category:   model.CategoryEnvironmental,
			Year:       2023,
			Scope:      1,
			Confidence: 0.85,
			Provenance: model.Provenance{SourceFile: "report.txt"},
		},
		{
			ID:       "board-independence-1",
			Name:     "Board independence",
			Category: model.CategoryGovernance,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeMetricsCSV(&buf, metrics))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, []string{
		"scope-1-emissions-0", "Scope 1 emissions", "15000", "tCO2e",
		"Environmental", "2023", "1", "0.85", "report.txt",
	}, records[1])

	// valueless metric leaves numeric columns empty
	assert.Equal(t, "", records[2][2])
	assert.Equal(t, "", records[2][5])
	assert.Equal(t, "", records[2][6])
}

func TestFormatRunsList(t *testing.T) {
	runs := []model.Run{
		{
			ID:        "run-1",
			Document:  model.Document{FileName: "report.txt"},
			Status:    model.RunStatusComplete,
			CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Result: &model.ExtractionResult{
				Metrics:           []model.Metric{{ID: "m1"}},
				OverallConfidence: 0.72,
			},
		},
		{
			ID:       "run-2",
			Document: model.Document{FileName: "draft.txt"},
			Status:   model.RunStatusQueued,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ID")
	assert.Contains(t, lines[1], "run-1")
	assert.Contains(t, lines[1], "0.72")
	assert.Contains(t, lines[2], "run-2")
	assert.Contains(t, lines[2], "-")
}
