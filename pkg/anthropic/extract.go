package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/verdantiq/esg-cli/internal/model"
)

const extractSystemPrompt = `You extract ESG metrics from sustainability report text.
Respond with a JSON array only. Each element:
{"name": string, "value": number, "unit": string, "year": number,
 "category": "Environmental"|"Social"|"Governance"|"Other",
 "scope": 0|1|2|3, "description": string, "confidence": number}
Use scope 0 when the metric is not an emission. Do not invent metrics.`

// maxDocumentChars bounds how much report text is sent per request.
const maxDocumentChars = 32000

var jsonArrayRE = regexp.MustCompile(`(?s)\[.*\]`)

// Extractor asks the model for candidate metrics in a fixed JSON shape. It
// is one metric source among several; its output goes through the same
// validation as everything else.
type Extractor struct {
	client    Client
	model     string
	maxTokens int64
}

// NewExtractor wires an Extractor over a Client.
func NewExtractor(client Client, modelID string, maxTokens int64) *Extractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Extractor{client: client, model: modelID, maxTokens: maxTokens}
}

type wireMetric struct {
	Name        string   `json:"name"`
	Value       *float64 `json:"value"`
	Unit        string   `json:"unit"`
	Year        int      `json:"year"`
	Category    string   `json:"category"`
	Scope       int      `json:"scope"`
	Description string   `json:"description"`
	Confidence  float64  `json:"confidence"`
}

// ExtractMetrics sends the document and decodes the returned metric array.
func (e *Extractor) ExtractMetrics(ctx context.Context, content string) ([]model.Metric, error) {
	if len(content) > maxDocumentChars {
		content = content[:maxDocumentChars]
	}

	resp, err := e.client.CreateMessage(ctx, MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System:    extractSystemPrompt,
		Messages:  []Message{{Role: "user", Content: content}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: extract metrics")
	}
	resp.Usage.LogCost(e.model, "extract")

	raw := jsonArrayRE.FindString(resp.Text())
	if raw == "" {
		return nil, eris.New("anthropic: no JSON array in response")
	}

	var wire []wireMetric
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return nil, eris.Wrap(err, "anthropic: decode metrics")
	}

	now := time.Now().UTC()
	metrics := make([]model.Metric, 0, len(wire))
	for i, w := range wire {
		if strings.TrimSpace(w.Name) == "" {
			continue
		}
		confidence := w.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.7
		}
		metrics = append(metrics, model.Metric{
			ID:          fmt.Sprintf("ai-%03d", i),
			Name:        w.Name,
			Value:       w.Value,
			Unit:        w.Unit,
			Category:    parseCategory(w.Category),
			Year:        w.Year,
			Description: w.Description,
			Confidence:  confidence,
			Scope:       w.Scope,
			Provenance: model.Provenance{
				SourceText:  w.Description,
				SourceFile:  "model-extraction",
				Page:        1,
				ExtractedAt: now,
			},
		})
	}
	return metrics, nil
}

func parseCategory(s string) model.Category {
	for _, c := range model.ValidCategories {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return model.CategoryOther
}
