package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/qa"
	"github.com/verdantiq/esg-cli/pkg/anthropic"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	noiseRE      = regexp.MustCompile(`[^\w\s\-.,:%()]`)
)

// preprocessStage normalizes the document text: Unicode NFKC, whitespace
// collapse, noise-character removal. It contributes no metrics.
type preprocessStage struct{}

func (s *preprocessStage) Name() string { return "preprocess" }

func (s *preprocessStage) Process(_ context.Context, req *Request) (*StageResult, error) {
	cleaned := norm.NFKC.String(req.Content)
	cleaned = noiseRE.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(whitespaceRE.ReplaceAllString(cleaned, " "))
	return &StageResult{Confidence: 0.9, Content: cleaned}, nil
}

// extractStage produces candidate metrics. Pattern extraction is the
// baseline; when a model-backed extractor is configured its output is
// preferred, with patterns as the fallback on error or empty response.
type extractStage struct {
	ai *anthropic.Extractor
}

func (s *extractStage) Name() string { return "extract" }

func (s *extractStage) Process(ctx context.Context, req *Request) (*StageResult, error) {
	if s.ai != nil {
		metrics, err := s.ai.ExtractMetrics(ctx, req.Content)
		if err != nil {
			zap.L().Warn("pipeline: model extraction failed, falling back to patterns",
				zap.Error(err))
		} else if len(metrics) > 0 {
			return &StageResult{Metrics: metrics, Confidence: 0.85}, nil
		}
	}
	return &StageResult{Metrics: ExtractPatternMetrics(req.Content), Confidence: 0.85}, nil
}

// validateStage drops metrics the quality-control validator marks invalid.
type validateStage struct {
	validator *qa.Validator
}

func (s *validateStage) Name() string { return "validate" }

func (s *validateStage) Process(_ context.Context, req *Request) (*StageResult, error) {
	verdicts := s.validator.ValidateBatch(req.Metrics)
	kept := make([]model.Metric, 0, len(req.Metrics))
	for i, verdict := range verdicts {
		if verdict.Valid {
			kept = append(kept, req.Metrics[i])
		}
	}
	return &StageResult{Metrics: kept, Confidence: 0.9}, nil
}

// enrichStage fills in missing descriptions from the surrounding document
// context and backstops zero confidences.
type enrichStage struct{}

func (s *enrichStage) Name() string { return "enrich" }

func (s *enrichStage) Process(_ context.Context, req *Request) (*StageResult, error) {
	enriched := make([]model.Metric, len(req.Metrics))
	for i, m := range req.Metrics {
		if m.Description == "" {
			m.Description = contextFor(m, req.Content)
		}
		if m.Confidence == 0 {
			m.Confidence = 0.8
		}
		enriched[i] = m
	}
	return &StageResult{Metrics: enriched, Confidence: 0.8}, nil
}

// contextFor locates the metric's source text in the document and returns it
// with surrounding context, falling back to the metric name.
func contextFor(m model.Metric, content string) string {
	needle := m.Provenance.SourceText
	if needle == "" {
		return m.Name
	}
	idx := strings.Index(content, needle)
	if idx < 0 {
		return m.Name
	}
	start := idx - 100
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + 100
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}

// qaStage is the final gate: it re-runs validation for the record but passes
// the working set through unchanged. Metrics are not mutated after this
// stage completes.
type qaStage struct {
	validator *qa.Validator
}

func (s *qaStage) Name() string { return "qa" }

func (s *qaStage) Process(_ context.Context, req *Request) (*StageResult, error) {
	verdicts := s.validator.ValidateBatch(req.Metrics)
	issues := 0
	for _, v := range verdicts {
		issues += len(v.Issues)
	}
	if issues > 0 {
		zap.L().Debug("pipeline: qa pass found residual issues", zap.Int("issues", issues))
	}
	return &StageResult{Metrics: req.Metrics, Confidence: 0.95}, nil
}
