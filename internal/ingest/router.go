package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
)

// fallbackConfidence is reported when no parser supports the detected type
// and the text parser is used anyway.
const fallbackConfidence = 0.3

// Router detects a document's content type and dispatches it to the best
// matching parser.
type Router struct {
	cfg     config.IngestConfig
	parsers []Parser
}

// NewRouter builds a Router with the built-in parser set.
func NewRouter(cfg config.IngestConfig) *Router {
	return &Router{cfg: cfg, parsers: defaultParsers()}
}

type route struct {
	parser     Parser
	confidence float64
	fallback   bool
}

// Ingest runs detection, optional content analysis, routing, and parsing for
// one document. Failures never surface as errors; the result carries
// Success=false with the reason instead.
func (r *Router) Ingest(ctx context.Context, content []byte, fileName string, fileSize int64, mimeType string) model.IngestResult {
	start := time.Now()
	log := zap.L().With(zap.String("file", fileName))

	provenance := model.Provenance{
		SourceText:  headExcerpt(content),
		SourceFile:  fileName,
		Page:        1,
		ExtractedAt: start.UTC(),
	}

	if r.cfg.MaxFileSize > 0 && fileSize > r.cfg.MaxFileSize {
		return model.IngestResult{
			Success:    false,
			Metrics:    []model.Metric{},
			Meta:       model.ContentMeta{Type: model.ContentUnknown, FileName: fileName, FileSize: fileSize},
			Error:      fmt.Sprintf("file size %d exceeds maximum %d", fileSize, r.cfg.MaxFileSize),
			Duration:   time.Since(start),
			Provenance: provenance,
		}
	}

	meta := DetectType(content, fileName, fileSize, mimeType)
	if r.cfg.EnableContentAnalysis {
		meta.Analysis = Analyze(string(content))
	}
	log.Debug("ingest: detected type",
		zap.String("type", string(meta.Type)),
		zap.Float64("confidence", meta.Confidence))

	var warnings []string
	selected := r.selectRoute(meta)
	if selected.fallback {
		warnings = append(warnings, "no parser registered for detected type, using text parser fallback")
	}

	metrics, parserConf, err := r.parseWithTimeout(ctx, selected.parser, content, meta)
	if err != nil {
		return model.IngestResult{
			Success:    false,
			Metrics:    []model.Metric{},
			Meta:       meta,
			ParserID:   selected.parser.ID(),
			Error:      err.Error(),
			Warnings:   warnings,
			Duration:   time.Since(start),
			Provenance: provenance,
		}
	}

	return model.IngestResult{
		Success:    true,
		Metrics:    metrics,
		Meta:       meta,
		ParserID:   selected.parser.ID(),
		Confidence: clamp01(selected.confidence * parserConf),
		Warnings:   warnings,
		Duration:   time.Since(start),
		Provenance: provenance,
	}
}

// selectRoute picks the parser with the highest routing score. Content
// analysis biases the score: English documents get a 1.1 boost for every
// parser except XBRL, and ESG-topic documents a further 1.2.
func (r *Router) selectRoute(meta model.ContentMeta) route {
	best := route{}
	for _, p := range r.parsers {
		if !p.Supports(meta.Type) {
			continue
		}
		confidence := meta.Confidence
		if meta.Analysis != nil {
			if meta.Analysis.Language == "en" && p.ID() != "xbrl" {
				confidence *= 1.1
			}
			for _, topic := range meta.Analysis.Topics {
				t := strings.ToLower(topic)
				if strings.Contains(t, "esg") || strings.Contains(t, "sustainability") {
					confidence *= 1.2
					break
				}
			}
		}
		if best.parser == nil || confidence > best.confidence {
			best = route{parser: p, confidence: confidence}
		}
	}

	if best.parser == nil {
		return route{parser: &textParser{}, confidence: fallbackConfidence, fallback: true}
	}
	return best
}

type parseOutcome struct {
	metrics    []model.Metric
	confidence float64
	err        error
}

// parseWithTimeout races the parser against the configured deadline. A slow
// parse is abandoned, not interrupted; its eventual result is discarded.
func (r *Router) parseWithTimeout(ctx context.Context, p Parser, content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	timeout := time.Duration(r.cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		metrics, conf, err := p.Parse(content, meta)
		return metrics, conf, err
	}

	done := make(chan parseOutcome, 1)
	go func() {
		metrics, conf, err := p.Parse(content, meta)
		done <- parseOutcome{metrics, conf, err}
	}()

	select {
	case out := <-done:
		return out.metrics, out.confidence, out.err
	case <-time.After(timeout):
		return nil, 0, fmt.Errorf("ingest: parser %s timed out after %s", p.ID(), timeout)
	case <-ctx.Done():
		return nil, 0, ctx.Err()
	}
}

func headExcerpt(content []byte) string {
	const max = 200
	if len(content) <= max {
		return string(content)
	}
	return string(content[:max]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
