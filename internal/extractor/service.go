package extractor

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verdantiq/esg-cli/internal/carbon"
	"github.com/verdantiq/esg-cli/internal/compliance"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/framework"
	"github.com/verdantiq/esg-cli/internal/ingest"
	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/monitoring"
	"github.com/verdantiq/esg-cli/internal/pipeline"
	"github.com/verdantiq/esg-cli/internal/qa"
	"github.com/verdantiq/esg-cli/pkg/anthropic"
)

// defaultFrameworkIDs are assessed when detection finds nothing usable.
var defaultFrameworkIDs = []string{"gri", "sasb", "tcfd"}

// Service runs the full extraction sequence for one document: ingestion,
// pipeline and pattern fallbacks, framework alignment, quality control,
// compliance scoring, carbon analytics, and performance accounting.
type Service struct {
	cfg        *config.Config
	router     *ingest.Router
	processor  *pipeline.Processor
	validator  *qa.Validator
	frameworks *framework.Engine
	scorer     *compliance.Scorer
	analyzer   *carbon.Analyzer
	monitor    *monitoring.Monitor
}

// NewService wires the component stack from configuration. The monitor is
// shared with the caller so HTTP handlers can read the same counters.
func NewService(cfg *config.Config, monitor *monitoring.Monitor) (*Service, error) {
	fwCatalog, err := framework.LoadCatalog()
	if err != nil {
		return nil, err
	}
	scoringCatalog, err := compliance.LoadCatalog()
	if err != nil {
		return nil, err
	}
	analyzer, err := carbon.NewAnalyzer()
	if err != nil {
		return nil, err
	}

	validator := qa.NewValidator(cfg.QA)

	var opts []pipeline.Option
	if cfg.Anthropic.Key != "" {
		client := anthropic.NewClient(cfg.Anthropic.Key)
		opts = append(opts, pipeline.WithAIExtractor(
			anthropic.NewExtractor(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)))
	}

	return &Service{
		cfg:        cfg,
		router:     ingest.NewRouter(cfg.Ingest),
		processor:  pipeline.NewProcessor(cfg.Pipeline, validator, opts...),
		validator:  validator,
		frameworks: framework.NewEngine(fwCatalog),
		scorer:     compliance.NewScorer(scoringCatalog),
		analyzer:   analyzer,
		monitor:    monitor,
	}, nil
}

// Validator exposes the shared validator so callers can record corrections.
func (s *Service) Validator() *qa.Validator { return s.validator }

// Frameworks exposes the alignment engine for catalog listings.
func (s *Service) Frameworks() *framework.Engine { return s.frameworks }

// Scorer exposes the compliance scorer for catalog listings.
func (s *Service) Scorer() *compliance.Scorer { return s.scorer }

// Extract processes one document end to end. It never returns an error:
// failures surface on the result with Success=false and zero confidence so
// a stored run always has a terminal record.
func (s *Service) Extract(ctx context.Context, content []byte, fileName, mimeType string) (res *model.ExtractionResult) {
	start := time.Now().UTC()
	eventID := s.monitor.RecordStart("extraction", int64(len(content)))

	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("extraction panic: %v", r)
			zap.L().Error("extractor: recovered", zap.String("file", fileName), zap.Any("panic", r))
			s.monitor.RecordError("extraction", msg)
			s.monitor.RecordEnd(eventID, false)
			res = s.failed(msg, start)
		}
	}()

	if err := ctx.Err(); err != nil {
		s.monitor.RecordEnd(eventID, false)
		return s.failed(fmt.Sprintf("extraction aborted: %v", err), start)
	}

	text := string(content)

	ing := s.router.Ingest(ctx, content, fileName, int64(len(content)), mimeType)
	metrics := ing.Metrics

	var proc *model.ProcessResult
	if len(metrics) == 0 {
		pr := s.processor.Process(ctx, text, ing.Meta)
		proc = &pr
		metrics = pr.Metrics
	}
	if len(metrics) == 0 {
		metrics = pipeline.ExtractPatternMetrics(text)
	}

	// Alignment, compliance, and carbon stages only run when there is
	// something to score; an empty document must not produce fabricated
	// gap reports or benchmark commentary.
	var (
		detectionPtr  *model.DetectionResult
		mappings      []model.FrameworkMapping
		verdicts      []model.Verdict
		compliancePtr *model.ComplianceReport
		carbonPtr     *model.CarbonAnalysis
	)

	if len(metrics) > 0 {
		detection := s.frameworks.Detect(text)
		detectionPtr = &detection
		mappings = s.frameworks.Map(metrics)

		verdicts = s.validator.ValidateBatch(metrics)
		metrics = filterValid(metrics, verdicts)
	}

	if len(metrics) > 0 {
		report, err := s.scorer.Report(metrics, s.frameworkIDs(*detectionPtr), nil)
		if err != nil {
			zap.L().Warn("extractor: compliance scoring skipped", zap.Error(err))
			s.monitor.RecordWarning("compliance", err.Error())
		} else {
			compliancePtr = &report
		}

		analysis := s.analyzer.Analyze(metrics, s.cfg.Carbon.Industry, carbon.Options{
			Revenue:   s.cfg.Carbon.Revenue,
			Employees: float64(s.cfg.Carbon.Employees),
		})
		carbonPtr = &analysis
	}

	s.monitor.RecordEnd(eventID, true)
	snapshot := s.monitor.Snapshot()

	var insights []string
	if carbonPtr != nil {
		insights = carbonPtr.Insights
	}

	result := &model.ExtractionResult{
		Success:           true,
		Metrics:           metrics,
		Ingestion:         &ing,
		Processing:        proc,
		Detection:         detectionPtr,
		Mappings:          mappings,
		Verdicts:          verdicts,
		Compliance:        compliancePtr,
		Carbon:            carbonPtr,
		Performance:       &snapshot,
		OverallConfidence: blendConfidence(ing, proc, verdicts, metrics),
		Insights:          insights,
		Recommendations:   collectRecommendations(detectionPtr, compliancePtr, carbonPtr),
		Duration:          time.Since(start),
		GeneratedAt:       time.Now().UTC(),
	}

	zap.L().Info("extractor: document processed",
		zap.String("file", fileName),
		zap.Int("metrics", len(result.Metrics)),
		zap.Float64("confidence", result.OverallConfidence),
		zap.Duration("duration", result.Duration))

	return result
}

func (s *Service) failed(msg string, start time.Time) *model.ExtractionResult {
	return &model.ExtractionResult{
		Success:     false,
		Error:       msg,
		Metrics:     []model.Metric{},
		Duration:    time.Since(start),
		GeneratedAt: time.Now().UTC(),
	}
}

// frameworkIDs picks the compliance frameworks to assess: detected ones that
// the scoring catalog knows, with a fixed default set when none qualify.
func (s *Service) frameworkIDs(detection model.DetectionResult) []string {
	var ids []string
	for _, fw := range detection.Frameworks {
		if _, ok := s.scorer.Catalog().Get(fw.FrameworkID); ok {
			ids = append(ids, fw.FrameworkID)
		}
	}
	if len(ids) == 0 {
		return defaultFrameworkIDs
	}
	return ids
}

// filterValid drops metrics whose verdict marked them invalid. Verdicts are
// kept on the result either way so rejected metrics remain auditable.
func filterValid(metrics []model.Metric, verdicts []model.Verdict) []model.Metric {
	invalid := make(map[string]bool, len(verdicts))
	for _, v := range verdicts {
		if !v.Valid {
			invalid[v.MetricID] = true
		}
	}
	kept := make([]model.Metric, 0, len(metrics))
	for _, m := range metrics {
		if !invalid[m.ID] {
			kept = append(kept, m)
		}
	}
	return kept
}

// blendConfidence folds per-stage confidences into one score. Stages that
// did not run contribute nothing.
func blendConfidence(ing model.IngestResult, proc *model.ProcessResult, verdicts []model.Verdict, metrics []model.Metric) float64 {
	conf := 0.5
	if ing.Confidence > conf {
		conf = ing.Confidence
	}
	if proc != nil && proc.Confidence > conf {
		conf = proc.Confidence
	}
	if len(verdicts) > 0 {
		var sum float64
		for _, v := range verdicts {
			sum += v.Confidence
		}
		conf = (conf + sum/float64(len(verdicts))) / 2
	}
	if len(metrics) > 0 {
		var sum float64
		for _, m := range metrics {
			sum += m.Confidence
		}
		conf = (conf + sum/float64(len(metrics))) / 2
	}
	return clamp01(conf)
}

func collectRecommendations(detection *model.DetectionResult, report *model.ComplianceReport, analysis *model.CarbonAnalysis) []string {
	var recs []string
	if detection != nil {
		recs = append(recs, detection.Recommendations...)
	}
	if report != nil {
		for _, a := range report.Assessments {
			recs = append(recs, a.Recommendations...)
		}
	}
	if analysis != nil {
		recs = append(recs, analysis.Recommendations...)
	}
	return dedupe(recs)
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
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
