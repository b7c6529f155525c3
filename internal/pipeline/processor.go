package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
	"github.com/verdantiq/esg-cli/internal/qa"
	"github.com/verdantiq/esg-cli/pkg/anthropic"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Processor runs the configured stages over one document. Stages are
// registered by name; configuration entries referring to unregistered names
// produce a warning, not a failure.
type Processor struct {
	cfg    config.PipelineConfig
	stages map[string]Stage
}

// Option customizes processor construction.
type Option func(*options)

type options struct {
	ai *anthropic.Extractor
}

// WithAIExtractor routes the extraction stage through a model-backed
// extractor before falling back to pattern matching.
func WithAIExtractor(e *anthropic.Extractor) Option {
	return func(o *options) { o.ai = e }
}

// NewProcessor builds a Processor with the built-in stage set registered.
func NewProcessor(cfg config.PipelineConfig, validator *qa.Validator, opts ...Option) *Processor {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	p := &Processor{cfg: cfg, stages: make(map[string]Stage)}
	p.Register(&preprocessStage{})
	p.Register(&extractStage{ai: o.ai})
	p.Register(&validateStage{validator: validator})
	p.Register(&enrichStage{})
	p.Register(&qaStage{validator: validator})
	return p
}

// Register adds or replaces a stage implementation.
func (p *Processor) Register(s Stage) {
	p.stages[s.Name()] = s
}

// Process executes the enabled stages in priority order and merges their
// outputs into one ProcessResult. Stage failures and timeouts are isolated:
// they are logged against the stage and never abort siblings.
func (p *Processor) Process(ctx context.Context, content string, meta model.ContentMeta) model.ProcessResult {
	start := time.Now()

	enabled := make([]config.StageConfig, 0, len(p.cfg.Stages))
	for _, sc := range p.cfg.Stages {
		if sc.Enabled {
			enabled = append(enabled, sc)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool { return enabled[i].Priority < enabled[j].Priority })

	var result model.ProcessResult
	if p.cfg.ParallelProcessing {
		result = p.runParallel(ctx, enabled, content, meta)
	} else {
		result = p.runSequential(ctx, enabled, content, meta)
	}

	result.Success = succeeded(result)
	result.Confidence = overallConfidence(result)
	result.Duration = time.Since(start)
	return result
}

// succeeded is false only when every executed stage failed.
func succeeded(result model.ProcessResult) bool {
	if len(result.Stages) == 0 {
		return true
	}
	for _, exec := range result.Stages {
		if exec.Success {
			return true
		}
	}
	return false
}

func (p *Processor) runSequential(ctx context.Context, enabled []config.StageConfig, content string, meta model.ContentMeta) model.ProcessResult {
	result := model.ProcessResult{Metrics: []model.Metric{}}
	working := []model.Metric{}

	for _, sc := range enabled {
		stage, ok := p.stages[sc.Name]
		if !ok {
			result.Warnings = append(result.Warnings, fmt.Sprintf("stage %s not found", sc.Name))
			continue
		}

		req := &Request{Content: content, Meta: meta, Metrics: working}
		stageResult, elapsed, err := p.runStage(ctx, stage, sc, req)
		if err != nil {
			result.Errors = append(result.Errors, model.StageError{
				Stage:   sc.Name,
				Message: err.Error(),
				At:      time.Now().UTC(),
			})
			result.Stages = append(result.Stages, model.StageExecution{Name: sc.Name, Success: false})
			continue
		}

		if stageResult.Metrics != nil {
			working = stageResult.Metrics
		}
		if stageResult.Content != "" {
			content = stageResult.Content
		}
		result.Stages = append(result.Stages, model.StageExecution{
			Name:     sc.Name,
			Success:  true,
			Duration: elapsed,
		})
	}

	result.Metrics = working
	return result
}

func (p *Processor) runParallel(ctx context.Context, enabled []config.StageConfig, content string, meta model.ContentMeta) model.ProcessResult {
	result := model.ProcessResult{Metrics: []model.Metric{}}

	type slot struct {
		res *StageResult
		err error
	}
	slots := make([]slot, len(enabled))
	missing := make([]bool, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	for i, sc := range enabled {
		stage, ok := p.stages[sc.Name]
		if !ok {
			missing[i] = true
			continue
		}
		i, sc, stage := i, sc, stage
		g.Go(func() error {
			req := &Request{Content: content, Meta: meta}
			res, _, err := p.runStage(gctx, stage, sc, req)
			slots[i] = slot{res: res, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, sc := range enabled {
		if missing[i] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("stage %s not found", sc.Name))
			continue
		}
		s := slots[i]
		if s.err != nil {
			result.Errors = append(result.Errors, model.StageError{
				Stage:   sc.Name,
				Message: s.err.Error(),
				At:      time.Now().UTC(),
			})
			result.Stages = append(result.Stages, model.StageExecution{Name: sc.Name, Success: false})
			continue
		}
		result.Metrics = append(result.Metrics, s.res.Metrics...)
		result.Stages = append(result.Stages, model.StageExecution{Name: sc.Name, Success: true})
	}

	return result
}

type stageOutcome struct {
	res *StageResult
	err error
}

// runStage executes one stage under its configured timeout. The timeout is a
// race, not a cancellation: a stage that overruns keeps running in its
// goroutine and its eventual result is discarded.
func (p *Processor) runStage(ctx context.Context, stage Stage, sc config.StageConfig, req *Request) (*StageResult, time.Duration, error) {
	start := time.Now()
	done := make(chan stageOutcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stageOutcome{err: fmt.Errorf("stage %s panicked: %v", sc.Name, r)}
			}
		}()
		res, err := stage.Process(ctx, req)
		done <- stageOutcome{res: res, err: err}
	}()

	var timeout <-chan time.Time
	if sc.TimeoutSecs > 0 {
		timer := time.NewTimer(time.Duration(sc.TimeoutSecs) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		if out.err != nil {
			zap.L().Warn("pipeline: stage failed",
				zap.String("stage", sc.Name), zap.Error(out.err))
			return nil, time.Since(start), out.err
		}
		return out.res, time.Since(start), nil
	case <-timeout:
		return nil, time.Since(start), fmt.Errorf("stage %s timed out", sc.Name)
	case <-ctx.Done():
		return nil, time.Since(start), ctx.Err()
	}
}

// overallConfidence is the average metric confidence penalized 0.1 per error
// and 0.05 per warning, clamped to [0,1].
func overallConfidence(result model.ProcessResult) float64 {
	if len(result.Metrics) == 0 {
		return 0
	}
	total := 0.0
	for _, m := range result.Metrics {
		total += m.Confidence
	}
	avg := total / float64(len(result.Metrics))
	score := avg - 0.1*float64(len(result.Errors)) - 0.05*float64(len(result.Warnings))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
