package pipeline

import (
	"context"

	"github.com/verdantiq/esg-cli/internal/model"
)

// Request is what a stage operates on. In sequential mode the processor
// threads content and the working metric set from stage to stage; in
// parallel mode every stage sees the original content and an empty set.
type Request struct {
	Content string
	Meta    model.ContentMeta
	Metrics []model.Metric
}

// StageResult is one stage's contribution. A nil Metrics slice leaves the
// working set untouched; a non-empty Content replaces the document text for
// downstream stages.
type StageResult struct {
	Metrics    []model.Metric
	Confidence float64
	Content    string
}

// Stage is a named processing step. Implementations must be safe to call
// from concurrent pipeline runs; they may not retain or mutate the request
// after returning.
type Stage interface {
	Name() string
	Process(ctx context.Context, req *Request) (*StageResult, error)
}
