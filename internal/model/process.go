package model

import "time"

// StageExecution records one stage's run within the processing pipeline.
type StageExecution struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

// StageError is a failure isolated to a single stage. It never aborts
// sibling stages.
type StageError struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// ProcessResult is the Staged Processing Pipeline's output.
type ProcessResult struct {
	Success    bool             `json:"success"`
	Metrics    []Metric         `json:"metrics"`
	Stages     []StageExecution `json:"stages"`
	Errors     []StageError     `json:"errors,omitempty"`
	Warnings   []string         `json:"warnings,omitempty"`
	Confidence float64          `json:"confidence"`
	Duration   time.Duration    `json:"duration"`
}
