package model

import "time"

// ExtractionResult is the Orchestrator's immutable output for one document.
// A failed run still carries whatever partial metrics were produced, plus an
// error message and zero confidence, so consumers can distinguish "nothing
// found" from "processing failed".
type ExtractionResult struct {
	Success           bool                 `json:"success"`
	Error             string               `json:"error,omitempty"`
	Metrics           []Metric             `json:"metrics"`
	Ingestion         *IngestResult        `json:"ingestion,omitempty"`
	Processing        *ProcessResult       `json:"processing,omitempty"`
	Detection         *DetectionResult     `json:"detection,omitempty"`
	Mappings          []FrameworkMapping   `json:"mappings,omitempty"`
	Verdicts          []Verdict            `json:"verdicts,omitempty"`
	Compliance        *ComplianceReport    `json:"compliance,omitempty"`
	Carbon            *CarbonAnalysis      `json:"carbon,omitempty"`
	Performance       *PerformanceSnapshot `json:"performance,omitempty"`
	OverallConfidence float64              `json:"overall_confidence"`
	Insights          []string             `json:"insights,omitempty"`
	Recommendations   []string             `json:"recommendations,omitempty"`
	Duration          time.Duration        `json:"duration"`
	GeneratedAt       time.Time            `json:"generated_at"`
}
