package model

import "time"

// Effort is a coarse remediation effort estimate.
type Effort string

const (
	EffortLow    Effort = "low"
	EffortMedium Effort = "medium"
	EffortHigh   Effort = "high"
)

// ComplianceGap is a requirement whose score fell below the acceptance
// threshold.
type ComplianceGap struct {
	RequirementID   string   `json:"requirement_id"`
	RequirementName string   `json:"requirement_name"`
	CategoryID      string   `json:"category_id"`
	Severity        Severity `json:"severity"`
	Description     string   `json:"description"`
	Impact          string   `json:"impact"`
	Remediation     string   `json:"remediation"`
	EstimatedEffort Effort   `json:"estimated_effort"`
}

// Evidence is optional corroborating material for one requirement. Only its
// confidence contributes to scoring; the remaining fields are audit context.
type Evidence struct {
	RequirementID string    `json:"requirement_id"`
	Kind          string    `json:"kind"`
	Description   string    `json:"description,omitempty"`
	Source        string    `json:"source,omitempty"`
	Confidence    float64   `json:"confidence"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ComplianceAssessment is the scored outcome for one framework.
type ComplianceAssessment struct {
	FrameworkID       string             `json:"framework_id"`
	FrameworkName     string             `json:"framework_name"`
	OverallScore      float64            `json:"overall_score"`
	CategoryScores    map[string]float64 `json:"category_scores"`
	RequirementScores map[string]float64 `json:"requirement_scores"`
	Gaps              []ComplianceGap    `json:"gaps,omitempty"`
	Strengths         []string           `json:"strengths,omitempty"`
	Recommendations   []string           `json:"recommendations,omitempty"`
	AssessedAt        time.Time          `json:"assessed_at"`
}

// ComplianceReport aggregates assessments across frameworks.
type ComplianceReport struct {
	Assessments      []ComplianceAssessment `json:"assessments"`
	OverallScore     float64                `json:"overall_score"`
	CriticalGaps     int                    `json:"critical_gaps"`
	HighPriorityGaps int                    `json:"high_priority_gaps"`
	GeneratedAt      time.Time              `json:"generated_at"`
}
