package model

import "time"

// Severity grades how serious a validation issue is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Invalidating reports whether an issue of this severity marks the metric
// invalid. Low and medium issues are recorded but do not invalidate.
func (s Severity) Invalidating() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// IssueKind identifies the rule family that raised an issue.
type IssueKind string

const (
	IssueOutlier     IssueKind = "outlier"
	IssueConsistency IssueKind = "consistency"
	IssueFormat      IssueKind = "format"
	IssueRange       IssueKind = "range"
	IssueCustom      IssueKind = "custom"
)

// ValidationIssue is one detected problem on one metric. Issues are domain
// output, not errors: they are always returned, never swallowed.
type ValidationIssue struct {
	Kind       IssueKind `json:"kind"`
	Severity   Severity  `json:"severity"`
	Message    string    `json:"message"`
	Field      string    `json:"field,omitempty"`
	Expected   string    `json:"expected,omitempty"`
	Actual     string    `json:"actual,omitempty"`
	Confidence float64   `json:"confidence"`
}

// Verdict is the quality-control outcome for a single metric.
type Verdict struct {
	MetricID     string            `json:"metric_id"`
	Valid        bool              `json:"valid"`
	Confidence   float64           `json:"confidence"`
	Issues       []ValidationIssue `json:"issues,omitempty"`
	Suggestions  []string          `json:"suggestions,omitempty"`
	RulesApplied []string          `json:"rules_applied"`
}

// Correction records a human fix to a metric the validator got wrong. It is
// an audit entry feeding rolling per-rule accuracy, not a training signal.
type Correction struct {
	Original   Metric    `json:"original"`
	Corrected  Metric    `json:"corrected"`
	Reason     string    `json:"reason"`
	RuleIDs    []string  `json:"rule_ids"`
	RecordedAt time.Time `json:"recorded_at"`
}
