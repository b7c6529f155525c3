package model

// ComplianceStatus is the heuristic per-mapping compliance gate. Full
// requirement scoring lives in the compliance package.
type ComplianceStatus string

const (
	StatusCompliant    ComplianceStatus = "compliant"
	StatusPartial      ComplianceStatus = "partial"
	StatusNonCompliant ComplianceStatus = "non-compliant"
)

// DetectedFramework is one disclosure framework found in a document.
type DetectedFramework struct {
	FrameworkID         string   `json:"framework_id"`
	FrameworkName       string   `json:"framework_name"`
	Confidence          float64  `json:"confidence"`
	MatchedMetrics      []string `json:"matched_metrics,omitempty"`
	MatchedRequirements []string `json:"matched_requirements,omitempty"`
}

// DetectionResult ranks detected frameworks and carries per-tier
// recommendations.
type DetectionResult struct {
	Frameworks      []DetectedFramework `json:"frameworks"`
	Confidence      float64             `json:"confidence"`
	Recommendations []string            `json:"recommendations,omitempty"`
}

// FrameworkMapping links one extracted metric to one framework metric.
type FrameworkMapping struct {
	MetricID            string           `json:"metric_id"`
	FrameworkID         string           `json:"framework_id"`
	FrameworkName       string           `json:"framework_name"`
	FrameworkMetricID   string           `json:"framework_metric_id"`
	FrameworkMetricName string           `json:"framework_metric_name"`
	Confidence          float64          `json:"confidence"`
	Status              ComplianceStatus `json:"status"`
}
