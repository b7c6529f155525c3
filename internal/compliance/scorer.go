package compliance

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
)

const (
	// evidenceWeight caps how much external evidence can move a
	// requirement score.
	evidenceWeight = 0.3

	gapThreshold      = 0.5
	strengthThreshold = 0.8
	// binaryMetThreshold marks a mandatory requirement as met under
	// binary scoring.
	binaryMetThreshold = 0.8
)

// Scorer assesses extracted metrics against the compliance catalog.
type Scorer struct {
	catalog *Catalog
}

// NewScorer wires a Scorer over a loaded catalog.
func NewScorer(catalog *Catalog) *Scorer {
	return &Scorer{catalog: catalog}
}

// Catalog exposes the underlying frameworks, for listing surfaces.
func (s *Scorer) Catalog() *Catalog { return s.catalog }

// Assess scores the metric set against one framework. Evidence is optional;
// when present its confidence contributes to matching requirements, capped by
// evidenceWeight.
func (s *Scorer) Assess(metrics []model.Metric, frameworkID string, evidence []model.Evidence) (model.ComplianceAssessment, error) {
	fw, ok := s.catalog.Get(frameworkID)
	if !ok {
		return model.ComplianceAssessment{}, eris.Errorf("compliance: framework %s not found", frameworkID)
	}

	requirementScores := make(map[string]float64, len(fw.Requirements))
	var gaps []model.ComplianceGap
	var strengths []string

	for _, req := range fw.Requirements {
		score := s.scoreRequirement(req, metrics, evidence)
		requirementScores[req.ID] = score

		if score < gapThreshold {
			gaps = append(gaps, buildGap(req, score))
		} else if score > strengthThreshold {
			strengths = append(strengths, fmt.Sprintf("%s: Strong compliance (%.1f%%)", req.Name, score*100))
		}
	}

	categoryScores := make(map[string]float64, len(fw.Categories))
	for _, cat := range fw.Categories {
		categoryScores[cat.ID] = categoryScore(fw, cat.ID, requirementScores)
	}

	assessment := model.ComplianceAssessment{
		FrameworkID:       fw.ID,
		FrameworkName:     fw.Name,
		OverallScore:      overallScore(fw, categoryScores, requirementScores),
		CategoryScores:    categoryScores,
		RequirementScores: requirementScores,
		Gaps:              gaps,
		Strengths:         strengths,
		Recommendations:   gapRecommendations(gaps),
		AssessedAt:        time.Now().UTC(),
	}

	zap.L().Debug("compliance: assessment complete",
		zap.String("framework", fw.ID),
		zap.Float64("score", assessment.OverallScore),
		zap.Int("gaps", len(gaps)))
	return assessment, nil
}

// Report assesses the metric set against several frameworks and aggregates
// the outcome.
func (s *Scorer) Report(metrics []model.Metric, frameworkIDs []string, evidence []model.Evidence) (model.ComplianceReport, error) {
	report := model.ComplianceReport{GeneratedAt: time.Now().UTC()}
	for _, id := range frameworkIDs {
		assessment, err := s.Assess(metrics, id, evidence)
		if err != nil {
			return model.ComplianceReport{}, err
		}
		report.Assessments = append(report.Assessments, assessment)
		report.OverallScore += assessment.OverallScore
		for _, gap := range assessment.Gaps {
			switch gap.Severity {
			case model.SeverityCritical:
				report.CriticalGaps++
			case model.SeverityHigh:
				report.HighPriorityGaps++
			}
		}
	}
	if len(report.Assessments) > 0 {
		report.OverallScore /= float64(len(report.Assessments))
	}
	return report, nil
}

// scoreRequirement blends the severity-weighted rule results with the
// average confidence of any evidence attached to the requirement.
func (s *Scorer) scoreRequirement(req Requirement, metrics []model.Metric, evidence []model.Evidence) float64 {
	score, totalWeight := 0.0, 0.0
	for _, rule := range req.Rules {
		w := severityWeight(rule.Severity)
		score += evaluateRule(rule, req, metrics, evidence) * w
		totalWeight += w
	}

	if avg, ok := evidenceConfidence(req.ID, evidence); ok {
		score += avg * evidenceWeight
		totalWeight += evidenceWeight
	}

	if totalWeight == 0 {
		return 0
	}
	return score / totalWeight
}

func evaluateRule(rule Rule, req Requirement, metrics []model.Metric, evidence []model.Evidence) float64 {
	relevant := relevantMetrics(req, metrics)

	switch rule.Type {
	case RulePresence:
		if len(relevant) > 0 {
			return 1.0
		}
		if _, ok := evidenceConfidence(req.ID, evidence); ok {
			return 0.8
		}
		return 0.0

	case RuleRange:
		if len(relevant) == 0 {
			return 0.0
		}
		lo, hi := math.Inf(-1), math.Inf(1)
		if rule.Min != nil {
			lo = *rule.Min
		}
		if rule.Max != nil {
			hi = *rule.Max
		}
		valid := 0
		for _, m := range relevant {
			if m.HasValue() && m.Val() >= lo && m.Val() <= hi {
				valid++
			}
		}
		return float64(valid) / float64(len(relevant))

	case RuleFormat:
		if len(relevant) == 0 {
			return 0.0
		}
		valid := 0
		for _, m := range relevant {
			if m.Name != "" && m.HasValue() && m.Unit != "" {
				valid++
			}
		}
		return float64(valid) / float64(len(relevant))

	case RuleConsistency:
		if len(relevant) < 2 {
			return 1.0
		}
		units := map[string]bool{}
		for _, m := range relevant {
			units[m.Unit] = true
		}
		if len(units) == 1 {
			return 1.0
		}
		return 0.5

	case RuleCompleteness:
		if len(relevant) == 0 {
			return 0.0
		}
		complete := 0
		for _, m := range relevant {
			if m.Name != "" && m.HasValue() && m.Unit != "" && m.Year != 0 {
				complete++
			}
		}
		return float64(complete) / float64(len(relevant))

	default:
		return 0.0
	}
}

// relevantMetrics selects metrics whose name or description mentions the
// requirement's canonical name or one of its keywords.
func relevantMetrics(req Requirement, metrics []model.Metric) []model.Metric {
	terms := append([]string{req.Name}, req.Keywords...)
	var relevant []model.Metric
	for _, m := range metrics {
		text := strings.ToLower(m.Name + " " + m.Description)
		for _, term := range terms {
			if strings.Contains(text, strings.ToLower(term)) {
				relevant = append(relevant, m)
				break
			}
		}
	}
	return relevant
}

func evidenceConfidence(requirementID string, evidence []model.Evidence) (float64, bool) {
	sum, n := 0.0, 0
	for _, e := range evidence {
		if e.RequirementID == requirementID {
			sum += e.Confidence
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func severityWeight(s model.Severity) float64 {
	switch s {
	case model.SeverityCritical:
		return 1.0
	case model.SeverityHigh:
		return 0.8
	case model.SeverityMedium:
		return 0.6
	case model.SeverityLow:
		return 0.4
	default:
		return 0.5
	}
}

// categoryScore is the requirement-weight-weighted average over the
// category's requirements.
func categoryScore(fw *Framework, categoryID string, requirementScores map[string]float64) float64 {
	score, totalWeight := 0.0, 0.0
	for _, req := range fw.Requirements {
		if req.CategoryID != categoryID {
			continue
		}
		score += requirementScores[req.ID] * req.Weight
		totalWeight += req.Weight
	}
	if totalWeight == 0 {
		return 0
	}
	return score / totalWeight
}

func overallScore(fw *Framework, categoryScores, requirementScores map[string]float64) float64 {
	switch fw.ScoringMethod {
	case ScoringWeighted:
		score, totalWeight := 0.0, 0.0
		for _, cat := range fw.Categories {
			score += categoryScores[cat.ID] * cat.Weight
			totalWeight += cat.Weight
		}
		if totalWeight == 0 {
			return 0
		}
		return score / totalWeight

	case ScoringBinary:
		mandatory, met := 0, 0
		for _, req := range fw.Requirements {
			if !req.Mandatory {
				continue
			}
			mandatory++
			if requirementScores[req.ID] >= binaryMetThreshold {
				met++
			}
		}
		if mandatory == 0 {
			return 0
		}
		return float64(met) / float64(mandatory)

	default: // percentage
		if len(fw.Requirements) == 0 {
			return 0
		}
		sum := 0.0
		for _, req := range fw.Requirements {
			sum += requirementScores[req.ID]
		}
		return sum / float64(len(fw.Requirements))
	}
}

func buildGap(req Requirement, score float64) model.ComplianceGap {
	severity := gapSeverity(score)
	return model.ComplianceGap{
		RequirementID:   req.ID,
		RequirementName: req.Name,
		CategoryID:      req.CategoryID,
		Severity:        severity,
		Description:     fmt.Sprintf("Requirement %s is not fully met (score: %.1f%%)", req.Name, score*100),
		Impact:          gapImpact(severity),
		Remediation:     fmt.Sprintf("Implement %s reporting and validation procedures. Consider automated data collection and verification.", req.Name),
		EstimatedEffort: gapEffort(severity),
	}
}

func gapSeverity(score float64) model.Severity {
	switch {
	case score < 0.2:
		return model.SeverityCritical
	case score < 0.5:
		return model.SeverityHigh
	case score < 0.7:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func gapImpact(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "High regulatory risk and potential non-compliance"
	case model.SeverityHigh:
		return "Significant compliance risk and stakeholder concern"
	case model.SeverityMedium:
		return "Moderate compliance risk"
	default:
		return "Minor compliance improvement opportunity"
	}
}

func gapEffort(severity model.Severity) model.Effort {
	switch severity {
	case model.SeverityCritical:
		return model.EffortHigh
	case model.SeverityLow:
		return model.EffortLow
	default:
		return model.EffortMedium
	}
}

func gapRecommendations(gaps []model.ComplianceGap) []string {
	critical, high := 0, 0
	for _, gap := range gaps {
		switch gap.Severity {
		case model.SeverityCritical:
			critical++
		case model.SeverityHigh:
			high++
		}
	}

	var recs []string
	if critical > 0 {
		recs = append(recs, fmt.Sprintf("Address %d critical compliance gaps immediately", critical))
	}
	if high > 0 {
		recs = append(recs, fmt.Sprintf("Prioritize %d high-priority compliance improvements", high))
	}
	if len(gaps) > 0 {
		recs = append(recs,
			"Implement automated compliance monitoring and reporting",
			"Establish regular compliance review and update procedures")
	}
	return recs
}
