package qa

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
)

// Rule family identifiers, reported on every verdict.
const (
	RuleFormat      = "format-validation"
	RuleRange       = "range-validation"
	RuleConsistency = "consistency-check"
	RuleOutlier     = "outlier-detection"
)

// Base confidence per rule family, degraded by a fixed multiplier when the
// family finds issues. The verdict confidence is the product across families.
var ruleConfidence = map[string]struct{ base, degraded float64 }{
	RuleFormat:      {0.95, 0.95 * 0.8},
	RuleRange:       {0.80, 0.80 * 0.9},
	RuleConsistency: {0.90, 0.90 * 0.85},
	RuleOutlier:     {0.85, 0.85 * 0.8},
}

// categoryRanges bounds metric values by domain keyword matched against the
// metric's name and category.
var categoryRanges = []struct {
	key      string
	min, max float64
}{
	{"emission", 0, 1000000},
	{"energy", 0, 1000000},
	{"water", 0, 1000000},
	{"waste", 0, 1000000},
}

// Validator applies the four independent rule families to candidate metrics.
type Validator struct {
	outlierK      float64
	minPopulation int
	corrections   *CorrectionLog
}

// NewValidator builds a Validator. Zero config values fall back to k=1.5 and
// a minimum peer population of 10.
func NewValidator(cfg config.QAConfig) *Validator {
	k := cfg.OutlierThreshold
	if k <= 0 {
		k = 1.5
	}
	minPop := cfg.OutlierMinPopulation
	if minPop <= 0 {
		minPop = 10
	}
	return &Validator{outlierK: k, minPopulation: minPop, corrections: NewCorrectionLog()}
}

// Corrections exposes the validator's audit log.
func (v *Validator) Corrections() *CorrectionLog { return v.corrections }

// ValidateBatch validates each metric against the whole batch.
func (v *Validator) ValidateBatch(metrics []model.Metric) []model.Verdict {
	verdicts := make([]model.Verdict, len(metrics))
	for i, m := range metrics {
		verdicts[i] = v.Validate(m, metrics)
	}
	return verdicts
}

// Validate runs all rule families on one metric. A metric is invalid iff at
// least one issue of high or critical severity was found; lower severities
// are recorded but do not invalidate.
func (v *Validator) Validate(m model.Metric, batch []model.Metric) model.Verdict {
	var issues []model.ValidationIssue
	confidence := 1.0
	rules := []string{RuleFormat, RuleRange, RuleConsistency, RuleOutlier}

	checks := []func(model.Metric, []model.Metric) ([]model.ValidationIssue, string){
		func(m model.Metric, _ []model.Metric) ([]model.ValidationIssue, string) {
			return v.checkFormat(m), RuleFormat
		},
		func(m model.Metric, _ []model.Metric) ([]model.ValidationIssue, string) {
			return v.checkRange(m), RuleRange
		},
		func(m model.Metric, b []model.Metric) ([]model.ValidationIssue, string) {
			return v.checkConsistency(m, b), RuleConsistency
		},
		func(m model.Metric, b []model.Metric) ([]model.ValidationIssue, string) {
			return v.checkOutlier(m, b), RuleOutlier
		},
	}

	for _, check := range checks {
		found, rule := check(m, batch)
		issues = append(issues, found...)
		rc := ruleConfidence[rule]
		if len(found) == 0 {
			confidence *= rc.base
		} else {
			confidence *= rc.degraded
		}
	}

	valid := true
	for _, issue := range issues {
		if issue.Severity.Invalidating() {
			valid = false
			break
		}
	}

	v.corrections.recordApplications(rules)

	return model.Verdict{
		MetricID:     m.ID,
		Valid:        valid,
		Confidence:   confidence,
		Issues:       issues,
		Suggestions:  suggestions(issues),
		RulesApplied: rules,
	}
}

func (v *Validator) checkFormat(m model.Metric) []model.ValidationIssue {
	var issues []model.ValidationIssue
	conf := ruleConfidence[RuleFormat].base

	required := []struct {
		field   string
		present bool
	}{
		{"name", m.Name != ""},
		{"value", m.HasValue()},
		{"unit", m.Unit != ""},
		{"year", m.Year != 0},
	}
	for _, r := range required {
		if !r.present {
			issues = append(issues, model.ValidationIssue{
				Kind:       model.IssueFormat,
				Severity:   model.SeverityCritical,
				Message:    fmt.Sprintf("missing required field: %s", r.field),
				Field:      r.field,
				Confidence: conf,
			})
		}
	}

	if m.HasValue() && (math.IsNaN(m.Val()) || math.IsInf(m.Val(), 0)) {
		issues = append(issues, model.ValidationIssue{
			Kind:       model.IssueFormat,
			Severity:   model.SeverityHigh,
			Message:    "field value should be a finite number",
			Field:      "value",
			Actual:     fmt.Sprintf("%v", m.Val()),
			Confidence: conf,
		})
	}

	if m.Year != 0 {
		maxYear := time.Now().Year() + 10
		if m.Year < 1900 || m.Year > maxYear {
			issues = append(issues, model.ValidationIssue{
				Kind:       model.IssueFormat,
				Severity:   model.SeverityMedium,
				Message:    fmt.Sprintf("field year should be a valid year, got %d", m.Year),
				Field:      "year",
				Expected:   fmt.Sprintf("1900 - %d", maxYear),
				Actual:     fmt.Sprintf("%d", m.Year),
				Confidence: conf,
			})
		}
	}

	return issues
}

func (v *Validator) checkRange(m model.Metric) []model.ValidationIssue {
	var issues []model.ValidationIssue
	conf := ruleConfidence[RuleRange].base

	if m.HasValue() {
		domain := strings.ToLower(m.Name + " " + string(m.Category))
		for _, r := range categoryRanges {
			if !strings.Contains(domain, r.key) {
				continue
			}
			if m.Val() < r.min || m.Val() > r.max {
				issues = append(issues, model.ValidationIssue{
					Kind:       model.IssueRange,
					Severity:   model.SeverityMedium,
					Message:    fmt.Sprintf("value %g is outside expected range for %s", m.Val(), r.key),
					Field:      "value",
					Expected:   fmt.Sprintf("%g - %g", r.min, r.max),
					Actual:     fmt.Sprintf("%g", m.Val()),
					Confidence: conf,
				})
			}
			break
		}
	}

	if m.HasValue() && strings.Contains(strings.ToLower(m.Unit), "%") {
		if m.Val() < 0 || m.Val() > 100 {
			issues = append(issues, model.ValidationIssue{
				Kind:       model.IssueRange,
				Severity:   model.SeverityHigh,
				Message:    fmt.Sprintf("percentage value %g%% is outside valid range", m.Val()),
				Field:      "value",
				Expected:   "0% - 100%",
				Actual:     fmt.Sprintf("%g%%", m.Val()),
				Confidence: conf,
			})
		}
	}

	return issues
}

func (v *Validator) checkConsistency(m model.Metric, batch []model.Metric) []model.ValidationIssue {
	var issues []model.ValidationIssue
	conf := ruleConfidence[RuleConsistency].base

	if m.Year != 0 {
		maxYear := time.Now().Year() + 1
		if m.Year > maxYear {
			issues = append(issues, model.ValidationIssue{
				Kind:       model.IssueConsistency,
				Severity:   model.SeverityMedium,
				Message:    fmt.Sprintf("year %d is in the future", m.Year),
				Field:      "year",
				Expected:   fmt.Sprintf("<= %d", maxYear),
				Actual:     fmt.Sprintf("%d", m.Year),
				Confidence: conf,
			})
		}
	}

	if m.Unit != "" {
		if expected, mismatch := v.unitMismatch(m, batch); mismatch {
			issues = append(issues, model.ValidationIssue{
				Kind:       model.IssueConsistency,
				Severity:   model.SeverityMedium,
				Message:    "unit inconsistency detected among similar metrics",
				Field:      "unit",
				Expected:   expected,
				Actual:     m.Unit,
				Confidence: conf,
			})
		}
	}

	if m.Category != "" && !validCategory(m.Category) {
		issues = append(issues, model.ValidationIssue{
			Kind:       model.IssueConsistency,
			Severity:   model.SeverityLow,
			Message:    fmt.Sprintf("category %q is not standard", m.Category),
			Field:      "category",
			Expected:   categoryList(),
			Actual:     string(m.Category),
			Confidence: conf,
		})
	}

	return issues
}

// unitMismatch reports whether metrics sharing the category and leading name
// word use units that disagree with this metric's unit.
func (v *Validator) unitMismatch(m model.Metric, batch []model.Metric) (string, bool) {
	prefix := strings.ToLower(strings.SplitN(m.Name, " ", 2)[0])
	if prefix == "" {
		return "", false
	}

	seen := map[string]bool{}
	var units []string
	for _, other := range batch {
		if other.ID == m.ID || other.Category != m.Category {
			continue
		}
		if !strings.Contains(strings.ToLower(other.Name), prefix) {
			continue
		}
		if other.Unit != "" && !seen[other.Unit] {
			seen[other.Unit] = true
			units = append(units, other.Unit)
		}
	}

	if len(units) > 1 && !seen[m.Unit] {
		sort.Strings(units)
		return strings.Join(units, " or "), true
	}
	return "", false
}

func (v *Validator) checkOutlier(m model.Metric, batch []model.Metric) []model.ValidationIssue {
	if !m.HasValue() {
		return nil
	}

	var peers []float64
	for _, other := range batch {
		if other.ID == m.ID || !other.HasValue() {
			continue
		}
		if other.Category == m.Category && other.Unit == m.Unit {
			peers = append(peers, other.Val())
		}
	}
	if len(peers) < v.minPopulation {
		return nil
	}

	sort.Float64s(peers)
	q1 := percentile(peers, 25)
	q3 := percentile(peers, 75)
	iqr := q3 - q1
	lower := q1 - v.outlierK*iqr
	upper := q3 + v.outlierK*iqr

	if m.Val() < lower || m.Val() > upper {
		return []model.ValidationIssue{{
			Kind:       model.IssueOutlier,
			Severity:   model.SeverityMedium,
			Message:    fmt.Sprintf("value %g appears to be an outlier", m.Val()),
			Field:      "value",
			Expected:   fmt.Sprintf("%.2f - %.2f", lower, upper),
			Actual:     fmt.Sprintf("%g", m.Val()),
			Confidence: ruleConfidence[RuleOutlier].base * 0.8,
		}}
	}
	return nil
}

// percentile computes a linearly interpolated percentile over sorted values.
func percentile(sorted []float64, p float64) float64 {
	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if upper >= len(sorted) {
		return sorted[lower]
	}
	if lower == upper {
		return sorted[lower]
	}
	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

func validCategory(c model.Category) bool {
	for _, valid := range model.ValidCategories {
		if c == valid {
			return true
		}
	}
	return false
}

func categoryList() string {
	parts := make([]string, len(model.ValidCategories))
	for i, c := range model.ValidCategories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func suggestions(issues []model.ValidationIssue) []string {
	var out []string

	has := func(pred func(model.ValidationIssue) bool) bool {
		for _, issue := range issues {
			if pred(issue) {
				return true
			}
		}
		return false
	}

	if has(func(i model.ValidationIssue) bool { return i.Severity == model.SeverityCritical }) {
		out = append(out, "Critical issues detected. Review and correct before proceeding.")
	}
	if has(func(i model.ValidationIssue) bool { return i.Severity == model.SeverityHigh }) {
		out = append(out, "High priority issues found. Consider reviewing these values.")
	}
	if has(func(i model.ValidationIssue) bool { return i.Kind == model.IssueFormat }) {
		out = append(out, "Data format issues detected. Check field types and required fields.")
	}
	if has(func(i model.ValidationIssue) bool { return i.Kind == model.IssueOutlier }) {
		out = append(out, "Potential outliers detected. Verify these values are correct.")
	}

	return out
}
