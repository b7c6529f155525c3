package framework

import (
	"fmt"
	"sort"
	"strings"

	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
)

// detectionThreshold drops frameworks whose pattern score does not clear it.
const detectionThreshold = 0.1

// Engine matches document content and candidate metrics against the
// framework catalog.
type Engine struct {
	catalog *Catalog
}

// NewEngine wires an Engine over a loaded catalog.
func NewEngine(catalog *Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog exposes the underlying definitions, for listing surfaces.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Detect evaluates every framework's detection patterns against the
// document. Per framework, confidence is the fraction of patterns that
// matched; frameworks below the threshold are dropped.
func (e *Engine) Detect(content string) model.DetectionResult {
	var detected []model.DetectedFramework
	total := 0.0

	for i := range e.catalog.Frameworks {
		def := &e.catalog.Frameworks[i]
		matched := 0
		for _, re := range def.compiled {
			if re.MatchString(content) {
				matched++
			}
		}
		if len(def.compiled) == 0 {
			continue
		}

		confidence := float64(matched) / float64(len(def.compiled))
		if confidence <= detectionThreshold {
			continue
		}

		detected = append(detected, model.DetectedFramework{
			FrameworkID:         def.ID,
			FrameworkName:       def.Name,
			Confidence:          confidence,
			MatchedMetrics:      matchedMetricIDs(content, def),
			MatchedRequirements: matchedRequirementIDs(content, def),
		})
		total += confidence
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Confidence > detected[j].Confidence
	})

	result := model.DetectionResult{
		Frameworks:      detected,
		Recommendations: detectionRecommendations(detected),
	}
	if len(detected) > 0 {
		result.Confidence = total / float64(len(detected))
	}

	zap.L().Debug("framework: detection complete",
		zap.Int("frameworks", len(detected)),
		zap.Float64("confidence", result.Confidence))
	return result
}

func matchedMetricIDs(content string, def *Definition) []string {
	lower := strings.ToLower(content)
	var ids []string
	for _, m := range def.Metrics {
		terms := append([]string{m.Name}, m.Aliases...)
		for _, term := range terms {
			if strings.Contains(lower, strings.ToLower(term)) {
				ids = append(ids, m.ID)
				break
			}
		}
	}
	return ids
}

func matchedRequirementIDs(content string, def *Definition) []string {
	lower := strings.ToLower(content)
	var ids []string
	for _, r := range def.Requirements {
		if strings.Contains(lower, strings.ToLower(r.Description)) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func detectionRecommendations(detected []model.DetectedFramework) []string {
	if len(detected) == 0 {
		return []string{"No specific ESG frameworks detected. Consider using GRI, SASB, or TCFD standards."}
	}

	var recs []string
	seen := map[string]bool{}
	for _, d := range detected {
		seen[d.FrameworkID] = true
		if d.Confidence > 0.7 {
			recs = append(recs, fmt.Sprintf("Strong %s alignment detected. Ensure all mandatory metrics are reported.", d.FrameworkName))
		} else if d.Confidence > 0.3 {
			recs = append(recs, fmt.Sprintf("Partial %s alignment. Review missing metrics and requirements.", d.FrameworkName))
		}
	}
	if seen["gri"] && seen["sasb"] {
		recs = append(recs, "Both GRI and SASB detected. Consider integrated reporting approach.")
	}
	return recs
}

// Map links candidate metrics to framework metrics. A candidate maps to a
// framework metric on name/alias containment, or as a fallback when the two
// share at least two significant words; confidence is the Jaccard similarity
// of the word sets.
func (e *Engine) Map(metrics []model.Metric) []model.FrameworkMapping {
	var mappings []model.FrameworkMapping
	for _, m := range metrics {
		for i := range e.catalog.Frameworks {
			def := &e.catalog.Frameworks[i]
			for _, fm := range def.Metrics {
				if !matches(m, fm) {
					continue
				}
				mappings = append(mappings, model.FrameworkMapping{
					MetricID:            m.ID,
					FrameworkID:         def.ID,
					FrameworkName:       def.Name,
					FrameworkMetricID:   fm.ID,
					FrameworkMetricName: fm.Name,
					Confidence:          jaccard(metricText(m), fm.Name+" "+fm.Description),
					Status:              complianceStatus(m, fm),
				})
			}
		}
	}
	return mappings
}

func metricText(m model.Metric) string {
	return m.Name + " " + m.Description + " " + string(m.Category)
}

func matches(m model.Metric, fm Metric) bool {
	text := strings.ToLower(metricText(m))
	if strings.Contains(text, strings.ToLower(fm.Name)) {
		return true
	}
	for _, alias := range fm.Aliases {
		if strings.Contains(text, strings.ToLower(alias)) {
			return true
		}
	}

	combined := fm.Name + " " + fm.Description + " " + strings.Join(fm.Aliases, " ")
	return sharedSignificantWords(text, strings.ToLower(combined)) >= 2
}

// sharedSignificantWords counts distinct words longer than three characters
// present in both texts.
func sharedSignificantWords(a, b string) int {
	bWords := map[string]bool{}
	for _, w := range strings.Fields(b) {
		if len(w) > 3 {
			bWords[w] = true
		}
	}
	shared := map[string]bool{}
	for _, w := range strings.Fields(a) {
		if len(w) > 3 && bWords[w] {
			shared[w] = true
		}
	}
	return len(shared)
}

// jaccard is word-set intersection over union.
func jaccard(a, b string) float64 {
	aWords := wordSet(strings.ToLower(a))
	bWords := wordSet(strings.ToLower(b))
	if len(aWords) == 0 && len(bWords) == 0 {
		return 0
	}

	intersection := 0
	for w := range aWords {
		if bWords[w] {
			intersection++
		}
	}
	union := len(aWords) + len(bWords) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}

// complianceStatus is a heuristic gate, not full requirement scoring: a
// valueless candidate is non-compliant when the framework metric is
// required, partial otherwise.
func complianceStatus(m model.Metric, fm Metric) model.ComplianceStatus {
	if !m.HasValue() || m.Val() == 0 {
		if fm.Required {
			return model.StatusNonCompliant
		}
		return model.StatusPartial
	}
	return model.StatusCompliant
}
