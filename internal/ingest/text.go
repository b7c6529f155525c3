package ingest

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/verdantiq/esg-cli/internal/model"
)

// kpiLineRE matches "name: value [unit]" statements. The name must be
// separated from the value by a colon or dash so that prose years and page
// numbers do not produce phantom metrics. Units are at most two tokens, each
// starting with a letter or percent sign.
var kpiLineRE = regexp.MustCompile(
	`([A-Za-z][A-Za-z0-9 /()&-]{2,60}?)\s*[:\-]\s*([\d,]+(?:\.\d+)?)\s*([A-Za-z%][A-Za-z0-9%/]*(?: [A-Za-z][A-Za-z0-9%/]*)?)?`)

var (
	yearRE      = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	scopeRE     = regexp.MustCompile(`(?i)\bscope\s*([123])\b`)
	htmlTagRE   = regexp.MustCompile(`(?s)<[^>]*>`)
	slugStripRE = regexp.MustCompile(`[^a-z0-9]+`)
)

var unitStopwords = map[string]bool{
	"in": true, "of": true, "for": true, "per": true, "during": true,
	"and": true, "by": true, "at": true, "on": true,
}

// parseNumber reads a decimal with optional thousands separators.
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func slugify(s string) string {
	return strings.Trim(slugStripRE.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// categorize buckets a metric by name keywords.
func categorize(name string) model.Category {
	lower := strings.ToLower(name)
	switch {
	case containsAnyOf(lower, "emission", "carbon", "co2", "ghg", "energy",
		"water", "waste", "renewable", "scope", "fuel", "electricity"):
		return model.CategoryEnvironmental
	case containsAnyOf(lower, "employee", "diversity", "safety", "training",
		"community", "gender", "turnover", "injury"):
		return model.CategorySocial
	case containsAnyOf(lower, "board", "ethics", "compliance", "audit",
		"corruption", "governance", "director"):
		return model.CategoryGovernance
	default:
		return model.CategoryOther
	}
}

func containsAnyOf(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// scanMetrics extracts candidate metrics from free text. Identifiers are
// derived from the metric name plus ordinal so repeated runs over the same
// input produce the same ids.
func scanMetrics(text, sourceFile string) []model.Metric {
	now := time.Now().UTC()
	defaultYear := reportYear(text)
	matches := kpiLineRE.FindAllStringSubmatchIndex(text, -1)

	var metrics []model.Metric
	for i, loc := range matches {
		name := strings.TrimSpace(text[loc[2]:loc[3]])
		if len(name) < 3 {
			continue
		}
		value, err := parseNumber(text[loc[4]:loc[5]])
		if err != nil {
			continue
		}

		unit := ""
		if loc[6] >= 0 {
			unit = cleanUnit(text[loc[6]:loc[7]])
		}

		confidence := 0.6
		if unit != "" {
			confidence += 0.15
		}

		m := model.Metric{
			ID:         fmt.Sprintf("%s-%d", slugify(name), i),
			Name:       name,
			Value:      model.Float(value),
			Unit:       unit,
			Category:   categorize(name),
			Confidence: confidence,
			Provenance: model.Provenance{
				SourceText:  snippet(text, loc[0], loc[1]),
				SourceFile:  sourceFile,
				Page:        1,
				ExtractedAt: now,
			},
		}

		if sm := scopeRE.FindStringSubmatch(name); sm != nil {
			m.Scope, _ = strconv.Atoi(sm[1])
			m.Category = model.CategoryEnvironmental
			m.Confidence += 0.1
		}
		if ym := yearRE.FindString(snippet(text, loc[0], loc[1])); ym != "" {
			m.Year, _ = strconv.Atoi(ym)
			m.Confidence += 0.05
		} else {
			m.Year = defaultYear
		}
		if m.Confidence > 0.95 {
			m.Confidence = 0.95
		}

		metrics = append(metrics, m)
	}
	return metrics
}

// reportYear picks the reporting year for metrics that carry none in their
// own context: the first year mentioned anywhere in the document, falling
// back to the current year.
func reportYear(text string) int {
	if ym := yearRE.FindString(text); ym != "" {
		y, _ := strconv.Atoi(ym)
		return y
	}
	return time.Now().Year()
}

// cleanUnit drops trailing filler tokens picked up by the unit capture.
func cleanUnit(unit string) string {
	tokens := strings.Fields(unit)
	for len(tokens) > 0 && unitStopwords[strings.ToLower(tokens[len(tokens)-1])] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// snippet returns the match plus a little surrounding context.
func snippet(text string, start, end int) string {
	lo := start - 40
	if lo < 0 {
		lo = 0
	}
	hi := end + 40
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

type textParser struct{}

func (p *textParser) ID() string { return "text" }

func (p *textParser) Supports(t model.ContentType) bool { return t == model.ContentText }

func (p *textParser) Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	return scanMetrics(string(content), meta.FileName), 0.6, nil
}

// pdfParser handles pre-extracted PDF text. Binary PDF decoding happens
// upstream; by the time content reaches the router it is already text.
type pdfParser struct{}

func (p *pdfParser) ID() string { return "pdf" }

func (p *pdfParser) Supports(t model.ContentType) bool { return t == model.ContentPDF }

func (p *pdfParser) Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	return scanMetrics(string(content), meta.FileName), 0.8, nil
}

type htmlParser struct{}

func (p *htmlParser) ID() string { return "html" }

func (p *htmlParser) Supports(t model.ContentType) bool { return t == model.ContentHTML }

func (p *htmlParser) Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	stripped := html.UnescapeString(htmlTagRE.ReplaceAllString(string(content), " "))
	return scanMetrics(stripped, meta.FileName), 0.7, nil
}
