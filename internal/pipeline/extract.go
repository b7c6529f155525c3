package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/verdantiq/esg-cli/internal/model"
)

// kpiPattern recognizes one well-known metric statement. Patterns are
// evaluated in order and a value position claimed by an earlier pattern is
// skipped by later ones, so a scope line does not also count as generic
// carbon emissions.
type kpiPattern struct {
	re    *regexp.Regexp
	name  string
	unit  string
	scope int
}

var kpiPatterns = []kpiPattern{
	{regexp.MustCompile(`(?i)scope\s*1[^.\d]*?([\d,]+(?:\.\d+)?)`), "Scope 1 Emissions", "tCO2e", 1},
	{regexp.MustCompile(`(?i)scope\s*2[^.\d]*?([\d,]+(?:\.\d+)?)`), "Scope 2 Emissions", "tCO2e", 2},
	{regexp.MustCompile(`(?i)scope\s*3[^.\d]*?([\d,]+(?:\.\d+)?)`), "Scope 3 Emissions", "tCO2e", 3},
	{regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:tonnes?|tons?|t)\s+(?:of\s+)?(?:CO2e?|carbon|emissions)`), "Carbon Emissions", "tons", 0},
	{regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:kWh|kilowatt[- ]hours?)`), "Energy Consumption", "kWh", 0},
	{regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:tonnes?|tons?|t)\s+(?:of\s+)?waste`), "Waste Generation", "tons", 0},
	{regexp.MustCompile(`(?i)([\d,]+(?:\.\d+)?)\s*(?:liters?|litres?|gallons?)\s+(?:of\s+)?water`), "Water Consumption", "liters", 0},
}

var reportYearRE = regexp.MustCompile(`\b(20\d{2})\b`)

// ExtractPatternMetrics pulls metrics from text using fixed patterns. It is
// the extraction stage's baseline and the orchestrator's last resort when
// both ingestion and the pipeline come up empty.
func ExtractPatternMetrics(content string) []model.Metric {
	now := time.Now().UTC()

	year := time.Now().Year()
	if ym := reportYearRE.FindString(content); ym != "" {
		year, _ = strconv.Atoi(ym)
	}

	claimed := make([][2]int, 0, 8)
	overlaps := func(start, end int) bool {
		for _, c := range claimed {
			if start < c[1] && end > c[0] {
				return true
			}
		}
		return false
	}

	var metrics []model.Metric
	for _, p := range kpiPatterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(content, -1) {
			vStart, vEnd := loc[2], loc[3]
			if overlaps(vStart, vEnd) {
				continue
			}
			value, err := strconv.ParseFloat(strings.ReplaceAll(content[vStart:vEnd], ",", ""), 64)
			if err != nil {
				continue
			}
			claimed = append(claimed, [2]int{vStart, vEnd})

			m := model.Metric{
				ID:          fmt.Sprintf("kpi-%s-%d", slug(p.name), len(metrics)),
				Name:        p.name,
				Value:       model.Float(value),
				Unit:        p.unit,
				Category:    model.CategoryEnvironmental,
				Year:        year,
				Description: content[loc[0]:loc[1]],
				Confidence:  0.8,
				Scope:       p.scope,
				Provenance: model.Provenance{
					SourceText:  content[loc[0]:loc[1]],
					SourceFile:  "pattern-extraction",
					Page:        1,
					ExtractedAt: now,
				},
			}
			metrics = append(metrics, m)
		}
	}
	return metrics
}

var slugRE = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	return strings.Trim(slugRE.ReplaceAllString(strings.ToLower(s), "-"), "-")
}
