package carbon

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed benchmarks.yaml
var benchmarksYAML []byte

// carbonKeywords gate which metrics enter the analysis at all.
var carbonKeywords = []string{
	"emission", "carbon", "ghg", "co2", "greenhouse gas",
	"scope 1", "scope 2", "scope 3", "energy", "fuel",
	"electricity", "natural gas", "diesel", "gasoline",
}

// trendBand is the growth-rate band inside which a year-over-year movement
// counts as stable.
const trendBand = 0.05

// Options supplies business denominators for intensity ratios. Zero fields
// fall back to placeholder defaults.
type Options struct {
	Revenue    float64 // annual revenue in dollars
	Production float64 // units produced
	Employees  float64
	Energy     float64 // annual consumption in kWh
}

func (o Options) withDefaults() Options {
	if o.Revenue == 0 {
		o.Revenue = 1000000
	}
	if o.Production == 0 {
		o.Production = 10000
	}
	if o.Employees == 0 {
		o.Employees = 100
	}
	if o.Energy == 0 {
		o.Energy = 500000
	}
	return o
}

type benchmarkEntry struct {
	Industry         string   `yaml:"industry"`
	PeerGroup        string   `yaml:"peer_group"`
	AverageEmissions float64  `yaml:"average_emissions"`
	BestInClass      float64  `yaml:"best_in_class"`
	Recommendations  []string `yaml:"recommendations"`
}

// Analyzer derives emissions analytics from extracted metrics.
type Analyzer struct {
	benchmarks []benchmarkEntry
}

// NewAnalyzer loads the embedded industry benchmark table.
func NewAnalyzer() (*Analyzer, error) {
	var doc struct {
		Benchmarks []benchmarkEntry `yaml:"benchmarks"`
	}
	if err := yaml.Unmarshal(benchmarksYAML, &doc); err != nil {
		return nil, eris.Wrap(err, "carbon: parse benchmarks")
	}
	return &Analyzer{benchmarks: doc.Benchmarks}, nil
}

// Analyze filters the metric set down to carbon-relevant entries, classifies
// scopes, and produces totals, scenarios, trends, and a benchmark position.
func (a *Analyzer) Analyze(metrics []model.Metric, industry string, opts Options) model.CarbonAnalysis {
	carbonMetrics := extractCarbonMetrics(metrics)
	calculation := calculateEmissions(carbonMetrics, opts.withDefaults())
	scenarios := generateScenarios(calculation)
	trends := analyzeTrends(carbonMetrics)
	benchmark := a.benchmark(industry, calculation.TotalEmissions)

	analysis := model.CarbonAnalysis{
		Metrics:         carbonMetrics,
		Calculation:     calculation,
		Scenarios:       scenarios,
		Trends:          trends,
		Benchmark:       benchmark,
		Insights:        generateInsights(calculation, scenarios, trends, benchmark),
		Recommendations: generateRecommendations(calculation, benchmark),
		GeneratedAt:     time.Now().UTC(),
	}

	zap.L().Debug("carbon: analysis complete",
		zap.Int("metrics", len(carbonMetrics)),
		zap.Float64("total_emissions", calculation.TotalEmissions))
	return analysis
}

func extractCarbonMetrics(metrics []model.Metric) []model.CarbonMetric {
	var out []model.CarbonMetric
	for _, m := range metrics {
		text := strings.ToLower(m.Name + " " + m.Description)
		relevant := false
		for _, kw := range carbonKeywords {
			if strings.Contains(text, kw) {
				relevant = true
				break
			}
		}
		if !relevant {
			continue
		}
		out = append(out, convertMetric(m, text))
	}
	return out
}

func convertMetric(m model.Metric, text string) model.CarbonMetric {
	cm := model.CarbonMetric{
		ID:         m.ID,
		Name:       m.Name,
		Value:      m.Val(),
		Unit:       m.Unit,
		Year:       m.Year,
		Scope:      classifyScope(m, text),
		Category:   classifyCategory(text),
		Source:     m.Provenance.SourceFile,
		Confidence: m.Confidence,
	}
	if cm.Unit == "" {
		cm.Unit = "tCO2e"
	}
	if cm.Year == 0 {
		cm.Year = time.Now().Year()
	}
	if cm.Source == "" {
		cm.Source = "extracted"
	}
	if cm.Confidence == 0 {
		cm.Confidence = 0.8
	}
	return cm
}

// classifyScope resolves the emission scope. An explicit scope on the metric
// or in its text wins; otherwise activity language decides, defaulting to
// scope 1.
func classifyScope(m model.Metric, text string) int {
	if m.Scope >= 1 && m.Scope <= 3 {
		return m.Scope
	}
	switch {
	case strings.Contains(text, "scope 1") || strings.Contains(text, "direct"):
		return 1
	case strings.Contains(text, "scope 2") || strings.Contains(text, "indirect") || strings.Contains(text, "electricity"):
		return 2
	case strings.Contains(text, "scope 3") || strings.Contains(text, "value chain") || strings.Contains(text, "supply chain"):
		return 3
	case strings.Contains(text, "energy"):
		return 2
	case strings.Contains(text, "travel") || strings.Contains(text, "waste") || strings.Contains(text, "water"):
		return 3
	default:
		return 1
	}
}

func classifyCategory(text string) string {
	switch {
	case strings.Contains(text, "energy") || strings.Contains(text, "electricity"):
		return "Energy"
	case strings.Contains(text, "fuel") || strings.Contains(text, "gas") || strings.Contains(text, "diesel"):
		return "Fuel"
	case strings.Contains(text, "waste"):
		return "Waste"
	case strings.Contains(text, "water"):
		return "Water"
	case strings.Contains(text, "travel") || strings.Contains(text, "transport"):
		return "Transport"
	case strings.Contains(text, "paper") || strings.Contains(text, "office"):
		return "Office"
	default:
		return "Other"
	}
}

func calculateEmissions(metrics []model.CarbonMetric, opts Options) model.CarbonCalculation {
	calc := model.CarbonCalculation{}
	for _, m := range metrics {
		switch m.Scope {
		case 1:
			calc.Scope1Emissions += m.Value
		case 2:
			calc.Scope2Emissions += m.Value
		case 3:
			calc.Scope3Emissions += m.Value
		}
	}
	calc.TotalEmissions = calc.Scope1Emissions + calc.Scope2Emissions + calc.Scope3Emissions

	calc.Intensity = model.IntensityMetrics{
		PerRevenue:    calc.TotalEmissions / (opts.Revenue / 1000),
		PerProduction: calc.TotalEmissions / opts.Production,
		PerEmployee:   calc.TotalEmissions / opts.Employees,
		PerEnergy:     calc.TotalEmissions / (opts.Energy / 1000),
	}
	calc.Breakdown = calculateBreakdown(metrics)
	calc.Uncertainty = calculateUncertainty(metrics)
	return calc
}

func calculateBreakdown(metrics []model.CarbonMetric) model.CarbonBreakdown {
	breakdown := model.CarbonBreakdown{
		BySource:       map[string]float64{},
		ByCategory:     map[string]float64{},
		ByLocation:     map[string]float64{},
		ByBusinessUnit: map[string]float64{},
	}
	for _, m := range metrics {
		breakdown.BySource[m.Source] += m.Value
		breakdown.ByCategory[m.Category] += m.Value
		// location and business-unit splits need finer input data than a
		// single report provides
		breakdown.ByLocation["Main Office"] += m.Value
		breakdown.ByBusinessUnit["Operations"] += m.Value
	}
	return breakdown
}

// calculateUncertainty blends average metric confidence with data
// completeness, where ten records count as a complete dataset.
func calculateUncertainty(metrics []model.CarbonMetric) float64 {
	if len(metrics) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range metrics {
		sum += m.Confidence
	}
	avgConfidence := sum / float64(len(metrics))

	completeness := float64(len(metrics)) / 10
	if completeness > 1 {
		completeness = 1
	}

	u := (1-avgConfidence)*0.7 + (1-completeness)*0.3
	if u < 0 {
		return 0
	}
	if u > 1 {
		return 1
	}
	return u
}

func generateScenarios(calc model.CarbonCalculation) []model.CarbonScenario {
	total := calc.TotalEmissions
	return []model.CarbonScenario{
		{
			ID:                 "bau",
			Name:               "Business as Usual",
			Description:        "No additional carbon reduction measures",
			ProjectedEmissions: total * 1.05,
			ReductionPotential: 0,
			CostEstimate:       0,
			TimelineYears:      5,
			Confidence:         0.9,
		},
		{
			ID:                 "moderate",
			Name:               "Moderate Reduction",
			Description:        "Implement standard energy efficiency and renewable energy measures",
			ProjectedEmissions: total * 0.75,
			ReductionPotential: 0.25,
			CostEstimate:       total * 50,
			TimelineYears:      3,
			Confidence:         0.8,
		},
		{
			ID:                 "aggressive",
			Name:               "Aggressive Reduction",
			Description:        "Comprehensive decarbonization strategy with significant investment",
			ProjectedEmissions: total * 0.4,
			ReductionPotential: 0.6,
			CostEstimate:       total * 150,
			TimelineYears:      5,
			Confidence:         0.7,
		},
		{
			ID:                 "net-zero",
			Name:               "Net Zero",
			Description:        "Achieve net zero emissions through comprehensive decarbonization and offsets",
			ProjectedEmissions: 0,
			ReductionPotential: 1.0,
			CostEstimate:       total * 300,
			TimelineYears:      10,
			Confidence:         0.6,
		},
	}
}

func analyzeTrends(metrics []model.CarbonMetric) []model.CarbonTrend {
	yearly := map[int]float64{}
	for _, m := range metrics {
		yearly[m.Year] += m.Value
	}

	years := make([]int, 0, len(yearly))
	for y := range yearly {
		years = append(years, y)
	}
	sort.Ints(years)

	var trends []model.CarbonTrend
	for i := 1; i < len(years); i++ {
		current, previous := yearly[years[i]], yearly[years[i-1]]
		growth := 0.0
		if previous > 0 {
			growth = (current - previous) / previous
		}

		direction := "stable"
		if growth > trendBand {
			direction = "increasing"
		} else if growth < -trendBand {
			direction = "decreasing"
		}

		trends = append(trends, model.CarbonTrend{
			Period:     fmt.Sprintf("%d-%d", years[i-1], years[i]),
			Emissions:  current,
			GrowthRate: growth,
			Direction:  direction,
			Confidence: 0.8,
		})
	}
	return trends
}

func (a *Analyzer) benchmark(industry string, totalEmissions float64) *model.CarbonBenchmark {
	for _, b := range a.benchmarks {
		if !strings.EqualFold(b.Industry, industry) {
			continue
		}
		return &model.CarbonBenchmark{
			Industry:         b.Industry,
			PeerGroup:        b.PeerGroup,
			AverageEmissions: b.AverageEmissions,
			BestInClass:      b.BestInClass,
			Percentile:       percentile(totalEmissions, b.AverageEmissions, b.BestInClass),
			Gap:              totalEmissions - b.BestInClass,
			Recommendations:  b.Recommendations,
		}
	}
	return nil
}

// percentile interpolates between best-in-class (100) and twice the industry
// average (0).
func percentile(value, average, bestInClass float64) float64 {
	if value <= bestInClass {
		return 100
	}
	worst := average * 2
	if value >= worst {
		return 0
	}
	p := 100 - (value-bestInClass)/(worst-bestInClass)*100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func generateInsights(calc model.CarbonCalculation, scenarios []model.CarbonScenario, trends []model.CarbonTrend, benchmark *model.CarbonBenchmark) []string {
	var insights []string

	if calc.Scope3Emissions > calc.Scope1Emissions+calc.Scope2Emissions {
		insights = append(insights, "Scope 3 emissions dominate your carbon footprint, indicating significant supply chain impact")
	}
	if calc.Scope2Emissions > calc.Scope1Emissions {
		insights = append(insights, "Electricity consumption is your largest emission source - consider renewable energy options")
	}

	if len(trends) > 0 {
		switch trends[len(trends)-1].Direction {
		case "increasing":
			insights = append(insights, "Emissions are trending upward - immediate action needed to reverse this trend")
		case "decreasing":
			insights = append(insights, "Emissions are decreasing - continue current reduction strategies")
		}
	}

	if benchmark != nil {
		if benchmark.Percentile < 25 {
			insights = append(insights, fmt.Sprintf("You're in the top 25%% of %s companies for carbon performance", benchmark.Industry))
		} else if benchmark.Percentile > 75 {
			insights = append(insights, fmt.Sprintf("You're below average for %s - significant improvement opportunities exist", benchmark.Industry))
		}
	}

	for _, s := range scenarios {
		if s.ID == "moderate" {
			insights = append(insights, fmt.Sprintf("Moderate reduction scenario could save %.0f%% of emissions at an estimated $%.0f", s.ReductionPotential*100, s.CostEstimate))
		}
	}
	return insights
}

func generateRecommendations(calc model.CarbonCalculation, benchmark *model.CarbonBenchmark) []string {
	var recs []string

	if calc.Scope2Emissions > calc.Scope1Emissions {
		recs = append(recs,
			"Switch to renewable energy sources for electricity",
			"Implement energy efficiency programs")
	}
	if calc.Scope3Emissions > calc.Scope1Emissions+calc.Scope2Emissions {
		recs = append(recs,
			"Engage with suppliers to reduce supply chain emissions",
			"Implement sustainable procurement policies")
	}

	recs = append(recs,
		"Conduct energy audits to identify efficiency opportunities",
		"Implement employee engagement programs for carbon reduction",
		"Set science-based targets for carbon reduction",
		"Develop a comprehensive carbon reduction roadmap",
		"Invest in carbon removal technologies",
		"Consider carbon offset programs for unavoidable emissions")

	if benchmark != nil && benchmark.Percentile > 50 {
		recs = append(recs, benchmark.Recommendations...)
	}
	return recs
}
