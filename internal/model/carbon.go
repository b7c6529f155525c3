package model

import "time"

// CarbonMetric is a carbon-relevant metric with a resolved emission scope.
type CarbonMetric struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Year       int     `json:"year"`
	Scope      int     `json:"scope"`
	Category   string  `json:"category"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// IntensityMetrics are emissions normalized against business denominators.
type IntensityMetrics struct {
	PerRevenue    float64 `json:"per_revenue"`    // tCO2e per $1K revenue
	PerProduction float64 `json:"per_production"` // tCO2e per unit produced
	PerEmployee   float64 `json:"per_employee"`   // tCO2e per employee
	PerEnergy     float64 `json:"per_energy"`     // tCO2e per 1K kWh
}

// CarbonBreakdown splits total emissions along four axes.
type CarbonBreakdown struct {
	BySource       map[string]float64 `json:"by_source"`
	ByCategory     map[string]float64 `json:"by_category"`
	ByLocation     map[string]float64 `json:"by_location"`
	ByBusinessUnit map[string]float64 `json:"by_business_unit"`
}

// CarbonCalculation holds scope totals, intensity ratios, and uncertainty.
type CarbonCalculation struct {
	Scope1Emissions float64          `json:"scope1_emissions"`
	Scope2Emissions float64          `json:"scope2_emissions"`
	Scope3Emissions float64          `json:"scope3_emissions"`
	TotalEmissions  float64          `json:"total_emissions"`
	Intensity       IntensityMetrics `json:"intensity"`
	Breakdown       CarbonBreakdown  `json:"breakdown"`
	Uncertainty     float64          `json:"uncertainty"`
}

// CarbonScenario is a fixed emissions-reduction projection. The factors are
// constants, not fitted.
type CarbonScenario struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	ProjectedEmissions float64 `json:"projected_emissions"`
	ReductionPotential float64 `json:"reduction_potential"`
	CostEstimate       float64 `json:"cost_estimate"`
	TimelineYears      int     `json:"timeline_years"`
	Confidence         float64 `json:"confidence"`
}

// CarbonTrend is one year-over-year emission movement.
type CarbonTrend struct {
	Period     string  `json:"period"`
	Emissions  float64 `json:"emissions"`
	GrowthRate float64 `json:"growth_rate"`
	Direction  string  `json:"direction"` // increasing, decreasing, stable
	Confidence float64 `json:"confidence"`
}

// CarbonBenchmark positions an entity against an industry peer table.
type CarbonBenchmark struct {
	Industry         string   `json:"industry"`
	PeerGroup        string   `json:"peer_group"`
	AverageEmissions float64  `json:"average_emissions"`
	BestInClass      float64  `json:"best_in_class"`
	Percentile       float64  `json:"percentile"`
	Gap              float64  `json:"gap"`
	Recommendations  []string `json:"recommendations,omitempty"`
}

// CarbonAnalysis is the Carbon Analytics Engine's complete output.
type CarbonAnalysis struct {
	Metrics         []CarbonMetric    `json:"metrics"`
	Calculation     CarbonCalculation `json:"calculation"`
	Scenarios       []CarbonScenario  `json:"scenarios"`
	Trends          []CarbonTrend     `json:"trends,omitempty"`
	Benchmark       *CarbonBenchmark  `json:"benchmark,omitempty"`
	Insights        []string          `json:"insights,omitempty"`
	Recommendations []string          `json:"recommendations,omitempty"`
	GeneratedAt     time.Time         `json:"generated_at"`
}
