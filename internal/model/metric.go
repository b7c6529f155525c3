package model

import "time"

// Category classifies a metric along standard ESG dimensions.
type Category string

const (
	CategoryEnvironmental Category = "Environmental"
	CategorySocial        Category = "Social"
	CategoryGovernance    Category = "Governance"
	CategoryOther         Category = "Other"
)

// ValidCategories is the closed set accepted by the consistency rules.
var ValidCategories = []Category{
	CategoryEnvironmental,
	CategorySocial,
	CategoryGovernance,
	CategoryOther,
}

// Provenance records where a metric value came from.
type Provenance struct {
	SourceText  string    `json:"source_text"`
	SourceFile  string    `json:"source_file"`
	Page        int       `json:"page"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Metric is one extracted, named, valued data point flowing through the
// pipeline. Value is nil when the extractor found the metric but could not
// parse a number for it.
type Metric struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Value       *float64   `json:"value,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Category    Category   `json:"category"`
	Year        int        `json:"year,omitempty"`
	Description string     `json:"description,omitempty"`
	Confidence  float64    `json:"confidence"`
	Scope       int        `json:"scope,omitempty"` // emission scope 1/2/3, 0 = unset
	Provenance  Provenance `json:"provenance"`
}

// HasValue reports whether the metric carries a parsed numeric value.
func (m Metric) HasValue() bool {
	return m.Value != nil
}

// Val returns the numeric value, or 0 when unset.
func (m Metric) Val() float64 {
	if m.Value == nil {
		return 0
	}
	return *m.Value
}

// Float is a convenience for building *float64 literals in constructors
// and tests.
func Float(v float64) *float64 {
	return &v
}
