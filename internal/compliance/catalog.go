package compliance

import (
	_ "embed"

	"github.com/rotisserie/eris"
	"github.com/verdantiq/esg-cli/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// ScoringMethod selects how per-category and per-requirement scores roll up
// into the framework's overall score.
type ScoringMethod string

const (
	ScoringWeighted   ScoringMethod = "weighted"
	ScoringBinary     ScoringMethod = "binary"
	ScoringPercentage ScoringMethod = "percentage"
)

// RuleType identifies one validation rule family on a requirement.
type RuleType string

const (
	RulePresence     RuleType = "presence"
	RuleRange        RuleType = "range"
	RuleFormat       RuleType = "format"
	RuleConsistency  RuleType = "consistency"
	RuleCompleteness RuleType = "completeness"
)

// Catalog holds the scoring frameworks, loaded once and immutable afterwards.
type Catalog struct {
	Frameworks []Framework `yaml:"frameworks"`
}

// Framework is one compliance framework with its requirement tree.
type Framework struct {
	ID            string        `yaml:"id"`
	Name          string        `yaml:"name"`
	Version       string        `yaml:"version"`
	Description   string        `yaml:"description"`
	ScoringMethod ScoringMethod `yaml:"scoring_method"`
	Categories    []Category    `yaml:"categories"`
	Requirements  []Requirement `yaml:"requirements"`
}

// Category groups requirements and carries the weight used by the weighted
// scoring method.
type Category struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description"`
}

// Requirement is one disclosure requirement. Keywords widen the relevance
// match beyond the canonical name so extracted metric names can hit it.
type Requirement struct {
	ID            string   `yaml:"id"`
	CategoryID    string   `yaml:"category_id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Mandatory     bool     `yaml:"mandatory"`
	Weight        float64  `yaml:"weight"`
	Keywords      []string `yaml:"keywords"`
	EvidenceTypes []string `yaml:"evidence_types"`
	Rules         []Rule   `yaml:"rules"`
}

// Rule is a validation rule with its severity; Min/Max apply to range rules
// only.
type Rule struct {
	Type     RuleType       `yaml:"type"`
	Min      *float64       `yaml:"min"`
	Max      *float64       `yaml:"max"`
	Message  string         `yaml:"message"`
	Severity model.Severity `yaml:"severity"`
}

// LoadCatalog parses the embedded scoring catalog.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, eris.Wrap(err, "compliance: parse catalog")
	}
	return &c, nil
}

// Get returns a framework by id.
func (c *Catalog) Get(id string) (*Framework, bool) {
	for i := range c.Frameworks {
		if c.Frameworks[i].ID == id {
			return &c.Frameworks[i], true
		}
	}
	return nil, false
}
