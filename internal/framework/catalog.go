package framework

import (
	_ "embed"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed frameworks.yaml
var catalogYAML []byte

// Catalog is the static disclosure-framework catalog, loaded once at
// construction and treated as immutable afterwards.
type Catalog struct {
	Frameworks []Definition `yaml:"frameworks"`
}

// Definition is one disclosure framework.
type Definition struct {
	ID                string        `yaml:"id"`
	Name              string        `yaml:"name"`
	Version           string        `yaml:"version"`
	Description       string        `yaml:"description"`
	Categories        []string      `yaml:"categories"`
	DetectionPatterns []string      `yaml:"detection_patterns"`
	Metrics           []Metric      `yaml:"metrics"`
	Requirements      []Requirement `yaml:"requirements"`

	compiled []*regexp.Regexp
}

// Metric is one named framework metric with its aliases.
type Metric struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Unit        string   `yaml:"unit"`
	Category    string   `yaml:"category"`
	Required    bool     `yaml:"required"`
	Aliases     []string `yaml:"aliases"`
}

// Requirement is one framework disclosure requirement.
type Requirement struct {
	ID          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Category    string  `yaml:"category"`
	Mandatory   bool    `yaml:"mandatory"`
	Weight      float64 `yaml:"weight"`
	Rules       []Rule  `yaml:"rules"`
}

// Rule is a validation rule attached to a requirement.
type Rule struct {
	Type    string `yaml:"type"`
	Message string `yaml:"message"`
}

// LoadCatalog parses the embedded catalog and compiles detection patterns.
func LoadCatalog() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(catalogYAML, &c); err != nil {
		return nil, eris.Wrap(err, "framework: parse catalog")
	}

	for i := range c.Frameworks {
		def := &c.Frameworks[i]
		def.compiled = make([]*regexp.Regexp, 0, len(def.DetectionPatterns))
		for _, p := range def.DetectionPatterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, eris.Wrapf(err, "framework: pattern %q in %s", p, def.ID)
			}
			def.compiled = append(def.compiled, re)
		}
	}
	return &c, nil
}

// Get returns a framework definition by id.
func (c *Catalog) Get(id string) (*Definition, bool) {
	for i := range c.Frameworks {
		if c.Frameworks[i].ID == id {
			return &c.Frameworks[i], true
		}
	}
	return nil, false
}
