package ingest

import (
	"github.com/verdantiq/esg-cli/internal/model"
)

// Parser decodes one content type into candidate metrics. The returned float
// is the parser's own confidence in its decode, combined multiplicatively
// with the routing confidence by the Router.
type Parser interface {
	ID() string
	Supports(t model.ContentType) bool
	Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error)
}

// defaultParsers returns the built-in parser set in routing order.
func defaultParsers() []Parser {
	return []Parser{
		&pdfParser{},
		&excelParser{},
		&xbrlParser{},
		&htmlParser{},
		&textParser{},
	}
}
