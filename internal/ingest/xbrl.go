package ingest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/verdantiq/esg-cli/internal/model"
)

// xbrlParser walks an XBRL/XML instance document and emits one metric per
// numeric fact. Element local names become metric names; unitRef and
// contextRef attributes carry the unit and period hints.
type xbrlParser struct{}

func (p *xbrlParser) ID() string { return "xbrl" }

func (p *xbrlParser) Supports(t model.ContentType) bool { return t == model.ContentXBRL }

func (p *xbrlParser) Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false

	now := time.Now().UTC()
	var metrics []model.Metric
	var current xml.StartElement
	haveStart := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return metrics, 0.95, eris.Wrap(err, "ingest: decode xbrl")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Copy()
			haveStart = true
		case xml.CharData:
			if !haveStart {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			value, err := parseNumber(text)
			if err != nil {
				continue
			}

			name := factName(current.Name.Local)
			m := model.Metric{
				ID:         fmt.Sprintf("%s-%d", slugify(name), len(metrics)),
				Name:       name,
				Value:      model.Float(value),
				Unit:       attrValue(current, "unitRef"),
				Category:   categorize(name),
				Confidence: 0.9,
				Provenance: model.Provenance{
					SourceText:  fmt.Sprintf("<%s>%s</%s>", current.Name.Local, text, current.Name.Local),
					SourceFile:  meta.FileName,
					Page:        1,
					ExtractedAt: now,
				},
			}
			if ctx := attrValue(current, "contextRef"); ctx != "" {
				if y := yearRE.FindString(ctx); y != "" {
					m.Year, _ = strconv.Atoi(y)
				}
			}
			if m.Year == 0 {
				m.Year = time.Now().Year()
			}
			metrics = append(metrics, m)
			haveStart = false
		case xml.EndElement:
			haveStart = false
		}
	}

	return metrics, 0.95, nil
}

func attrValue(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// factName splits a CamelCase element name into words.
func factName(local string) string {
	var b strings.Builder
	for i, r := range local {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
