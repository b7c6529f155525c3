package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/verdantiq/esg-cli/internal/model"
)

// excelParser reads tabular workbooks. Rows are expected in a loose
// name/value/unit/year column layout; rows whose second column is not
// numeric are skipped, which also drops header rows.
type excelParser struct{}

func (p *excelParser) ID() string { return "excel" }

func (p *excelParser) Supports(t model.ContentType) bool { return t == model.ContentExcel }

func (p *excelParser) Parse(content []byte, meta model.ContentMeta) ([]model.Metric, float64, error) {
	file, err := xlsx.OpenBinary(content)
	if err != nil {
		return nil, 0.9, eris.Wrap(err, "ingest: open workbook")
	}

	now := time.Now().UTC()
	var metrics []model.Metric
	for _, sheet := range file.Sheets {
		for rowIdx, row := range sheet.Rows {
			if len(row.Cells) < 2 {
				continue
			}
			name := strings.TrimSpace(row.Cells[0].String())
			if name == "" {
				continue
			}
			value, err := parseNumber(strings.TrimSpace(row.Cells[1].String()))
			if err != nil {
				continue
			}

			m := model.Metric{
				ID:         fmt.Sprintf("%s-%d", slugify(name), len(metrics)),
				Name:       name,
				Value:      model.Float(value),
				Category:   categorize(name),
				Confidence: 0.85,
				Provenance: model.Provenance{
					SourceText:  fmt.Sprintf("%s!row %d", sheet.Name, rowIdx+1),
					SourceFile:  meta.FileName,
					Page:        1,
					ExtractedAt: now,
				},
			}
			if len(row.Cells) > 2 {
				m.Unit = strings.TrimSpace(row.Cells[2].String())
			}
			if len(row.Cells) > 3 {
				if y, err := strconv.Atoi(strings.TrimSpace(row.Cells[3].String())); err == nil {
					m.Year = y
				}
			}
			if m.Year == 0 {
				m.Year = time.Now().Year()
			}
			if sm := scopeRE.FindStringSubmatch(name); sm != nil {
				m.Scope, _ = strconv.Atoi(sm[1])
				m.Category = model.CategoryEnvironmental
			}

			metrics = append(metrics, m)
		}
	}

	return metrics, 0.9, nil
}
