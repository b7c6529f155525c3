package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/verdantiq/esg-cli/internal/model"
)

func TestDetectTypeByExtension(t *testing.T) {
	tests := []struct {
		fileName string
		want     model.ContentType
	}{
		{"report.pdf", model.ContentPDF},
		{"data.xlsx", model.ContentExcel},
		{"data.XLS", model.ContentExcel},
		{"filing.xbrl", model.ContentXBRL},
		{"page.html", model.ContentHTML},
		{"notes.txt", model.ContentText},
	}

	for _, tt := range tests {
		meta := DetectType(nil, tt.fileName, 10, "")
		assert.Equal(t, tt.want, meta.Type, tt.fileName)
		assert.Equal(t, extensionConfidence, meta.Confidence, tt.fileName)
	}
}

func TestDetectTypeMimeOverridesExtension(t *testing.T) {
	meta := DetectType(nil, "report.txt", 10, "application/pdf")
	assert.Equal(t, model.ContentPDF, meta.Type)
	assert.Equal(t, mimeConfidence, meta.Confidence)
}

func TestDetectTypeByContentSignature(t *testing.T) {
	content := []byte("%PDF-1.7 some sustainability report content")
	meta := DetectType(content, "upload", 10, "")
	assert.Equal(t, model.ContentPDF, meta.Type)
	assert.Equal(t, 1.0, meta.Confidence)
}

func TestDetectTypeUnknown(t *testing.T) {
	meta := DetectType([]byte("zzzz"), "blob", 4, "")
	assert.Equal(t, model.ContentUnknown, meta.Type)
	assert.Zero(t, meta.Confidence)
}
