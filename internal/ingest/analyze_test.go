package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeESGContent(t *testing.T) {
	content := "The company published its sustainability report covering carbon " +
		"emissions, board governance, and community diversity programs. " +
		"Emissions fell to 12,000 tonnes."

	a := Analyze(content)
	require.NotNil(t, a)
	assert.Equal(t, "en", a.Language)
	assert.Contains(t, a.Topics, "Environmental")
	assert.Contains(t, a.Topics, "Social")
	assert.Contains(t, a.Topics, "Governance")
	assert.Contains(t, a.Topics, "ESG")
	assert.True(t, a.HasNumbers)
	assert.Positive(t, a.WordCount)
}

func TestAnalyzeDefaultsToGeneral(t *testing.T) {
	a := Analyze("quarterly revenue figures and office relocation notes")
	assert.Equal(t, []string{"General"}, a.Topics)
}

func TestExtractKeyPhrasesIncludesImportantWords(t *testing.T) {
	phrases := extractKeyPhrases("emissions data emissions data emissions and water usage")
	assert.Contains(t, phrases, "emissions")
	assert.Contains(t, phrases, "water")
}
