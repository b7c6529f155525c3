package model

import "time"

// ContentType is the detected document format.
type ContentType string

const (
	ContentPDF     ContentType = "pdf"
	ContentExcel   ContentType = "excel"
	ContentXBRL    ContentType = "xbrl"
	ContentHTML    ContentType = "html"
	ContentText    ContentType = "text"
	ContentUnknown ContentType = "unknown"
)

// ContentAnalysis summarizes heuristic document analysis performed during
// ingestion. Used to bias parser selection, nothing else.
type ContentAnalysis struct {
	Language   string   `json:"language"`
	KeyPhrases []string `json:"key_phrases,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	WordCount  int      `json:"word_count"`
	CharCount  int      `json:"char_count"`
	HasNumbers bool     `json:"has_numbers"`
	HasTables  bool     `json:"has_tables"`
}

// ContentMeta describes one ingested document.
type ContentMeta struct {
	Type       ContentType      `json:"type"`
	FileName   string           `json:"file_name"`
	FileSize   int64            `json:"file_size"`
	MimeType   string           `json:"mime_type,omitempty"`
	Confidence float64          `json:"confidence"`
	Analysis   *ContentAnalysis `json:"analysis,omitempty"`
}

// IngestResult is the Ingestion Router's output. Ingestion failures are
// reported here with Success=false and Error set, never as a returned error.
type IngestResult struct {
	Success    bool          `json:"success"`
	Metrics    []Metric      `json:"metrics"`
	Meta       ContentMeta   `json:"meta"`
	ParserID   string        `json:"parser_id,omitempty"`
	Confidence float64       `json:"confidence"`
	Error      string        `json:"error,omitempty"`
	Warnings   []string      `json:"warnings,omitempty"`
	Duration   time.Duration `json:"duration"`
	Provenance Provenance    `json:"provenance"`
}
