package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/verdantiq/esg-cli/internal/model"
)

// Detection confidence by pass. Extension matches are cheap but spoofable,
// MIME hints come from the transport, content signatures are scored by the
// fraction of patterns that match.
const (
	extensionConfidence = 0.8
	mimeConfidence      = 0.9
	contentScanWindow   = 1000
)

var extensionTypes = map[string]model.ContentType{
	".pdf":  model.ContentPDF,
	".xlsx": model.ContentExcel,
	".xls":  model.ContentExcel,
	".xbrl": model.ContentXBRL,
	".xml":  model.ContentXBRL,
	".html": model.ContentHTML,
	".htm":  model.ContentHTML,
	".txt":  model.ContentText,
	".md":   model.ContentText,
	".rtf":  model.ContentText,
}

var mimeTypes = map[string]model.ContentType{
	"application/pdf": model.ContentPDF,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": model.ContentExcel,
	"application/vnd.ms-excel":                                          model.ContentExcel,
	"application/xml":                                                   model.ContentXBRL,
	"text/html":                                                         model.ContentHTML,
	"text/plain":                                                        model.ContentText,
}

type signatureSet struct {
	contentType model.ContentType
	patterns    []*regexp.Regexp
}

// signatureSets are scanned in order against the head of the document. The
// score for a type is matched patterns over total patterns; on equal scores
// the earlier entry wins, so detection stays deterministic.
var signatureSets = []signatureSet{
	{model.ContentPDF, []*regexp.Regexp{
		regexp.MustCompile(`%PDF-\d+\.\d+`),
		regexp.MustCompile(`(?i)sustainability report|ESG report|annual report`),
	}},
	{model.ContentExcel, []*regexp.Regexp{
		regexp.MustCompile(`^PK\x03\x04`),
		regexp.MustCompile(`(?i)spreadsheet|table|data sheet`),
	}},
	{model.ContentXBRL, []*regexp.Regexp{
		regexp.MustCompile(`(?i)<xbrl|<xbrli:|<ix:|<link:|<schema`),
		regexp.MustCompile(`(?i)XBRL|eXtensible Business Reporting Language`),
	}},
	{model.ContentHTML, []*regexp.Regexp{
		regexp.MustCompile(`(?i)<!DOCTYPE html|<html|<head|<body`),
		regexp.MustCompile(`(?i)web page|webpage|website`),
	}},
	{model.ContentText, []*regexp.Regexp{
		regexp.MustCompile(`(?i)plain text|document|report`),
	}},
}

// DetectType resolves a document's content type in three passes of increasing
// cost: file extension, MIME lookup, content-signature scan. The highest
// confidence wins; an undetected type stays ContentUnknown with zero
// confidence.
func DetectType(content []byte, fileName string, fileSize int64, mimeType string) model.ContentMeta {
	detected := model.ContentUnknown
	confidence := 0.0

	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" {
		if t, ok := extensionTypes[ext]; ok {
			detected = t
			confidence = extensionConfidence
		}
	}

	if mimeType != "" && confidence < mimeConfidence {
		if t, ok := mimeTypes[mimeType]; ok {
			detected = t
			confidence = mimeConfidence
		}
	}

	if confidence < 0.7 {
		head := content
		if len(head) > contentScanWindow {
			head = head[:contentScanWindow]
		}
		for _, set := range signatureSets {
			matched := 0
			for _, p := range set.patterns {
				if p.Match(head) {
					matched++
				}
			}
			if matched == 0 {
				continue
			}
			score := float64(matched) / float64(len(set.patterns))
			if score > confidence {
				detected = set.contentType
				confidence = score
			}
		}
	}

	return model.ContentMeta{
		Type:       detected,
		FileName:   fileName,
		FileSize:   fileSize,
		MimeType:   mimeType,
		Confidence: confidence,
	}
}
