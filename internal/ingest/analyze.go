package ingest

import (
	"regexp"
	"sort"
	"strings"

	"github.com/verdantiq/esg-cli/internal/model"
)

var (
	englishMarkers = []string{"the", "and", "of", "to", "in", "is", "it", "you", "that", "he"}
	spanishMarkers = []string{"el", "la", "de", "que", "y", "a", "en", "un", "es", "se"}
	frenchMarkers  = []string{"le", "la", "de", "et", "en", "un", "est", "il", "que"}

	importantWords = map[string]bool{
		"sustainability": true, "environmental": true, "social": true,
		"governance": true, "esg": true, "emissions": true, "carbon": true,
		"energy": true, "waste": true, "water": true,
	}

	nonWordRE = regexp.MustCompile(`[^\w\s]`)
	digitRE   = regexp.MustCompile(`\d`)
	tableRE   = regexp.MustCompile(`(?i)table|grid|spreadsheet`)
)

// Analyze derives lightweight content signals used for parser routing:
// language, key phrases, ESG/industry topics, and structural flags.
func Analyze(content string) *model.ContentAnalysis {
	words := strings.Fields(content)
	return &model.ContentAnalysis{
		Language:   detectLanguage(words),
		KeyPhrases: extractKeyPhrases(content),
		Topics:     identifyTopics(content),
		WordCount:  len(words),
		CharCount:  len(content),
		HasNumbers: digitRE.MatchString(content),
		HasTables:  tableRE.MatchString(content),
	}
}

func detectLanguage(words []string) string {
	counts := [3]int{}
	markers := [][]string{englishMarkers, spanishMarkers, frenchMarkers}
	for _, w := range words {
		w = strings.ToLower(w)
		for i, set := range markers {
			for _, m := range set {
				if w == m {
					counts[i]++
					break
				}
			}
		}
	}
	if counts[1] > counts[0] && counts[1] > counts[2] {
		return "es"
	}
	if counts[2] > counts[0] && counts[2] > counts[1] {
		return "fr"
	}
	return "en"
}

func extractKeyPhrases(content string) []string {
	cleaned := nonWordRE.ReplaceAllString(strings.ToLower(content), "")
	freq := make(map[string]int)
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 3 {
			freq[w]++
		}
	}

	type entry struct {
		word  string
		count int
	}
	var entries []entry
	for w, n := range freq {
		if n > 2 || importantWords[w] {
			entries = append(entries, entry{w, n})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].word < entries[j].word
	})
	if len(entries) > 10 {
		entries = entries[:10]
	}

	phrases := make([]string, len(entries))
	for i, e := range entries {
		phrases[i] = e.word
	}
	return phrases
}

func identifyTopics(content string) []string {
	lower := strings.ToLower(content)
	containsAny := func(terms ...string) bool {
		for _, t := range terms {
			if strings.Contains(lower, t) {
				return true
			}
		}
		return false
	}

	var topics []string
	if containsAny("environmental", "emissions", "carbon") {
		topics = append(topics, "Environmental")
	}
	if containsAny("social", "community", "diversity") {
		topics = append(topics, "Social")
	}
	if containsAny("governance", "board", "ethics") {
		topics = append(topics, "Governance")
	}
	if containsAny("esg", "sustainability") {
		topics = append(topics, "ESG")
	}
	if containsAny("financial", "banking", "investment") {
		topics = append(topics, "Financial Services")
	}
	if containsAny("manufacturing", "industrial", "production") {
		topics = append(topics, "Manufacturing")
	}
	if containsAny("technology", "software", "digital") {
		topics = append(topics, "Technology")
	}

	if len(topics) == 0 {
		topics = []string{"General"}
	}
	return topics
}
