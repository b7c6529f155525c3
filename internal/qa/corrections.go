package qa

import (
	"sync"
	"time"

	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
)

// CorrectionLog is an audit trail of human corrections. It tracks how often
// each rule family participates in a verdict and how often its outcome is
// later overturned, yielding a rolling per-rule accuracy. Recording a
// correction never changes rule behavior.
type CorrectionLog struct {
	mu           sync.Mutex
	corrections  []model.Correction
	applications map[string]int
	overturned   map[string]int
}

func NewCorrectionLog() *CorrectionLog {
	return &CorrectionLog{
		applications: make(map[string]int),
		overturned:   make(map[string]int),
	}
}

func (l *CorrectionLog) recordApplications(ruleIDs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ruleIDs {
		l.applications[id]++
	}
}

// Record appends one correction and charges it against the involved rules.
func (l *CorrectionLog) Record(c model.Correction) {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.corrections = append(l.corrections, c)
	for _, id := range c.RuleIDs {
		l.overturned[id]++
	}

	zap.L().Info("qa: correction recorded",
		zap.String("metric", c.Original.ID),
		zap.String("reason", c.Reason),
		zap.Strings("rules", c.RuleIDs))
}

// Corrections returns a copy of the recorded corrections.
func (l *CorrectionLog) Corrections() []model.Correction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Correction, len(l.corrections))
	copy(out, l.corrections)
	return out
}

// Accuracy reports, per rule, the fraction of applications that were not
// overturned by a correction. Rules never applied report 1.
func (l *CorrectionLog) Accuracy() map[string]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]float64, len(l.applications))
	for id, total := range l.applications {
		if total == 0 {
			out[id] = 1
			continue
		}
		bad := l.overturned[id]
		if bad > total {
			bad = total
		}
		out[id] = 1 - float64(bad)/float64(total)
	}
	return out
}
