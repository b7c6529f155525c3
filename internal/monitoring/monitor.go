package monitoring

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
)

const defaultMaxEvents = 10000

// TimeRange bounds a stats query; throughput is only computable with one.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

type startRecord struct {
	stage string
	at    time.Time
}

// Monitor keeps an append-only performance event log, capped at maxEvents
// with oldest entries evicted, plus incrementally maintained per-stage
// statistics. All methods are safe for concurrent use.
type Monitor struct {
	mu        sync.Mutex
	maxEvents int
	events    []model.PerformanceEvent
	stages    map[string]*model.StagePerformance
	starts    map[string]startRecord

	sampler *Sampler
}

// NewMonitor builds a Monitor from configuration.
func NewMonitor(cfg config.MonitoringConfig) *Monitor {
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}
	return &Monitor{
		maxEvents: maxEvents,
		stages:    map[string]*model.StagePerformance{},
		starts:    map[string]startRecord{},
	}
}

// AttachSampler wires a system-health sampler into snapshots.
func (m *Monitor) AttachSampler(s *Sampler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampler = s
}

// RecordStart logs the beginning of a unit of work and returns the event id
// to close it with.
func (m *Monitor) RecordStart(stage string, dataSize int64) string {
	id := uuid.NewString()
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts[id] = startRecord{stage: stage, at: now}
	m.append(model.PerformanceEvent{
		ID:        id,
		Timestamp: now,
		Type:      model.EventProcessingStart,
		Stage:     stage,
		DataSize:  dataSize,
	})
	return id
}

// RecordEnd closes a started unit of work. Unknown event ids are ignored;
// the matching start may have been evicted.
func (m *Monitor) RecordEnd(eventID string, success bool) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	start, ok := m.starts[eventID]
	if !ok {
		return
	}
	delete(m.starts, eventID)

	duration := now.Sub(start.at)
	m.append(model.PerformanceEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      model.EventProcessingEnd,
		Stage:     start.stage,
		Duration:  duration,
		Success:   success,
	})
	m.updateStage(start.stage, duration, success, now)
}

// RecordError logs a failure event outside the start/end lifecycle.
func (m *Monitor) RecordError(stage, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(model.PerformanceEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      model.EventError,
		Stage:     stage,
		Error:     message,
	})
}

// RecordWarning logs a non-fatal anomaly.
func (m *Monitor) RecordWarning(stage, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(model.PerformanceEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      model.EventWarning,
		Stage:     stage,
		Error:     message,
	})
}

// RecordStageComplete logs one stage execution with an externally measured
// duration.
func (m *Monitor) RecordStageComplete(stage string, duration time.Duration, success bool) {
	now := time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.append(model.PerformanceEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Type:      model.EventStageComplete,
		Stage:     stage,
		Duration:  duration,
		Success:   success,
	})
	m.updateStage(stage, duration, success, now)
}

// append assumes m.mu is held.
func (m *Monitor) append(e model.PerformanceEvent) {
	m.events = append(m.events, e)
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

// updateStage assumes m.mu is held.
func (m *Monitor) updateStage(stage string, duration time.Duration, success bool, now time.Time) {
	stats, ok := m.stages[stage]
	if !ok {
		stats = &model.StagePerformance{Stage: stage}
		m.stages[stage] = stats
	}

	stats.TotalExecutions++
	stats.TotalDuration += duration
	stats.AverageDuration = stats.TotalDuration / time.Duration(stats.TotalExecutions)
	stats.LastExecution = now
	if success {
		stats.Successful++
	}
	stats.ErrorRate = float64(stats.TotalExecutions-stats.Successful) / float64(stats.TotalExecutions)
}

// Stats derives overall statistics from completed processing events. With a
// time range, only events inside it count and throughput is documents per
// elapsed hour.
func (m *Monitor) Stats(tr *TimeRange) model.PerformanceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := model.PerformanceStats{LastUpdated: time.Now().UTC()}
	for _, e := range m.events {
		if e.Type != model.EventProcessingEnd {
			continue
		}
		if tr != nil && (e.Timestamp.Before(tr.Start) || e.Timestamp.After(tr.End)) {
			continue
		}
		stats.TotalProcessed++
		stats.TotalDuration += e.Duration
		if e.Success {
			stats.Successful++
		}
	}

	stats.Failed = stats.TotalProcessed - stats.Successful
	if stats.TotalProcessed > 0 {
		stats.AverageDuration = stats.TotalDuration / time.Duration(stats.TotalProcessed)
		stats.ErrorRate = float64(stats.Failed) / float64(stats.TotalProcessed)
	}
	if tr != nil {
		if hours := tr.End.Sub(tr.Start).Hours(); hours > 0 {
			stats.Throughput = float64(stats.TotalProcessed) / hours
		}
	}
	return stats
}

// StageStats returns the per-stage breakdown, one stage when named, all
// stages sorted by name otherwise.
func (m *Monitor) StageStats(stage string) []model.StagePerformance {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stage != "" {
		if stats, ok := m.stages[stage]; ok {
			return []model.StagePerformance{*stats}
		}
		return nil
	}

	names := make([]string, 0, len(m.stages))
	for name := range m.stages {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]model.StagePerformance, 0, len(names))
	for _, name := range names {
		out = append(out, *m.stages[name])
	}
	return out
}

// RecentEvents returns up to limit of the newest log entries.
func (m *Monitor) RecentEvents(limit int) []model.PerformanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.events) {
		limit = len(m.events)
	}
	out := make([]model.PerformanceEvent, limit)
	copy(out, m.events[len(m.events)-limit:])
	return out
}

// Errors returns error events, newest last, optionally bounded by a time
// range.
func (m *Monitor) Errors(tr *TimeRange) []model.PerformanceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.PerformanceEvent
	for _, e := range m.events {
		if e.Type != model.EventError {
			continue
		}
		if tr != nil && (e.Timestamp.Before(tr.Start) || e.Timestamp.After(tr.End)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Snapshot bundles the monitor's current view. Health reads from the
// attached sampler, or reports unknown without one.
func (m *Monitor) Snapshot() model.PerformanceSnapshot {
	m.mu.Lock()
	sampler := m.sampler
	m.mu.Unlock()

	health := model.SystemHealth{Status: model.HealthUnknown, LastUpdated: time.Now().UTC()}
	if sampler != nil {
		health = sampler.Health()
	}

	return model.PerformanceSnapshot{
		Overall:     m.Stats(nil),
		Stages:      m.StageStats(""),
		Health:      health,
		GeneratedAt: time.Now().UTC(),
	}
}
