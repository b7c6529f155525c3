package monitoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
)

func TestRecordLifecycle(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})

	id := m.RecordStart("extraction", 1024)
	require.NotEmpty(t, id)
	m.RecordEnd(id, true)

	id = m.RecordStart("extraction", 2048)
	m.RecordEnd(id, false)

	stats := m.Stats(nil)
	assert.Equal(t, 2, stats.TotalProcessed)
	assert.Equal(t, 1, stats.Successful)
	assert.Equal(t, 1, stats.Failed)
	assert.InDelta(t, 0.5, stats.ErrorRate, 1e-9)
	assert.Zero(t, stats.Throughput)

	stages := m.StageStats("extraction")
	require.Len(t, stages, 1)
	assert.Equal(t, 2, stages[0].TotalExecutions)
	assert.Equal(t, 1, stages[0].Successful)
	assert.InDelta(t, 0.5, stages[0].ErrorRate, 1e-9)
}

func TestRecordEndUnknownID(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})
	m.RecordEnd("no-such-event", true)
	assert.Zero(t, m.Stats(nil).TotalProcessed)
}

func TestEventLogEviction(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{MaxEvents: 5})
	for i := 0; i < 12; i++ {
		m.RecordError("ingestion", fmt.Sprintf("boom %d", i))
	}

	events := m.RecentEvents(0)
	require.Len(t, events, 5)
	assert.Equal(t, "boom 11", events[4].Error)
	assert.Equal(t, "boom 7", events[0].Error)
}

func TestStatsThroughputWithTimeRange(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})
	for i := 0; i < 3; i++ {
		m.RecordEnd(m.RecordStart("extraction", 0), true)
	}

	now := time.Now().UTC()
	stats := m.Stats(&TimeRange{Start: now.Add(-time.Hour), End: now.Add(time.Second)})
	assert.Equal(t, 3, stats.TotalProcessed)
	assert.InDelta(t, 3.0, stats.Throughput, 0.1)
}

func TestStageStatsSortedAndDurationAveraged(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})
	m.RecordStageComplete("validate", 100*time.Millisecond, true)
	m.RecordStageComplete("validate", 300*time.Millisecond, true)
	m.RecordStageComplete("extract", 50*time.Millisecond, false)

	stages := m.StageStats("")
	require.Len(t, stages, 2)
	assert.Equal(t, "extract", stages[0].Stage)
	assert.Equal(t, "validate", stages[1].Stage)
	assert.Equal(t, 200*time.Millisecond, stages[1].AverageDuration)
	assert.Equal(t, 400*time.Millisecond, stages[1].TotalDuration)
}

func TestErrorsFiltered(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})
	m.RecordError("ingestion", "bad file")
	m.RecordWarning("ingestion", "slow parse")

	errs := m.Errors(nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "bad file", errs[0].Error)
}

func TestSnapshotWithoutSampler(t *testing.T) {
	m := NewMonitor(config.MonitoringConfig{})
	m.RecordStageComplete("extract", time.Millisecond, true)

	snap := m.Snapshot()
	assert.Equal(t, model.HealthUnknown, snap.Health.Status)
	require.Len(t, snap.Stages, 1)
	assert.False(t, snap.GeneratedAt.IsZero())
}

func TestSamplerHealthClassification(t *testing.T) {
	s := NewSampler(config.MonitoringConfig{})

	assert.Equal(t, model.HealthUnknown, s.Health().Status)

	s.mu.Lock()
	s.record(sample{cpu: 30, memory: 40, at: time.Now()})
	s.mu.Unlock()
	assert.Equal(t, model.HealthHealthy, s.Health().Status)

	s.mu.Lock()
	s.record(sample{cpu: 95, memory: 40, at: time.Now()})
	s.mu.Unlock()
	// average cpu 62.5 crosses the warning threshold
	health := s.Health()
	assert.Equal(t, model.HealthWarning, health.Status)
	assert.InDelta(t, 62.5, health.CPUUsage, 1e-9)

	s.mu.Lock()
	for i := 0; i < healthWindow; i++ {
		s.record(sample{cpu: 90, memory: 85, at: time.Now()})
	}
	s.mu.Unlock()
	assert.Equal(t, model.HealthCritical, s.Health().Status)
}

func TestSamplerGauges(t *testing.T) {
	s := NewSampler(config.MonitoringConfig{})
	s.SetGauges(3, 7)

	conns, queue := s.Gauges()
	assert.Equal(t, 3.0, conns)
	assert.Equal(t, 7.0, queue)
}

func TestSamplerWindowCapped(t *testing.T) {
	s := NewSampler(config.MonitoringConfig{SampleIntervalSecs: 1})
	s.mu.Lock()
	for i := 0; i < 25; i++ {
		s.record(sample{cpu: float64(i), at: time.Now()})
	}
	n := len(s.window)
	s.mu.Unlock()
	assert.Equal(t, healthWindow, n)
}
