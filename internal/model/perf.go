package model

import "time"

// EventType classifies monitor log entries.
type EventType string

const (
	EventProcessingStart EventType = "processing_start"
	EventProcessingEnd   EventType = "processing_end"
	EventError           EventType = "error"
	EventWarning         EventType = "warning"
	EventStageComplete   EventType = "stage_complete"
)

// PerformanceEvent is one append-only monitor log entry.
type PerformanceEvent struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Stage     string        `json:"stage,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	DataSize  int64         `json:"data_size,omitempty"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// PerformanceStats are rolling statistics derived from the event log.
type PerformanceStats struct {
	TotalProcessed  int           `json:"total_processed"`
	Successful      int           `json:"successful"`
	Failed          int           `json:"failed"`
	AverageDuration time.Duration `json:"average_duration"`
	TotalDuration   time.Duration `json:"total_duration"`
	ErrorRate       float64       `json:"error_rate"`
	Throughput      float64       `json:"throughput"` // documents per hour, 0 without a time range
	LastUpdated     time.Time     `json:"last_updated"`
}

// StagePerformance is the incrementally maintained per-stage breakdown.
type StagePerformance struct {
	Stage           string        `json:"stage"`
	TotalExecutions int           `json:"total_executions"`
	Successful      int           `json:"successful"`
	AverageDuration time.Duration `json:"average_duration"`
	TotalDuration   time.Duration `json:"total_duration"`
	ErrorRate       float64       `json:"error_rate"`
	LastExecution   time.Time     `json:"last_execution"`
}

// HealthStatus is the coarse system-health classification.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
	HealthUnknown  HealthStatus = "unknown"
)

// SystemHealth is a point-in-time health snapshot averaged over the sampler's
// rolling window.
type SystemHealth struct {
	Status            HealthStatus `json:"status"`
	CPUUsage          float64      `json:"cpu_usage"`
	MemoryUsage       float64      `json:"memory_usage"`
	ActiveConnections float64      `json:"active_connections"`
	QueueSize         float64      `json:"queue_size"`
	LastUpdated       time.Time    `json:"last_updated"`
}

// PerformanceSnapshot bundles the monitor's read-only view for consumers.
type PerformanceSnapshot struct {
	Overall     PerformanceStats   `json:"overall"`
	Stages      []StagePerformance `json:"stages"`
	Health      SystemHealth       `json:"health"`
	GeneratedAt time.Time          `json:"generated_at"`
}
