package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/verdantiq/esg-cli/internal/config"
	"github.com/verdantiq/esg-cli/internal/model"
	"go.uber.org/zap"
)

const (
	defaultSampleInterval = 30 * time.Second
	// healthWindow is how many recent samples the health classification
	// averages over.
	healthWindow = 10

	warningThreshold  = 60.0
	criticalThreshold = 80.0
)

type sample struct {
	cpu         float64
	memory      float64
	connections float64
	queueSize   float64
	at          time.Time
}

// Sampler periodically collects CPU and memory gauges and keeps a rolling
// window for health classification. Connection and queue gauges are fed in
// by the serving layer.
type Sampler struct {
	interval time.Duration

	mu          sync.Mutex
	window      []sample
	connections float64
	queueSize   float64
}

// NewSampler builds a Sampler from configuration.
func NewSampler(cfg config.MonitoringConfig) *Sampler {
	interval := time.Duration(cfg.SampleIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultSampleInterval
	}
	return &Sampler{interval: interval}
}

// SetGauges updates the externally owned connection and queue gauges picked
// up by the next sample.
func (s *Sampler) SetGauges(connections, queueSize float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = connections
	s.queueSize = queueSize
}

// Gauges returns the current externally fed gauge values.
func (s *Sampler) Gauges() (connections, queueSize float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connections, s.queueSize
}

// Run samples until the context is cancelled. It takes one sample up front
// so health is available before the first tick.
func (s *Sampler) Run(ctx context.Context) {
	s.collect()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collect()
		}
	}
}

func (s *Sampler) collect() {
	var cpuUsage float64
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		zap.L().Warn("monitoring: cpu sample failed", zap.Error(err))
	} else if len(percents) > 0 {
		cpuUsage = percents[0]
	}

	var memUsage float64
	vm, err := mem.VirtualMemory()
	if err != nil {
		zap.L().Warn("monitoring: memory sample failed", zap.Error(err))
	} else {
		memUsage = vm.UsedPercent
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(sample{
		cpu:         cpuUsage,
		memory:      memUsage,
		connections: s.connections,
		queueSize:   s.queueSize,
		at:          time.Now().UTC(),
	})
}

// record assumes s.mu is held.
func (s *Sampler) record(smp sample) {
	s.window = append(s.window, smp)
	if len(s.window) > healthWindow {
		s.window = s.window[len(s.window)-healthWindow:]
	}
}

// Health averages the rolling window and classifies it against the fixed
// warning/critical thresholds.
func (s *Sampler) Health() model.SystemHealth {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.window) == 0 {
		return model.SystemHealth{Status: model.HealthUnknown, LastUpdated: time.Now().UTC()}
	}

	var cpuSum, memSum, connSum, queueSum float64
	for _, smp := range s.window {
		cpuSum += smp.cpu
		memSum += smp.memory
		connSum += smp.connections
		queueSum += smp.queueSize
	}
	n := float64(len(s.window))

	health := model.SystemHealth{
		Status:            model.HealthHealthy,
		CPUUsage:          cpuSum / n,
		MemoryUsage:       memSum / n,
		ActiveConnections: connSum / n,
		QueueSize:         queueSum / n,
		LastUpdated:       time.Now().UTC(),
	}
	if health.CPUUsage > criticalThreshold || health.MemoryUsage > criticalThreshold {
		health.Status = model.HealthCritical
	} else if health.CPUUsage > warningThreshold || health.MemoryUsage > warningThreshold {
		health.Status = model.HealthWarning
	}
	return health
}
