package workers

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// HealthMonitor monitors worker health
type HealthMonitor struct {
	pool     *Pool
	interval time.Duration
	logger   *zap.Logger

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
}

// HealthStatus represents the health status of the worker pool
type HealthStatus struct {
	TotalWorkers   int
	IdleWorkers    int
	BusyWorkers    int
	StoppedWorkers int
	Healthy        bool
	Timestamp      time.Time
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(pool *Pool, interval time.Duration, logger *zap.Logger) *HealthMonitor {
	return &HealthMonitor{
		pool:     pool,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start starts the health monitor
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop stops the health monitor
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.stopCh)
}

// run is the main health monitoring loop
func (h *HealthMonitor) run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stopCh:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

// checkHealth inspects worker statuses and logs anomalies
func (h *HealthMonitor) checkHealth() {
	status := h.Check()

	if !status.Healthy {
		h.logger.Warn("worker pool unhealthy",
			zap.Int("total", status.TotalWorkers),
			zap.Int("stopped", status.StoppedWorkers))
		return
	}

	h.logger.Debug("worker pool healthy",
		zap.Int("idle", status.IdleWorkers),
		zap.Int("busy", status.BusyWorkers))
}

// Check returns a point-in-time health snapshot
func (h *HealthMonitor) Check() HealthStatus {
	statuses := h.pool.GetStatus()

	status := HealthStatus{
		TotalWorkers: len(statuses),
		Timestamp:    time.Now(),
	}

	for _, s := range statuses {
		switch s {
		case WorkerStatusIdle:
			status.IdleWorkers++
		case WorkerStatusBusy:
			status.BusyWorkers++
		case WorkerStatusStopped:
			status.StoppedWorkers++
		}
	}

	status.Healthy = status.StoppedWorkers == 0
	return status
}
