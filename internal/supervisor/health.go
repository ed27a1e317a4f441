package supervisor

import (
	"sync"
	"time"
)

const (
	ServiceStatusHealthy = "healthy"
	ServiceStatusFailed  = "failed"
)

// ServiceHealth is the last known state of one service.
// Error details are not exposed.
type ServiceHealth struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

// HealthStatus is the payload served by the health endpoint.
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services"`
}

// HealthTracker tracks the health status of all services.
// It is safe for concurrent use.
type HealthTracker struct {
	mu       sync.RWMutex
	services map[string]ServiceHealth
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		services: make(map[string]ServiceHealth),
	}
}

func (h *HealthTracker) MarkHealthy(name string) {
	h.mark(name, ServiceStatusHealthy)
}

func (h *HealthTracker) MarkFailed(name string) {
	h.mark(name, ServiceStatusFailed)
}

func (h *HealthTracker) mark(name, status string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.services[name] = ServiceHealth{
		Status:    status,
		LastCheck: time.Now(),
	}
}

// IsHealthy returns true if no service has failed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.isHealthyLocked()
}

// GetStatus returns the overall status with a copy of every service's health.
func (h *HealthTracker) GetStatus() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	services := make(map[string]ServiceHealth, len(h.services))
	for name, s := range h.services {
		services[name] = s
	}

	status := ServiceStatusHealthy
	if !h.isHealthyLocked() {
		status = ServiceStatusFailed
	}

	return HealthStatus{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	}
}

// caller must hold at least the read lock
func (h *HealthTracker) isHealthyLocked() bool {
	for _, s := range h.services {
		if s.Status != ServiceStatusHealthy {
			return false
		}
	}
	return true
}
