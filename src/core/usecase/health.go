package usecase

import (
	"context"
	"log/slog"
	"time"

	"fluxocaixa/src/core/ports"
)

// HealthService reports liveness and dependency health.
type HealthService struct {
	db          ports.Database
	started     time.Time
	environment string
	version     string
	log         *slog.Logger
}

// NewHealthService creates a new HealthService. Uptime is measured from now.
func NewHealthService(db ports.Database, environment, version string, log *slog.Logger) *HealthService {
	return &HealthService{
		db:          db,
		started:     time.Now(),
		environment: environment,
		version:     version,
		log:         log,
	}
}

// HealthStatus represents the health of the application.
type HealthStatus struct {
	Status      string                     `json:"status"`
	Timestamp   time.Time                  `json:"timestamp"`
	Uptime      float64                    `json:"uptime"`
	Environment string                     `json:"environment"`
	Version     string                     `json:"version"`
	Components  map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Status     string              `json:"status"`
	Message    string              `json:"message,omitempty"`
	ServerTime *time.Time          `json:"server_time,omitempty"`
	Version    string              `json:"version,omitempty"`
	Pool       *ports.PoolSnapshot `json:"pool,omitempty"`
}

// Check reports process liveness without touching dependencies.
func (s *HealthService) Check() *HealthStatus {
	return &HealthStatus{
		Status:      "OK",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(s.started).Seconds(),
		Environment: s.environment,
		Version:     s.version,
	}
}

// Detailed also probes the database. Status is "DEGRADED" when the probe
// fails.
func (s *HealthService) Detailed(ctx context.Context) *HealthStatus {
	status := s.Check()
	status.Components = make(map[string]ComponentHealth)

	pool := s.db.PoolSnapshot()
	probe, err := s.db.Ping(ctx)
	if err != nil {
		s.log.Warn("database health check failed", "error", err)
		status.Status = "DEGRADED"
		status.Components["database"] = ComponentHealth{
			Status:  "unhealthy",
			Message: err.Error(),
			Pool:    &pool,
		}
		return status
	}

	status.Components["database"] = ComponentHealth{
		Status:     "healthy",
		ServerTime: &probe.ServerTime,
		Version:    probe.Version,
		Pool:       &pool,
	}
	return status
}
