// Package server provides the HTTP API over ingestion and question
// answering, plus health checks and graceful shutdown.
package server

import (
	"context"
	"sync"
	"time"
)

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// HealthCheck represents a single health check result.
type HealthCheck struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    HealthStatus  `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Version   string        `json:"version,omitempty"`
	Checks    []HealthCheck `json:"checks,omitempty"`
}

// HealthChecker is a function that performs a health check.
type HealthChecker func(ctx context.Context) HealthCheck

// HealthRegistry holds named health checks and runs them on demand.
type HealthRegistry struct {
	mu      sync.RWMutex
	checks  map[string]HealthChecker
	version string
}

// NewHealthRegistry creates an empty registry reporting the given version.
func NewHealthRegistry(version string) *HealthRegistry {
	return &HealthRegistry{
		checks:  make(map[string]HealthChecker),
		version: version,
	}
}

// RegisterCheck adds a health check under name, replacing any previous one.
func (r *HealthRegistry) RegisterCheck(name string, checker HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks[name] = checker
}

// Run executes all registered checks with a bounded timeout and folds
// their statuses into an overall status.
func (r *HealthRegistry) Run(ctx context.Context) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	r.mu.RLock()
	checks := make(map[string]HealthChecker, len(r.checks))
	for k, v := range r.checks {
		checks[k] = v
	}
	version := r.version
	r.mu.RUnlock()

	response := HealthResponse{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Version:   version,
		Checks:    make([]HealthCheck, 0, len(checks)),
	}

	for name, checker := range checks {
		check := checker(ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)

		if check.Status == HealthStatusUnhealthy {
			response.Status = HealthStatusUnhealthy
		} else if check.Status == HealthStatusDegraded && response.Status == HealthStatusHealthy {
			response.Status = HealthStatusDegraded
		}
	}

	return response
}

// VectorStoreHealthChecker creates a health check for vector store
// connectivity.
func VectorStoreHealthChecker(checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusUnhealthy,
				Message: "vector store connection failed: " + err.Error(),
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "vector store connection OK",
		}
	}
}

// LLMHealthChecker creates a health check for LLM provider availability.
// A nil checkFn reports configuration only.
func LLMHealthChecker(providerName string, checkFn func(ctx context.Context) error) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		if checkFn == nil {
			return HealthCheck{
				Status:  HealthStatusHealthy,
				Message: "LLM provider configured: " + providerName,
				Details: map[string]string{"provider": providerName},
			}
		}

		if err := checkFn(ctx); err != nil {
			return HealthCheck{
				Status:  HealthStatusDegraded,
				Message: "LLM provider degraded: " + err.Error(),
				Details: map[string]string{"provider": providerName},
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: "LLM provider OK",
			Details: map[string]string{"provider": providerName},
		}
	}
}

// ToolHealthChecker creates a health check reporting that an external
// binary (yt-dlp, ffmpeg) was resolved on PATH.
func ToolHealthChecker(name string, lookFn func() (string, error)) HealthChecker {
	return func(ctx context.Context) HealthCheck {
		path, err := lookFn()
		if err != nil {
			return HealthCheck{
				Status:  HealthStatusDegraded,
				Message: name + " not found on PATH; ingestion will fail",
			}
		}
		return HealthCheck{
			Status:  HealthStatusHealthy,
			Message: name + " available",
			Details: map[string]string{"path": path},
		}
	}
}
