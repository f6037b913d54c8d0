// Package health provides the /health endpoint of the API server.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component is operational but with issues.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Response represents the health check response.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
}

// Pinger is implemented by components that can report their liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type component struct {
	name     string
	pinger   Pinger
	critical bool
}

// Checker pings the registered components.
type Checker struct {
	startTime  time.Time
	version    string
	mu         sync.RWMutex
	timeout    time.Duration
	components []component
}

// NewChecker creates a health checker with no components.
func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Register adds a component. A failing critical component makes the service
// unhealthy; any other failing component only degrades it.
func (c *Checker) Register(name string, p Pinger, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component{name: name, pinger: p, critical: critical})
}

// SetTimeout sets the timeout for health checks.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Check pings every component and returns the aggregated response.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	components := append([]component(nil), c.components...)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statuses := make(map[string]ComponentStatus, len(components))
	overall := StatusHealthy
	for _, comp := range components {
		st := ping(checkCtx, comp)
		statuses[comp.name] = st
		switch {
		case st.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case st.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return &Response{
		Status:     overall,
		Components: statuses,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
	}
}

func ping(ctx context.Context, comp component) ComponentStatus {
	failed := StatusDegraded
	if comp.critical {
		failed = StatusUnhealthy
	}
	if comp.pinger == nil {
		return ComponentStatus{Status: failed, Message: comp.name + " not configured"}
	}
	if err := comp.pinger.Ping(ctx); err != nil {
		return ComponentStatus{Status: failed, Message: comp.name + " ping failed: " + err.Error()}
	}
	return ComponentStatus{Status: StatusHealthy, Message: "ok"}
}

// Handler returns an HTTP handler for health checks.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK) // degraded still serves traffic
		}

		json.NewEncoder(w).Encode(response)
	}
}
