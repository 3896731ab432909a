package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

const maxHealthErrors = 10

type HealthChecker struct {
	mu             sync.RWMutex
	venue          string
	isConnected    bool
	lastBracket    time.Time
	lastBracketRef string
	unprotected    int
	errors         []string
}

type HealthStatus struct {
	Status          string    `json:"status"`
	Timestamp       time.Time `json:"timestamp"`
	Venue           string    `json:"venue"`
	IsConnected     bool      `json:"is_connected"`
	LastBracket     time.Time `json:"last_bracket,omitempty"`
	LastBracketRef  string    `json:"last_bracket_ref,omitempty"`
	UnprotectedSeen int       `json:"unprotected_brackets"`
	Uptime          string    `json:"uptime"`
	Errors          []string  `json:"errors,omitempty"`
}

func NewHealthChecker(venue string) *HealthChecker {
	return &HealthChecker{
		venue:  venue,
		errors: make([]string, 0),
	}
}

// SetConnected records the result of the last venue connectivity check
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordBracket records a bracket whose entry filled
func (h *HealthChecker) RecordBracket(entryRef string, protected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastBracket = time.Now()
	h.lastBracketRef = entryRef
	if !protected {
		h.unprotected++
	}
}

// RecordError keeps the most recent errors for the health payload
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errors = append(h.errors, time.Now().UTC().Format(time.RFC3339)+" "+msg)
	if len(h.errors) > maxHealthErrors {
		h.errors = h.errors[len(h.errors)-maxHealthErrors:]
	}
}

// Snapshot returns the current health status
func (h *HealthChecker) Snapshot() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected {
		status = "degraded"
	}

	return HealthStatus{
		Status:          status,
		Timestamp:       time.Now(),
		Venue:           h.venue,
		IsConnected:     h.isConnected,
		LastBracket:     h.lastBracket,
		LastBracketRef:  h.lastBracketRef,
		UnprotectedSeen: h.unprotected,
		Uptime:          time.Since(startTime).Round(time.Second).String(),
		Errors:          append([]string(nil), h.errors...),
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
