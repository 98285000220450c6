package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pulselabs/marketpulse/pkg/agent"
	"github.com/pulselabs/marketpulse/pkg/market"
)

// marketPulseRequest is the wire shape of the report endpoint.
type marketPulseRequest struct {
	UserID          string         `json:"user_id"`
	SelectedIndices []string       `json:"selected_indices"`
	Timestamp       *time.Time     `json:"timestamp,omitempty"`
	ForceRefresh    bool           `json:"force_refresh"`
	Preferences     map[string]any `json:"preferences,omitempty"`
}

// ErrorResponse is the stable error envelope.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// HealthCheckResponse reports service and dependency status.
type HealthCheckResponse struct {
	Status       string            `json:"status"`
	Service      string            `json:"service"`
	Version      string            `json:"version"`
	Timestamp    time.Time         `json:"timestamp"`
	Agents       map[string]string `json:"agents"`
	Dependencies map[string]string `json:"dependencies"`
}

func (s *Server) handleMarketPulse(w http.ResponseWriter, r *http.Request) {
	requestID := FromContext(r.Context())

	var body marketPulseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, requestID, http.StatusBadRequest, "invalid_request",
			"request body is not valid JSON", nil)
		return
	}
	if body.UserID == "" {
		s.writeError(w, requestID, http.StatusBadRequest, "validation_error",
			"user_id is required", map[string]any{"field": "user_id"})
		return
	}
	if len(body.SelectedIndices) == 0 {
		body.SelectedIndices = []string{"NIFTY", "SENSEX"}
	}

	ts := time.Now()
	if body.Timestamp != nil {
		ts = *body.Timestamp
	}

	report, err := s.generator.Generate(r.Context(), market.Request{
		UserID:          body.UserID,
		SelectedIndices: body.SelectedIndices,
		Timestamp:       ts,
		ForceRefresh:    body.ForceRefresh,
		Preferences:     body.Preferences,
	}, requestID)
	if err != nil {
		s.writeTaxonomyError(w, requestID, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	deps := map[string]string{}

	switch {
	case s.cache == nil || !s.cache.Enabled():
		deps["cache"] = "disabled"
	case s.cache.Ping(r.Context()) != nil:
		deps["cache"] = "down"
		status = "degraded"
	default:
		deps["cache"] = "operational"
	}

	code := http.StatusOK
	if status == "unhealthy" {
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, HealthCheckResponse{
		Status:    status,
		Service:   serviceName,
		Version:   Version,
		Timestamp: time.Now().UTC(),
		Agents: map[string]string{
			"market_intelligence": "operational",
			"portfolio_insight":   "operational",
			"summary_generation":  "operational",
		},
		Dependencies: deps,
	})
}

// writeTaxonomyError maps agent errors onto HTTP status codes.
func (s *Server) writeTaxonomyError(w http.ResponseWriter, requestID string, err error) {
	var verr *agent.ValidationError
	if errors.As(err, &verr) {
		s.writeError(w, requestID, http.StatusBadRequest, "validation_error",
			verr.Error(), map[string]any{"agent": verr.Agent})
		return
	}
	var oerr *agent.OrchestrationError
	if errors.As(err, &oerr) {
		s.writeError(w, requestID, http.StatusServiceUnavailable, "orchestration_error",
			oerr.Error(), nil)
		return
	}
	s.logger.Error("report generation failed", "error", err, "request_id", requestID)
	s.writeError(w, requestID, http.StatusInternalServerError, "internal_error",
		"report generation failed", nil)
}

func (s *Server) writeError(w http.ResponseWriter, requestID string, code int, kind, message string, details map[string]any) {
	s.writeJSON(w, code, ErrorResponse{
		Error:     kind,
		Message:   message,
		RequestID: requestID,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}
