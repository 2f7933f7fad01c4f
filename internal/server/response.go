package server

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes returned in the response envelope.
const (
	codeMissingBody        = "MISSING_BODY"
	codeInvalidJSON        = "INVALID_JSON"
	codeEmptyQuery         = "EMPTY_QUERY"
	codeUnsupportedIntent  = "UNSUPPORTED_INTENT"
	codeAnalysisInProgress = "ANALYSIS_IN_PROGRESS"
	codeInternalError      = "INTERNAL_ERROR"
)

// envelope is the uniform response shape for JSON endpoints.
type envelope struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Meta    *meta     `json:"meta,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type meta struct {
	Timestamp       string `json:"timestamp"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
	Version         string `json:"version"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newMeta(started time.Time) *meta {
	return &meta{
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
		ExecutionTimeMS: time.Since(started).Milliseconds(),
		Version:         Version,
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeData writes a success envelope around data.
func (s *Server) writeData(w http.ResponseWriter, status int, started time.Time, data any) {
	s.writeJSON(w, status, envelope{
		Success: true,
		Data:    data,
		Meta:    newMeta(started),
	})
}

// writeError writes an error envelope.
func (s *Server) writeError(w http.ResponseWriter, status int, started time.Time, code, message string) {
	s.writeJSON(w, status, envelope{
		Success: false,
		Meta:    newMeta(started),
		Error:   &apiError{Code: code, Message: message},
	})
}
