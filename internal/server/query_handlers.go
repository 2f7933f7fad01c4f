package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkaravel/cryptotrends/internal/query"
)

// queryRequest is the POST /api/v1/query body.
type queryRequest struct {
	Query   string        `json:"query"`
	Filters query.Filters `json:"filters"`
}

// handleQuery interprets one natural-language query.
// POST /api/v1/query
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, started, codeMissingBody, "request body could not be read")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		s.writeError(w, http.StatusBadRequest, started, codeMissingBody, "request body is required")
		return
	}

	var req queryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, started, codeInvalidJSON, "request body is not valid JSON")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, started, codeEmptyQuery, "query text is required")
		return
	}

	result, err := s.queries.Execute(r.Context(), req.Query, req.Filters)
	if err != nil {
		if errors.Is(err, query.ErrUnsupportedIntent) {
			s.writeError(w, http.StatusUnprocessableEntity, started, codeUnsupportedIntent,
				"query not understood; see GET /api/v1/query/examples for supported phrasings")
			return
		}
		s.log.Error().Err(err).Str("query", req.Query).Msg("query execution failed")
		s.writeError(w, http.StatusInternalServerError, started, codeInternalError, "query execution failed")
		return
	}

	s.writeData(w, http.StatusOK, started, result)
}

// handleQueryExamples lists the supported intents with example phrasings.
// GET /api/v1/query/examples
func (s *Server) handleQueryExamples(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	s.writeData(w, http.StatusOK, started, map[string]any{
		"supported_queries": query.SupportedQueries(),
	})
}
