package server

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/mkaravel/cryptotrends/internal/database"
)

// CSVExporter streams CSV dumps of recent analysis output.
type CSVExporter interface {
	WriteTrends(ctx context.Context, w io.Writer, since time.Time, limit int) error
	WriteSignals(ctx context.Context, w io.Writer, since time.Time, limit int) error
}

// healthResponse is the GET /health body.
type healthResponse struct {
	Status   string               `json:"status"`
	Version  string               `json:"version"`
	Service  string               `json:"service"`
	Database database.HealthStats `json:"database"`
	System   systemStats          `json:"system"`
}

type systemStats struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsedMB  uint64  `json:"memory_used_mb"`
}

// handleHealth reports database reachability and host resource usage.
// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "healthy",
		Version: Version,
		Service: "cryptotrends",
	}

	if s.db != nil {
		resp.Database = database.Health(r.Context(), s.db)
		if !resp.Database.Reachable {
			resp.Status = "degraded"
		}
	}

	// Resource stats are best-effort; a probe failure never degrades health.
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		resp.System.CPUPercent = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.System.MemoryPercent = vm.UsedPercent
		resp.System.MemoryUsedMB = vm.Used / 1024 / 1024
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, resp)
}

// handleAnalysisRun triggers a full analysis run in the background. Only one
// run may be in flight at a time.
// POST /api/v1/analysis/run
func (s *Server) handleAnalysisRun(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	if !s.analysisBusy.CompareAndSwap(false, true) {
		s.writeError(w, http.StatusConflict, started, codeAnalysisInProgress, "an analysis run is already in progress")
		return
	}

	s.log.Info().Msg("manual analysis run triggered")
	go func() {
		defer s.analysisBusy.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()

		summary, err := s.analysis.Run(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("manual analysis run failed")
			return
		}
		s.log.Info().
			Int64("run_id", summary.RunID).
			Int("processed", summary.Processed).
			Int("signals", summary.Signals).
			Msg("manual analysis run finished")
	}()

	s.writeData(w, http.StatusAccepted, started, map[string]string{"status": "started"})
}

// handleAnalysisRuns lists recent run records.
// GET /api/v1/analysis/runs
func (s *Server) handleAnalysisRuns(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	limit := intQueryParam(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list analysis runs")
		s.writeError(w, http.StatusInternalServerError, started, codeInternalError, "failed to list analysis runs")
		return
	}

	s.writeData(w, http.StatusOK, started, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

// handleExportTrends streams recent trend records as CSV.
// GET /api/v1/export/trends.csv
func (s *Server) handleExportTrends(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, "trends.csv", s.exporter.WriteTrends)
}

// handleExportSignals streams recent signal events as CSV.
// GET /api/v1/export/signals.csv
func (s *Server) handleExportSignals(w http.ResponseWriter, r *http.Request) {
	s.serveCSV(w, r, "signals.csv", s.exporter.WriteSignals)
}

func (s *Server) serveCSV(w http.ResponseWriter, r *http.Request, filename string, write func(context.Context, io.Writer, time.Time, int) error) {
	started := time.Now()

	hours := intQueryParam(r, "hours", 24)
	limit := intQueryParam(r, "limit", 1000)
	if limit > 10000 {
		limit = 10000
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := write(r.Context(), w, since, limit); err != nil {
		// Headers may already be gone; log and abort the stream.
		s.log.Error().Err(err).Str("file", filename).Dur("elapsed", time.Since(started)).Msg("CSV export failed")
	}
}

func intQueryParam(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
