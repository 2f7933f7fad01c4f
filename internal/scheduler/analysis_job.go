package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/analysis"
)

// AnalysisJob runs the full analysis pipeline on schedule.
type AnalysisJob struct {
	orchestrator *analysis.Orchestrator
	timeout      time.Duration
	log          zerolog.Logger
}

// NewAnalysisJob wraps the orchestrator as a scheduled job. timeout bounds
// one full run; zero means one hour.
func NewAnalysisJob(o *analysis.Orchestrator, timeout time.Duration, log zerolog.Logger) *AnalysisJob {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &AnalysisJob{
		orchestrator: o,
		timeout:      timeout,
		log:          log.With().Str("job", "analysis").Logger(),
	}
}

// Name implements Job.
func (j *AnalysisJob) Name() string { return "analysis" }

// Run implements Job.
func (j *AnalysisJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	summary, err := j.orchestrator.Run(ctx)
	if err != nil {
		return err
	}
	j.log.Info().
		Int64("run_id", summary.RunID).
		Int("processed", summary.Processed).
		Int("signals", summary.Signals).
		Msg("scheduled analysis finished")
	return nil
}
