package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/metrics"
	"github.com/mkaravel/cryptotrends/internal/store"
)

// MaxLimit caps how many rows any query may return.
const MaxLimit = 50

// DefaultLimit applies when the caller does not ask for a specific count.
const DefaultLimit = 10

// ErrUnsupportedIntent is returned when no intent matches the query text.
var ErrUnsupportedIntent = errors.New("query: unsupported intent")

// Filters are caller-supplied overrides for the parsed intent.
type Filters struct {
	Timeframe     string  `json:"timeframe,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Limit         int     `json:"limit,omitempty"`
}

// Result is the interpreter's answer to one query.
type Result struct {
	Intent         Intent  `json:"intent"`
	Interpretation string  `json:"interpretation"`
	Results        any     `json:"results"`
	TotalMatches   int     `json:"total_matches"`
	FiltersApplied Filters `json:"filters_applied"`
}

// resultsSource is the read-model slice of the store the interpreter needs.
type resultsSource interface {
	Trends(ctx context.Context, trendType domain.TrendType, timeframe domain.Timeframe, minConfidence float64, cutoff time.Time, symbols []string, limit int) ([]store.TrendResult, error)
	Signals(ctx context.Context, signalType domain.SignalType, minConfidence float64, cutoff time.Time, symbols []string, limit int, orderByRatio bool) ([]store.SignalResult, error)
	HighVolatility(ctx context.Context, cutoff time.Time, symbols []string, limit int) ([]store.VolatilityResult, error)
	Trending(ctx context.Context, cutoff time.Time, symbols []string, limit int) ([]store.TrendingResult, error)
	Performance(ctx context.Context, timeframe string, symbols []string, limit int) ([]store.PerformanceResult, error)
}

// queryLogger persists query audit lines, best-effort.
type queryLogger interface {
	Insert(ctx context.Context, l store.QueryLog) error
}

// Interpreter executes parsed intents against the read models.
type Interpreter struct {
	parser  *Parser
	results resultsSource
	logs    queryLogger
	log     zerolog.Logger
}

// NewInterpreter wires the interpreter. logs may be nil to disable auditing.
func NewInterpreter(results resultsSource, logs queryLogger, log zerolog.Logger) *Interpreter {
	return &Interpreter{
		parser:  NewParser(),
		results: results,
		logs:    logs,
		log:     log.With().Str("component", "query").Logger(),
	}
}

// cutoffFor maps a timeframe token to its lookback duration. Unknown tokens
// get the 24h default.
func cutoffFor(timeframe string) time.Duration {
	switch timeframe {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// trendTimeframeFor maps the cutoff timeframe to the trend-record window the
// classifier writes. Short cutoffs read the 7d classification.
func trendTimeframeFor(timeframe string) domain.Timeframe {
	switch timeframe {
	case "7d":
		return domain.Timeframe7d
	case "30d":
		return domain.Timeframe30d
	default:
		return domain.Timeframe7d
	}
}

// Execute parses and runs one query.
func (i *Interpreter) Execute(ctx context.Context, queryText string, filters Filters) (*Result, error) {
	started := time.Now()

	intent := i.parser.Parse(queryText)
	if intent.Type == "" {
		return nil, ErrUnsupportedIntent
	}

	applied := i.mergeFilters(intent, filters)
	cutoff := time.Now().UTC().Add(-cutoffFor(applied.Timeframe))

	results, count, err := i.dispatch(ctx, intent, applied, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query: execute %s: %w", intent.Type, err)
	}

	elapsed := time.Since(started)
	metrics.RecordQuery(string(intent.Type), elapsed.Seconds())
	i.audit(ctx, queryText, intent, count, elapsed)

	return &Result{
		Intent:         intent,
		Interpretation: intent.Interpretation(),
		Results:        results,
		TotalMatches:   count,
		FiltersApplied: applied,
	}, nil
}

// mergeFilters resolves the effective filters: explicit filters win over
// parsed ones, and the limit is clamped.
func (i *Interpreter) mergeFilters(intent Intent, filters Filters) Filters {
	out := Filters{
		Timeframe:     filters.Timeframe,
		MinConfidence: filters.MinConfidence,
		Limit:         filters.Limit,
	}
	if out.Timeframe == "" {
		out.Timeframe = intent.Timeframe
	}
	if out.Timeframe == "" {
		out.Timeframe = "24h"
	}
	if out.Limit <= 0 {
		out.Limit = DefaultLimit
	}
	if out.Limit > MaxLimit {
		out.Limit = MaxLimit
	}
	return out
}

func (i *Interpreter) dispatch(ctx context.Context, intent Intent, f Filters, cutoff time.Time) (any, int, error) {
	switch intent.Type {
	case IntentUptrend, IntentDowntrend:
		tt := domain.TrendUptrend
		if intent.Type == IntentDowntrend {
			tt = domain.TrendDowntrend
		}
		rows, err := i.results.Trends(ctx, tt, trendTimeframeFor(f.Timeframe), f.MinConfidence, cutoff, intent.Symbols, f.Limit)
		return rows, len(rows), err

	case IntentPumpAndDump:
		rows, err := i.results.Signals(ctx, domain.SignalPumpAndDump, f.MinConfidence, cutoff, intent.Symbols, f.Limit, false)
		return rows, len(rows), err

	case IntentBottomedOut:
		rows, err := i.results.Signals(ctx, domain.SignalBottomedOut, f.MinConfidence, cutoff, intent.Symbols, f.Limit, false)
		return rows, len(rows), err

	case IntentVolumeSpike:
		rows, err := i.results.Signals(ctx, domain.SignalVolumeAnomaly, f.MinConfidence, cutoff, intent.Symbols, f.Limit, true)
		return rows, len(rows), err

	case IntentHighVolatility:
		rows, err := i.results.HighVolatility(ctx, cutoff, intent.Symbols, f.Limit)
		return rows, len(rows), err

	case IntentTrending:
		rows, err := i.results.Trending(ctx, cutoff, intent.Symbols, f.Limit)
		return rows, len(rows), err

	case IntentPerformance:
		rows, err := i.results.Performance(ctx, f.Timeframe, intent.Symbols, f.Limit)
		return rows, len(rows), err
	}
	return nil, 0, ErrUnsupportedIntent
}

// audit writes the query log line. Failures are logged and swallowed; a
// lost audit row never fails the request.
func (i *Interpreter) audit(ctx context.Context, queryText string, intent Intent, count int, elapsed time.Duration) {
	if i.logs == nil {
		return
	}
	entry := store.QueryLog{
		QueryText:        queryText,
		IntentType:       string(intent.Type),
		IntentConfidence: intent.Confidence,
		ResultCount:      count,
		ExecutionTimeMS:  elapsed.Milliseconds(),
	}
	if len(intent.Symbols) > 0 {
		entry.Metadata = map[string]any{"symbols": intent.Symbols}
	}
	if err := i.logs.Insert(ctx, entry); err != nil {
		i.log.Warn().Err(err).Msg("query log write failed")
	}
}
