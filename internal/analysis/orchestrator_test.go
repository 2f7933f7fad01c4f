package analysis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkaravel/cryptotrends/internal/config"
	"github.com/mkaravel/cryptotrends/internal/domain"
)

type fakeStore struct {
	mu sync.Mutex

	assets    []domain.Asset
	assetsErr error
	bars      map[int64][]domain.Bar
	barsErr   map[int64]error
	existing  map[int64][]domain.SignalEvent

	trends     []domain.TrendRecord
	trendErr   error
	signals    []domain.SignalEvent
	signalErr  error
	runStarted  int
	completed   []string
	failedMsgs  []string
	startErr    error
	completeErr error
}

func (f *fakeStore) ListActive(context.Context) ([]domain.Asset, error) {
	return f.assets, f.assetsErr
}

func (f *fakeStore) ListSince(_ context.Context, assetID int64, _ time.Time) ([]domain.Bar, error) {
	if err := f.barsErr[assetID]; err != nil {
		return nil, err
	}
	return f.bars[assetID], nil
}

func (f *fakeStore) Upsert(_ context.Context, rec *domain.TrendRecord) error {
	if f.trendErr != nil {
		return f.trendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trends = append(f.trends, *rec)
	return nil
}

func (f *fakeStore) Insert(_ context.Context, e *domain.SignalEvent) error {
	if f.signalErr != nil {
		return f.signalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, *e)
	return nil
}

func (f *fakeStore) ListRecentForAsset(_ context.Context, assetID int64, _ time.Time) ([]domain.SignalEvent, error) {
	return f.existing[assetID], nil
}

func (f *fakeStore) Start(context.Context, string) (int64, error) {
	if f.startErr != nil {
		return 0, f.startErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runStarted++
	return 42, nil
}

func (f *fakeStore) Complete(_ context.Context, _ int64, _ int, notes string) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, notes)
	return nil
}

func (f *fakeStore) Fail(_ context.Context, _ int64, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failedMsgs = append(f.failedMsgs, message)
	return nil
}

func testConfig() config.AnalysisConfig {
	return config.AnalysisConfig{
		Mode:          domain.ModeLegacy,
		LookbackDays:  180,
		WorkerLimit:   2,
		DedupLookback: 3 * 24 * time.Hour,
	}
}

func newOrchestrator(f *fakeStore, cfg config.AnalysisConfig) *Orchestrator {
	return New(f, f, f, f, f, cfg, zerolog.Nop())
}

func risingBars(assetID int64, now time.Time, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	for i := range bars {
		bars[i] = domain.Bar{
			AssetID:   assetID,
			Timestamp: now.Add(-time.Duration(n-1-i) * 24 * time.Hour),
			Close:     100 * (1 + 0.01*float64(i)),
			Volume:    1000,
		}
	}
	return bars
}

func TestRunHappyPath(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		assets: []domain.Asset{
			{ID: 1, Symbol: "BTC", Rank: 1, IsActive: true},
			{ID: 2, Symbol: "ETH", Rank: 2, IsActive: true},
		},
		bars: map[int64][]domain.Bar{
			1: risingBars(1, now, 60),
			2: risingBars(2, now, 60),
		},
	}

	sum, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(42), sum.RunID)
	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 0, sum.Failed)

	// Three timeframes per asset on 60 days of history.
	assert.Len(t, f.trends, 6)
	require.Len(t, f.completed, 1)
	assert.Empty(t, f.failedMsgs)
}

func TestRunSkipsShortHistory(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		assets: []domain.Asset{
			{ID: 1, Symbol: "BTC"},
			{ID: 2, Symbol: "DUST"},
		},
		bars: map[int64][]domain.Bar{
			1: risingBars(1, now, 60),
			2: risingBars(2, now, 5), // below the 14-bar minimum
		},
	}

	sum, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Failed)
}

func TestRunContinuesPastAssetErrors(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		assets: []domain.Asset{
			{ID: 1, Symbol: "BTC"},
			{ID: 2, Symbol: "BROKEN"},
			{ID: 3, Symbol: "ETH"},
		},
		bars: map[int64][]domain.Bar{
			1: risingBars(1, now, 60),
			3: risingBars(3, now, 60),
		},
		barsErr: map[int64]error{2: errors.New("connection reset")},
	}

	sum, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, f.completed, 1)
	assert.Contains(t, f.completed[0], "failed=1")
}

func TestRunFailsWhenAssetsUnavailable(t *testing.T) {
	f := &fakeStore{assetsErr: errors.New("db down")}

	_, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.Error(t, err)
	require.Len(t, f.failedMsgs, 1)
	assert.Contains(t, f.failedMsgs[0], "db down")
	assert.Empty(t, f.completed)
}

func TestRunCancellation(t *testing.T) {
	now := time.Now().UTC()
	assets := make([]domain.Asset, 20)
	bars := map[int64][]domain.Bar{}
	for i := range assets {
		id := int64(i + 1)
		assets[i] = domain.Asset{ID: id, Symbol: "A"}
		bars[id] = risingBars(id, now, 60)
	}
	f := &fakeStore{assets: assets, bars: bars}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(f, testConfig()).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, f.failedMsgs, 1)
	assert.Equal(t, "cancelled", f.failedMsgs[0])
	assert.Empty(t, f.completed)
}

func TestRunRecordOpenFailureIsTerminal(t *testing.T) {
	f := &fakeStore{startErr: errors.New("no write")}
	_, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.Error(t, err)
}

func TestRunCompleteWriteFailureMarksRunFailed(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		assets:      []domain.Asset{{ID: 1, Symbol: "BTC"}},
		bars:        map[int64][]domain.Bar{1: risingBars(1, now, 60)},
		completeErr: errors.New("write timeout"),
	}

	_, err := newOrchestrator(f, testConfig()).Run(context.Background())
	require.Error(t, err)

	// The record never stays in running state: a failed completed write
	// falls back to the failed terminal state.
	require.Len(t, f.failedMsgs, 1)
	assert.Contains(t, f.failedMsgs[0], "write timeout")
	assert.Empty(t, f.completed)
}

func TestRunIdempotentTrendOutput(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		assets: []domain.Asset{{ID: 1, Symbol: "BTC"}},
		bars:   map[int64][]domain.Bar{1: risingBars(1, now, 60)},
	}
	o := newOrchestrator(f, testConfig())

	_, err := o.Run(context.Background())
	require.NoError(t, err)
	firstTrends := len(f.trends)
	firstSignals := make([]domain.SignalEvent, len(f.signals))
	copy(firstSignals, f.signals)

	// Second run on unchanged input: same trend upserts, no new signals
	// because the persisted ones feed cross-run dedup.
	f.existing = map[int64][]domain.SignalEvent{1: firstSignals}
	_, err = o.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2*firstTrends, len(f.trends))
	for i := 0; i < firstTrends; i++ {
		assert.Equal(t, f.trends[i].TrendType, f.trends[firstTrends+i].TrendType)
		assert.InDelta(t, f.trends[i].Confidence, f.trends[firstTrends+i].Confidence, 1e-9)
	}
	assert.Len(t, f.signals, len(firstSignals))
}

func TestWorkerCount(t *testing.T) {
	o := newOrchestrator(&fakeStore{}, config.AnalysisConfig{WorkerLimit: 8, LookbackDays: 180})
	assert.Equal(t, 3, o.workerCount(3))
	assert.Equal(t, 8, o.workerCount(100))
}
