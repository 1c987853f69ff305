package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"grid-backtest-go/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func testBar(i int, price float64) models.Bar {
	return models.Bar{
		Symbol:   "BTCUSDT",
		Interval: "1m",
		OpenTime: t0.Add(time.Duration(i) * time.Minute),
		Open:     price,
		High:     price + 1,
		Low:      price - 1,
		Close:    price,
		Volume:   10,
	}
}

func TestRepository_SaveAndLoadBars(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveBars(ctx, []models.Bar{testBar(2, 102), testBar(0, 100), testBar(1, 101)}))

	bars, err := repo.LoadBars(ctx, "BTCUSDT", "1m", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.Equal(t, 102.0, bars[2].Close)
	assert.True(t, bars[0].OpenTime.Equal(t0))

	// Window is half-open.
	bars, err = repo.LoadBars(ctx, "BTCUSDT", "1m", t0.Add(time.Minute), t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 101.0, bars[0].Close)

	bars, err = repo.LoadBars(ctx, "ETHUSDT", "1m", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestRepository_SaveBarsUpserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveBars(ctx, []models.Bar{testBar(0, 100)}))
	require.NoError(t, repo.SaveBars(ctx, []models.Bar{testBar(0, 105)}))
	require.NoError(t, repo.SaveBars(ctx, nil))

	bars, err := repo.LoadBars(ctx, "BTCUSDT", "1m", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 105.0, bars[0].Close)
}

func TestRepository_Runs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &models.Run{RunID: "run-1", Symbol: "BTCUSDT", StartValue: 1000}
	require.NoError(t, repo.CreateRun(ctx, first))
	assert.Equal(t, RunRunning, first.Status)

	second := &models.Run{RunID: "run-2", Symbol: "ETHUSDT"}
	require.NoError(t, repo.CreateRun(ctx, second))

	first.FinalValue = 1010
	first.NetPnL = 10
	require.NoError(t, repo.FinishRun(ctx, first))

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, RunFinished, runs[1].Status)
	assert.Equal(t, 10.0, runs[1].NetPnL)
	assert.NotNil(t, runs[1].FinishedAt)

	runs, err = repo.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// Run IDs are unique.
	assert.Error(t, repo.CreateRun(ctx, &models.Run{RunID: "run-1"}))
}

func TestRepository_FailedRunKeepsStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	run := &models.Run{RunID: "run-x"}
	require.NoError(t, repo.CreateRun(ctx, run))
	run.Status = RunFailed
	require.NoError(t, repo.FinishRun(ctx, run))

	runs, err := repo.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, RunFailed, runs[0].Status)
}

func TestRepository_FillsAndTrades(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveFill(ctx, &models.Fill{RunID: "a", Ref: "2", Side: "SELL", Timestamp: 20}))
	require.NoError(t, repo.SaveFill(ctx, &models.Fill{RunID: "a", Ref: "1", Side: "BUY", Timestamp: 10}))
	require.NoError(t, repo.SaveFill(ctx, &models.Fill{RunID: "b", Ref: "3", Side: "BUY", Timestamp: 5}))

	fills, err := repo.ListFills(ctx, "a")
	require.NoError(t, err)
	require.Len(t, fills, 2)
	assert.Equal(t, "1", fills[0].Ref)
	assert.Equal(t, "2", fills[1].Ref)

	require.NoError(t, repo.SaveClosedTrade(ctx, &models.ClosedTrade{RunID: "a", Net: 1.5, Timestamp: 10}))
	require.NoError(t, repo.SaveClosedTrade(ctx, &models.ClosedTrade{RunID: "a", Net: -0.5, Timestamp: 30}))

	trades, err := repo.ListClosedTrades(ctx, "a")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, -0.5, trades[0].Net)

	trades, err = repo.ListClosedTrades(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, trades)
}
