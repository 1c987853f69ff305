package database

import (
	"context"
	"fmt"
	"time"

	"grid-backtest-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// saveBatchSize keeps each upsert below sqlite's bound-variable limit.
const saveBatchSize = 200

// Repository wraps the queries the backtest and the UI need.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveBars upserts bars keyed on symbol, interval and open time.
func (r *Repository) SaveBars(ctx context.Context, bars []models.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "open_time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).CreateInBatches(bars, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to save %d bars: %w", len(bars), err)
	}
	return nil
}

// LoadBars returns cached bars in [from, to) ordered by open time. Zero bounds are open.
func (r *Repository) LoadBars(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Bar, error) {
	q := r.db.WithContext(ctx).Where("symbol = ? AND interval = ?", symbol, interval)
	if !from.IsZero() {
		q = q.Where("open_time >= ?", from.UTC())
	}
	if !to.IsZero() {
		q = q.Where("open_time < ?", to.UTC())
	}

	var bars []models.Bar
	if err := q.Order("open_time asc").Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("failed to load bars for %s/%s: %w", symbol, interval, err)
	}
	return bars, nil
}

// CreateRun records a new run in the running state.
func (r *Repository) CreateRun(ctx context.Context, run *models.Run) error {
	if run.Status == "" {
		run.Status = RunRunning
	}
	if err := r.db.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to create run %s: %w", run.RunID, err)
	}
	return nil
}

// FinishRun stores the final figures of a run.
func (r *Repository) FinishRun(ctx context.Context, run *models.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if run.Status == "" || run.Status == RunRunning {
		run.Status = RunFinished
	}
	if err := r.db.WithContext(ctx).Save(run).Error; err != nil {
		return fmt.Errorf("failed to finish run %s: %w", run.RunID, err)
	}
	return nil
}

func (r *Repository) SaveFill(ctx context.Context, fill *models.Fill) error {
	if err := r.db.WithContext(ctx).Create(fill).Error; err != nil {
		return fmt.Errorf("failed to save fill %s: %w", fill.Ref, err)
	}
	return nil
}

func (r *Repository) SaveClosedTrade(ctx context.Context, trade *models.ClosedTrade) error {
	if err := r.db.WithContext(ctx).Create(trade).Error; err != nil {
		return fmt.Errorf("failed to save closed trade: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	var runs []models.Run
	q := r.db.WithContext(ctx).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// ListFills returns the order notifications of a run in the order they happened.
func (r *Repository) ListFills(ctx context.Context, runID string) ([]models.Fill, error) {
	var fills []models.Fill
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("timestamp asc, id asc").Find(&fills).Error; err != nil {
		return nil, fmt.Errorf("failed to list fills for run %s: %w", runID, err)
	}
	return fills, nil
}

// ListClosedTrades returns the closed trades of a run, newest first.
func (r *Repository) ListClosedTrades(ctx context.Context, runID string) ([]models.ClosedTrade, error) {
	var trades []models.ClosedTrade
	if err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("timestamp desc, id desc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list closed trades for run %s: %w", runID, err)
	}
	return trades, nil
}

// Run statuses.
const (
	RunRunning  = "running"
	RunFinished = "finished"
	RunFailed   = "failed"
)
