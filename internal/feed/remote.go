package feed

import (
	"context"
	"fmt"
	"io"
	"time"

	"grid-backtest-go/internal/binance"
	"grid-backtest-go/internal/grid"
	"grid-backtest-go/internal/models"

	"go.uber.org/zap"
)

// BarLoader reads cached bars.
type BarLoader interface {
	LoadBars(ctx context.Context, symbol, interval string, from, to time.Time) ([]models.Bar, error)
}

// BarSaver writes fetched bars to the cache.
type BarSaver interface {
	SaveBars(ctx context.Context, bars []models.Bar) error
}

// Store replays bars previously cached in the database. The query runs on the first Next.
type Store struct {
	loader   BarLoader
	symbol   string
	interval string
	from, to time.Time

	bars   *Slice
	loaded bool
}

func NewStore(loader BarLoader, symbol, interval string, from, to time.Time) *Store {
	return &Store{loader: loader, symbol: symbol, interval: interval, from: from, to: to}
}

func (s *Store) Next(ctx context.Context) (grid.Bar, error) {
	if !s.loaded {
		rows, err := s.loader.LoadBars(ctx, s.symbol, s.interval, s.from, s.to)
		if err != nil {
			return grid.Bar{}, err
		}
		bars := make([]grid.Bar, len(rows))
		for i, r := range rows {
			bars[i] = r.ToGrid()
		}
		s.bars = NewSlice(bars)
		s.loaded = true
	}
	return s.bars.Next(ctx)
}

// Binance pages through historical klines, optionally caching every page it fetches.
type Binance struct {
	client   binance.RestClientInterface
	cache    BarSaver
	logger   *zap.Logger
	symbol   string
	interval string
	next     time.Time
	to       time.Time
	pageSize int

	buf  []grid.Bar
	done bool
}

// BinanceOptions configures a Binance feed. Cache may be nil.
type BinanceOptions struct {
	Symbol   string
	Interval string
	From     time.Time
	To       time.Time
	PageSize int
	Cache    BarSaver
}

func NewBinance(client binance.RestClientInterface, opts BinanceOptions, logger *zap.Logger) *Binance {
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > binance.MaxKlineLimit {
		pageSize = binance.MaxKlineLimit
	}
	return &Binance{
		client:   client,
		cache:    opts.Cache,
		logger:   logger.Named("binance-feed").With(zap.String("symbol", opts.Symbol), zap.String("interval", opts.Interval)),
		symbol:   opts.Symbol,
		interval: opts.Interval,
		next:     opts.From,
		to:       opts.To,
		pageSize: pageSize,
	}
}

func (f *Binance) Next(ctx context.Context) (grid.Bar, error) {
	for len(f.buf) == 0 {
		if f.done {
			return grid.Bar{}, io.EOF
		}
		if err := f.fetch(ctx); err != nil {
			return grid.Bar{}, err
		}
	}
	b := f.buf[0]
	f.buf = f.buf[1:]
	return b, nil
}

func (f *Binance) fetch(ctx context.Context) error {
	req := binance.KlineRequest{
		Symbol:   f.symbol,
		Interval: f.interval,
		Start:    f.next,
		Limit:    f.pageSize,
	}
	if !f.to.IsZero() {
		// endTime is inclusive on the exchange side.
		req.End = f.to.Add(-time.Millisecond)
	}

	klines, err := f.client.GetKlines(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to fetch klines page from %s: %w", f.next.Format(time.RFC3339), err)
	}
	if len(klines) < f.pageSize {
		f.done = true
	}
	if len(klines) == 0 {
		return nil
	}

	rows := make([]models.Bar, 0, len(klines))
	for _, k := range klines {
		b := grid.Bar{Time: k.OpenTime, Open: k.Open, High: k.High, Low: k.Low, Close: k.Close, Volume: k.Volume}
		f.buf = append(f.buf, b)
		rows = append(rows, models.BarFromGrid(f.symbol, f.interval, b))
	}
	f.next = klines[len(klines)-1].OpenTime.Add(time.Millisecond)

	f.logger.Debug("Fetched klines page",
		zap.Int("count", len(klines)),
		zap.Time("first", klines[0].OpenTime),
		zap.Time("last", klines[len(klines)-1].OpenTime),
	)

	if f.cache != nil {
		if err := f.cache.SaveBars(ctx, rows); err != nil {
			f.logger.Warn("Failed to cache klines page", zap.Error(err))
		}
	}
	return nil
}
