package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"grid-backtest-go/internal/binance"
	"grid-backtest-go/internal/config"
	"grid-backtest-go/internal/database"
	"grid-backtest-go/internal/feed"

	"go.uber.org/zap"
)

// openFeed builds the configured bar source, guarded against out-of-order bars and clipped to
// [from, to). The returned func releases whatever the source holds open.
func openFeed(ctx context.Context, cfg *config.Config, loc *time.Location, from, to time.Time, repo *database.Repository, log *zap.Logger) (feed.Feed, func(), error) {
	var src feed.Feed
	closer := func() {}

	switch strings.ToLower(cfg.Feed.Source) {
	case "csv":
		if cfg.Feed.Path == "" {
			return nil, nil, fmt.Errorf("feed.path is required for the csv source")
		}
		f, err := os.Open(cfg.Feed.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s: %w", cfg.Feed.Path, err)
		}
		c, err := feed.NewCSV(f, loc)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		src = c
		closer = func() { f.Close() }
		log.Info("Replaying bars from csv", zap.String("path", cfg.Feed.Path))

	case "store":
		src = feed.NewStore(repo, cfg.Backtest.Symbol, cfg.Backtest.Interval, from, to)
		log.Info("Replaying cached bars", zap.String("symbol", cfg.Backtest.Symbol), zap.String("interval", cfg.Backtest.Interval))

	case "binance":
		if from.IsZero() || to.IsZero() {
			return nil, nil, fmt.Errorf("backtest.from and backtest.to are required for the binance source")
		}
		client := binance.NewRestClient(&cfg.Binance, log)
		if _, err := client.GetServerTime(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Binance API: %w", err)
		}
		log.Info("Successfully connected to Binance API.")
		opts := feed.BinanceOptions{
			Symbol:   cfg.Backtest.Symbol,
			Interval: cfg.Backtest.Interval,
			From:     from,
			To:       to,
		}
		if cfg.Feed.Cache {
			opts.Cache = repo
		}
		src = feed.NewBinance(client, opts, log)

	default:
		return nil, nil, fmt.Errorf("unknown feed source %q", cfg.Feed.Source)
	}

	return feed.Window(feed.Ordered(src), from, to), closer, nil
}
