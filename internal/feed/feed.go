package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"grid-backtest-go/internal/grid"
)

// ErrOutOfOrder is returned by Ordered when a bar is older than its predecessor.
var ErrOutOfOrder = errors.New("bar out of order")

// Feed is a pull-based bar source. Next returns io.EOF once the source is exhausted.
type Feed interface {
	Next(ctx context.Context) (grid.Bar, error)
}

// Slice replays bars held in memory.
type Slice struct {
	bars []grid.Bar
	pos  int
}

func NewSlice(bars []grid.Bar) *Slice {
	return &Slice{bars: bars}
}

func (s *Slice) Next(ctx context.Context) (grid.Bar, error) {
	if err := ctx.Err(); err != nil {
		return grid.Bar{}, err
	}
	if s.pos >= len(s.bars) {
		return grid.Bar{}, io.EOF
	}
	b := s.bars[s.pos]
	s.pos++
	return b, nil
}

type ordered struct {
	src  Feed
	last time.Time
	seen bool
}

// Ordered guards a feed so that timestamps never go backwards. Equal timestamps are allowed.
func Ordered(src Feed) Feed {
	return &ordered{src: src}
}

func (o *ordered) Next(ctx context.Context) (grid.Bar, error) {
	b, err := o.src.Next(ctx)
	if err != nil {
		return b, err
	}
	if o.seen && b.Time.Before(o.last) {
		return grid.Bar{}, fmt.Errorf("%w: %s after %s", ErrOutOfOrder,
			b.Time.Format(time.RFC3339), o.last.Format(time.RFC3339))
	}
	o.last, o.seen = b.Time, true
	return b, nil
}

type window struct {
	src      Feed
	from, to time.Time
}

// Window drops bars before from and stops at the first bar at or after to. Zero bounds are open.
func Window(src Feed, from, to time.Time) Feed {
	if from.IsZero() && to.IsZero() {
		return src
	}
	return &window{src: src, from: from, to: to}
}

func (w *window) Next(ctx context.Context) (grid.Bar, error) {
	for {
		b, err := w.src.Next(ctx)
		if err != nil {
			return b, err
		}
		if !w.to.IsZero() && !b.Time.Before(w.to) {
			return grid.Bar{}, io.EOF
		}
		if !w.from.IsZero() && b.Time.Before(w.from) {
			continue
		}
		return b, nil
	}
}

// Collect drains f into a slice.
func Collect(ctx context.Context, f Feed) ([]grid.Bar, error) {
	var bars []grid.Bar
	for {
		b, err := f.Next(ctx)
		if errors.Is(err, io.EOF) {
			return bars, nil
		}
		if err != nil {
			return bars, err
		}
		bars = append(bars, b)
	}
}
