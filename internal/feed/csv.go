package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"grid-backtest-go/internal/grid"
)

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006-1-2 15:4:5",
	"2006/1/2 15:4:5",
	"2006-1-2",
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "20060102", "2006-1-2", "2006/1/2"}

var timeLayouts = []string{"15:04:05", "15:04", "150405", "1504", "15:4:5", "15:4"}

// columns maps the header names the loader understands to their index.
type columns struct {
	datetime, date, clock, timestamp int
	open, high, low, close, volume   int
}

// CSV reads bars from delimited text with a header row. Time comes from a datetime column, a
// date plus time column pair, or a unix-millisecond timestamp column. The volume column may be
// named vol or volume and is optional.
type CSV struct {
	r    *csv.Reader
	cols columns
	loc  *time.Location
	line int
}

// NewCSV reads the header from r. Naive timestamps are interpreted in loc (UTC when nil).
func NewCSV(r io.Reader, loc *time.Location) (*CSV, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}
	return &CSV{r: cr, cols: cols, loc: loc, line: 1}, nil
}

func mapColumns(header []string) (columns, error) {
	c := columns{datetime: -1, date: -1, clock: -1, timestamp: -1, open: -1, high: -1, low: -1, close: -1, volume: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "datetime":
			c.datetime = i
		case "date":
			c.date = i
		case "time":
			c.clock = i
		case "timestamp", "open_time":
			c.timestamp = i
		case "open":
			c.open = i
		case "high":
			c.high = i
		case "low":
			c.low = i
		case "close":
			c.close = i
		case "vol", "volume":
			c.volume = i
		}
	}

	if c.open < 0 || c.high < 0 || c.low < 0 || c.close < 0 {
		return c, errors.New("csv header must name open, high, low and close columns")
	}
	if c.datetime < 0 && c.date < 0 && c.timestamp < 0 {
		return c, errors.New("csv header must name a datetime, date or timestamp column")
	}
	return c, nil
}

func (c *CSV) Next(ctx context.Context) (grid.Bar, error) {
	if err := ctx.Err(); err != nil {
		return grid.Bar{}, err
	}

	rec, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return grid.Bar{}, io.EOF
		}
		return grid.Bar{}, fmt.Errorf("failed to read csv line %d: %w", c.line+1, err)
	}
	c.line++

	b, err := c.parse(rec)
	if err != nil {
		return grid.Bar{}, fmt.Errorf("csv line %d: %w", c.line, err)
	}
	return b, nil
}

func (c *CSV) parse(rec []string) (grid.Bar, error) {
	at, err := c.parseTime(rec)
	if err != nil {
		return grid.Bar{}, err
	}

	b := grid.Bar{Time: at}
	fields := []struct {
		name string
		idx  int
		dst  *float64
	}{
		{"open", c.cols.open, &b.Open},
		{"high", c.cols.high, &b.High},
		{"low", c.cols.low, &b.Low},
		{"close", c.cols.close, &b.Close},
		{"volume", c.cols.volume, &b.Volume},
	}
	for _, f := range fields {
		if f.idx < 0 {
			continue
		}
		raw, err := field(rec, f.idx)
		if err != nil {
			return grid.Bar{}, err
		}
		if raw == "" && f.name == "volume" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return grid.Bar{}, fmt.Errorf("invalid %s %q: %w", f.name, raw, err)
		}
		*f.dst = v
	}
	return b, nil
}

func (c *CSV) parseTime(rec []string) (time.Time, error) {
	switch {
	case c.cols.datetime >= 0:
		raw, err := field(rec, c.cols.datetime)
		if err != nil {
			return time.Time{}, err
		}
		return parseIn(raw, dateTimeLayouts, c.loc)
	case c.cols.date >= 0:
		day, err := field(rec, c.cols.date)
		if err != nil {
			return time.Time{}, err
		}
		d, err := parseIn(day, dateLayouts, c.loc)
		if err != nil || c.cols.clock < 0 {
			return d, err
		}
		clock, err := field(rec, c.cols.clock)
		if err != nil {
			return time.Time{}, err
		}
		tod, err := parseIn(clock, timeLayouts, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), tod.Second(), 0, c.loc), nil
	default:
		raw, err := field(rec, c.cols.timestamp)
		if err != nil {
			return time.Time{}, err
		}
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
		}
		return time.UnixMilli(ms).UTC(), nil
	}
}

func field(rec []string, i int) (string, error) {
	if i >= len(rec) {
		return "", fmt.Errorf("missing column %d", i+1)
	}
	return strings.TrimSpace(rec[i]), nil
}

func parseIn(raw string, layouts []string, loc *time.Location) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", raw)
}
