package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"grid-backtest-go/internal/grid"

	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

// Config holds all configuration for the application.
type Config struct {
	Grid     Grid     `mapstructure:"grid"`
	Strategy Strategy `mapstructure:"strategy"`
	Backtest Backtest `mapstructure:"backtest"`
	Feed     Feed     `mapstructure:"feed"`
	Binance  Binance  `mapstructure:"binance"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Grid holds the level layout and reset policy.
type Grid struct {
	Spacing   string  `mapstructure:"spacing"`
	Magnitude float64 `mapstructure:"magnitude"`
	Levels    int     `mapstructure:"levels"`
	Size      float64 `mapstructure:"size"`
	Reset     string  `mapstructure:"reset"`
	ATRPeriod int     `mapstructure:"atr_period"`
	OrderType string  `mapstructure:"order_type"`
	Timezone  string  `mapstructure:"timezone"`
}

// Strategy holds the optional filters layered on top of the grid.
type Strategy struct {
	TrendPeriod  int     `mapstructure:"trend_period"`
	MaxPosition  float64 `mapstructure:"max_position"`
	OrderPercent float64 `mapstructure:"order_percent"`
}

// Backtest holds the simulated account and the replay window.
type Backtest struct {
	Symbol         string  `mapstructure:"symbol"`
	Interval       string  `mapstructure:"interval"`
	From           string  `mapstructure:"from"`
	To             string  `mapstructure:"to"`
	Cash           float64 `mapstructure:"cash"`
	CommissionRate float64 `mapstructure:"commission_rate"`
	ExpireBars     int     `mapstructure:"expire_bars"`
	ReportPath     string  `mapstructure:"report_path"`
}

// Feed selects where bars come from: csv, store or binance.
type Feed struct {
	Source string `mapstructure:"source"`
	Path   string `mapstructure:"path"`
	Cache  bool   `mapstructure:"cache"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	BaseURL        string  `mapstructure:"base_url"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a rotating log file next to the console output.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		return
	}

	err = v.Unmarshal(&config)
	return
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grid.spacing", string(grid.SpacingAbsolute))
	v.SetDefault("grid.levels", 5)
	v.SetDefault("grid.size", 1)
	v.SetDefault("grid.reset", string(grid.ResetOnce))
	v.SetDefault("grid.atr_period", 14)
	v.SetDefault("grid.order_type", string(grid.OrderMarket))
	v.SetDefault("grid.timezone", "UTC")

	v.SetDefault("backtest.interval", "1m")
	v.SetDefault("backtest.cash", 10000)
	v.SetDefault("backtest.commission_rate", 0.001)

	v.SetDefault("feed.source", "csv")

	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.rate_limit", 20)      // requests per second
	v.SetDefault("binance.rate_limit_burst", 5) // burst size

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)

	v.SetDefault("database.dsn", "gridbt.db")
}

// GridConfig converts the grid section into a validated grid.Config.
func (c Config) GridConfig() (grid.Config, error) {
	loc := time.UTC
	if c.Grid.Timezone != "" {
		l, err := time.LoadLocation(c.Grid.Timezone)
		if err != nil {
			return grid.Config{}, fmt.Errorf("invalid grid timezone %q: %w", c.Grid.Timezone, err)
		}
		loc = l
	}

	cfg := grid.Config{
		Spacing:   grid.SpacingMode(strings.ToLower(c.Grid.Spacing)),
		Magnitude: c.Grid.Magnitude,
		Levels:    c.Grid.Levels,
		Size:      c.Grid.Size,
		Reset:     grid.ResetMode(strings.ToLower(c.Grid.Reset)),
		ATRPeriod: c.Grid.ATRPeriod,
		OrderType: grid.OrderType(strings.ToLower(c.Grid.OrderType)),
		Location:  loc,
	}
	if err := cfg.Validate(); err != nil {
		return grid.Config{}, err
	}
	return cfg, nil
}

// Range parses the backtest window. A zero time means the bound is open.
func (b Backtest) Range() (from, to time.Time, err error) {
	if b.From != "" {
		if from, err = parseDate(b.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest.from: %w", err)
		}
	}
	if b.To != "" {
		if to, err = parseDate(b.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid backtest.to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("backtest.from %s is not before backtest.to %s", b.From, b.To)
	}
	return from, to, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(dateLayout, s)
}
