package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"grid-backtest-go/internal/broker"

	"gopkg.in/yaml.v3"
)

// Summary accumulates the outcome of one run.
type Summary struct {
	RunID    string    `yaml:"run_id" json:"run_id"`
	Symbol   string    `yaml:"symbol" json:"symbol"`
	Strategy string    `yaml:"strategy" json:"strategy"`
	Start    time.Time `yaml:"start" json:"start"`
	End      time.Time `yaml:"end" json:"end"`

	Bars     int `yaml:"bars" json:"bars"`
	Orders   int `yaml:"orders" json:"orders"`
	Fills    int `yaml:"fills" json:"fills"`
	Canceled int `yaml:"canceled" json:"canceled"`
	Margin   int `yaml:"margin" json:"margin"`
	Rejected int `yaml:"rejected" json:"rejected"`
	Closed   int `yaml:"closed_trades" json:"closed_trades"`
	Won      int `yaml:"won" json:"won"`
	Lost     int `yaml:"lost" json:"lost"`

	Commission float64 `yaml:"commission" json:"commission"`
	GrossPnL   float64 `yaml:"gross_pnl" json:"gross_pnl"`
	NetPnL     float64 `yaml:"net_pnl" json:"net_pnl"`

	StartValue float64 `yaml:"start_value" json:"start_value"`
	FinalValue float64 `yaml:"final_value" json:"final_value"`
	ReturnPct  float64 `yaml:"return_pct" json:"return_pct"`
	WinRatePct float64 `yaml:"win_rate_pct" json:"win_rate_pct"`
}

// NewSummary starts a summary for a run that begins with startValue.
func NewSummary(runID, symbol, strategy string, startValue float64) *Summary {
	return &Summary{RunID: runID, Symbol: symbol, Strategy: strategy, StartValue: startValue, FinalValue: startValue}
}

// ObserveBar extends the covered time range.
func (s *Summary) ObserveBar(at time.Time) {
	if s.Bars == 0 {
		s.Start = at
	}
	s.End = at
	s.Bars++
}

// ObserveOrder counts a terminal order notification.
func (s *Summary) ObserveOrder(ev broker.OrderEvent) {
	s.Orders++
	switch ev.Status {
	case broker.Completed:
		s.Fills++
		s.Commission += ev.Commission
	case broker.Canceled:
		s.Canceled++
	case broker.Margin:
		s.Margin++
	case broker.Rejected:
		s.Rejected++
	}
}

// ObserveTrade counts a closed round trip.
func (s *Summary) ObserveTrade(ev broker.TradeEvent) {
	s.Closed++
	if ev.Net > 0 {
		s.Won++
	} else {
		s.Lost++
	}
	s.GrossPnL += ev.Gross
	s.NetPnL += ev.Net
}

// Finish records the final portfolio value and derives the ratios.
func (s *Summary) Finish(finalValue float64) {
	s.FinalValue = finalValue
	if s.StartValue != 0 {
		s.ReturnPct = (finalValue - s.StartValue) / s.StartValue * 100
	}
	s.WinRatePct = s.WinRate() * 100
}

// WinRate is the share of closed trades with a positive net result.
func (s *Summary) WinRate() float64 {
	if s.Closed == 0 {
		return 0
	}
	return float64(s.Won) / float64(s.Closed)
}

// WriteYAML encodes the summary to w.
func (s *Summary) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the summary to path.
func (s *Summary) SaveYAML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	if err := s.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadYAML reads a summary written by SaveYAML.
func LoadYAML(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return &s, nil
}
