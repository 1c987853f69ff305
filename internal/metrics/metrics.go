package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gridbt_bars_total", Help: "Bars replayed"},
		[]string{"symbol"},
	)
	CrossingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gridbt_crossings_total", Help: "Grid levels crossed, by decision"},
		[]string{"symbol", "decision"},
	)
	IntentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gridbt_intents_total", Help: "Intents submitted to the broker"},
		[]string{"symbol", "side"},
	)
	OrderEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gridbt_order_events_total", Help: "Terminal order notifications"},
		[]string{"symbol", "status"},
	)
	ClosedTradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gridbt_closed_trades_total", Help: "Round trips closed"},
		[]string{"symbol"},
	)
	Position = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "gridbt_position", Help: "Quantity currently held"},
		[]string{"symbol"},
	)
	PortfolioValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "gridbt_portfolio_value", Help: "Cash plus position marked at the last close"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, CrossingsTotal, IntentsTotal, OrderEventsTotal, ClosedTradesTotal, Position, PortfolioValue)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
