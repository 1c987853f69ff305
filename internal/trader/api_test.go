package trader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"grid-backtest-go/internal/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAPIServer_Status(t *testing.T) {
	engine, _, _ := newTestEngine(t, feed.NewSlice(barsAt(100, 99, 98)), nil)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(NewAPIServer(engine, 0, zap.NewNop()).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status struct {
		UUID     string       `json:"uuid"`
		Symbol   string       `json:"symbol"`
		Strategy string       `json:"strategy"`
		Progress Progress     `json:"progress"`
		Grid     GridSnapshot `json:"grid"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, engine.UUID, status.UUID)
	assert.Equal(t, "BTCUSDT", status.Symbol)
	assert.Equal(t, "Grid", status.Strategy)
	assert.Equal(t, 3, status.Progress.Bars)
	assert.Equal(t, "ACTIVE", status.Grid.Phase)
	assert.Equal(t, []float64{98, 99, 100, 101, 102}, status.Grid.Levels)
	assert.Equal(t, 1.0, status.Grid.Position)
}

func TestAPIServer_HealthAndMetrics(t *testing.T) {
	engine, _, _ := newTestEngine(t, feed.NewSlice(barsAt(100)), nil)
	_, err := engine.Run(context.Background())
	require.NoError(t, err)

	srv := httptest.NewServer(NewAPIServer(engine, 0, zap.NewNop()).routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gridbt_bars_total")
}
