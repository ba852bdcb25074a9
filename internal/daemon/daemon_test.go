package daemon

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exchangetower/tower/internal/config"
	"github.com/exchangetower/tower/internal/model"
)

// A daemon built from config must dispatch with the configured retry budgets,
// not the built-in defaults. With both budgets at 1, a failing upstream sees
// exactly one duplicate lookup and one dispatch for the order.
func TestRunOnce_RetryBudgetsComeFromConfig(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Retry.ServerErrorMaxAttempts = 1
	cfg.Retry.RateLimitMaxAttempts = 1
	cfg.Alpaca.PaperBaseURL = srv.URL
	cfg.Alpaca.DataBaseURL = srv.URL

	layout := Layout{Base: t.TempDir()}
	require.NoError(t, os.MkdirAll(layout.IncomingDir(), 0755))
	ts := "20260213143022123456"
	filename := "paper_sentiment_stockbuy_" + ts + ".json"
	writeOrder(t, layout, filename, stockBuyBody("sentiment", ts))

	creds := map[model.Mode]config.Credentials{
		model.ModePaper: {APIKey: "key", APISecret: "secret"},
	}
	d, err := New(layout.Base, cfg, creds, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, d.RunOnce(context.Background()))

	assert.Equal(t, int64(2), requests.Load(),
		"duplicate lookup and dispatch must each stop after the configured single attempt")
	assert.FileExists(t, filepath.Join(layout.FailedDir(), filename))
}
