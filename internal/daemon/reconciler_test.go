package daemon

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_RequeuesOrphans(t *testing.T) {
	layout := Layout{Base: t.TempDir()}
	for _, dir := range layout.Dirs() {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	orphan := "paper_sentiment_stockbuy_20260213143022123456.json"
	require.NoError(t, os.WriteFile(filepath.Join(layout.ProcessingDir(), orphan), []byte("{}"), 0644))
	// Non-order files in processing are left alone.
	require.NoError(t, os.WriteFile(filepath.Join(layout.ProcessingDir(), "scratch.tmp"), nil, 0644))

	n, err := Reconcile(layout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, filepath.Join(layout.IncomingDir(), orphan))
	assert.NoFileExists(t, filepath.Join(layout.ProcessingDir(), orphan))
	assert.FileExists(t, filepath.Join(layout.ProcessingDir(), "scratch.tmp"))
}

func TestReconcile_MissingProcessingDir(t *testing.T) {
	layout := Layout{Base: t.TempDir()}
	n, err := Reconcile(layout, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Zero(t, n)
}
