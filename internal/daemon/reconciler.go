package daemon

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Reconcile repairs the on-disk state after an unclean stop. Files left in
// processing/ were claimed but never reached a terminal directory; moving
// them back to intake lets the pipeline run them again. Re-dispatch of an
// order that did reach upstream is suppressed later by the duplicate layers,
// so the move is safe.
func Reconcile(layout Layout, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(layout.ProcessingDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read processing dir")
	}

	requeued := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		src := filepath.Join(layout.ProcessingDir(), name)
		dst := filepath.Join(layout.IncomingDir(), name)
		if err := os.Rename(src, dst); err != nil {
			logger.Warn("reconcile_requeue_failed", "file", name, "error", err)
			continue
		}
		logger.Info("reconcile_requeued", "file", name)
		requeued++
	}
	return requeued, nil
}
