package daemon

import (
	"log/slog"
	"sync/atomic"
)

// Stats counts pipeline outcomes since process start.
type Stats struct {
	Claimed     atomic.Int64
	Succeeded   atomic.Int64
	Failed      atomic.Int64
	Duplicates  atomic.Int64
	Quarantined atomic.Int64
}

// LogSummary emits one line with all counters.
func (s *Stats) LogSummary(logger *slog.Logger) {
	logger.Info("pipeline_stats",
		"claimed", s.Claimed.Load(),
		"succeeded", s.Succeeded.Load(),
		"failed", s.Failed.Load(),
		"duplicates", s.Duplicates.Load(),
		"quarantined", s.Quarantined.Load(),
	)
}
