package dedupe

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/internal/model"
)

// ArchiveScanner is the second layer: it checks the completed archive for a
// prior job bearing the same client order id. It exists to catch duplicates
// across process restarts, where the recency cache was lost. Only the success
// archive counts: a failed order never reached upstream, so re-submitting its
// id is a legitimate retry, not a duplicate.
type ArchiveScanner struct {
	completedDir string
}

// NewArchiveScanner creates a scanner over the completed archive directory.
func NewArchiveScanner(completedDir string) *ArchiveScanner {
	return &ArchiveScanner{completedDir: completedDir}
}

func (a *ArchiveScanner) Name() string { return LayerArchiveScan }

// Check looks for an archived job file whose identity derives the given id.
// The client order id {agent}_{timestamp}_{type} maps to the deterministic
// archive filenames {mode}_{agent}_{type}_{timestamp}.json; only the mode is
// unknown, so both candidates are probed.
func (a *ArchiveScanner) Check(_ context.Context, clientOrderID string) (bool, error) {
	agentID, timestamp, orderType, err := splitClientOrderID(clientOrderID)
	if err != nil {
		return false, err
	}

	for _, mode := range []model.Mode{model.ModePaper, model.ModeLive} {
		id := model.Identity{Mode: mode, AgentID: agentID, OrderType: orderType, Timestamp: timestamp}
		_, statErr := os.Stat(filepath.Join(a.completedDir, id.Filename()))
		if statErr == nil {
			return true, nil
		}
		if !os.IsNotExist(statErr) {
			return false, errors.Wrap(statErr, "stat archive candidate")
		}
	}
	return false, nil
}

func splitClientOrderID(id string) (agentID, timestamp string, orderType model.OrderType, err error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return "", "", "", errors.Newf("client order id must have 3 fields, got %q", id)
	}
	return parts[0], parts[1], model.OrderType(parts[2]), nil
}
