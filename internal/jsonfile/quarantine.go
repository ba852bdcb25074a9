package jsonfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// Quarantine moves an unprocessable intake file aside so it cannot be
// picked up again, preserving it for operator inspection.
func Quarantine(baseDir, filePath string) (string, error) {
	quarantineDir := filepath.Join(baseDir, "quarantine")
	if err := os.MkdirAll(quarantineDir, 0755); err != nil {
		return "", errors.Wrap(err, "create quarantine dir")
	}

	name := fmt.Sprintf("%s.%s.rejected", filepath.Base(filePath), time.Now().UTC().Format("20060102T150405"))
	dest := filepath.Join(quarantineDir, name)

	if err := os.Rename(filePath, dest); err != nil {
		return "", errors.Wrap(err, "move to quarantine")
	}
	return dest, nil
}
