// Package jsonfile provides atomic JSON file I/O and quarantine utilities.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// AtomicWrite marshals v and publishes it at path all-or-nothing: a
// concurrent reader sees either no file or the complete content, never a
// partial write.
func AtomicWrite(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}
	return AtomicWriteRaw(path, append(content, '\n'))
}

// AtomicWriteRaw writes content to a temp file in the target directory,
// fsyncs it, re-reads it to verify valid JSON, then renames it into place.
// The rename is the atomic publish step (same-volume).
func AtomicWriteRaw(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tower-tmp-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()

	defer func() {
		// Clean up temp file on any failure path
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return errors.Wrap(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		return errors.Wrap(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close temp file")
	}

	written, err := os.ReadFile(tmpName)
	if err != nil {
		return errors.Wrap(err, "read temp file for validation")
	}
	if !json.Valid(written) {
		return errors.Newf("written content is not valid JSON: %s", tmpName)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrap(err, "atomic rename")
	}
	return nil
}
