// Package setup initializes a tower base directory.
package setup

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/exchangetower/tower/templates"
)

// Run creates the tower directory structure under baseDir and writes the
// default config.yaml and an env.example credential stub. It refuses to touch
// a directory that already holds a config.
func Run(baseDir string) error {
	absDir, err := filepath.Abs(baseDir)
	if err != nil {
		return errors.Wrap(err, "resolve base dir")
	}

	configPath := filepath.Join(absDir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return errors.Newf("%s already exists", configPath)
	}

	dirs := []string{
		"orders/incoming",
		"orders/processing",
		"orders/completed",
		"orders/failed",
		"responses",
		"quarantine",
		"locks",
		"logs",
	}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(absDir, d), 0755); err != nil {
			return errors.Wrapf(err, "create directory %s", d)
		}
	}

	if err := copyTemplate("config.yaml", configPath, 0644); err != nil {
		return err
	}
	// Credentials stub is 0600: it will hold secrets once copied to .env.
	return copyTemplate("env.example", filepath.Join(absDir, "env.example"), 0600)
}

func copyTemplate(name, dst string, perm os.FileMode) error {
	data, err := fs.ReadFile(templates.FS, name)
	if err != nil {
		return errors.Wrapf(err, "read template %s", name)
	}
	if err := os.WriteFile(dst, data, perm); err != nil {
		return errors.Wrapf(err, "write %s", dst)
	}
	return nil
}
