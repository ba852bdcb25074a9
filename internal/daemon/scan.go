package daemon

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// RunOnce drains the current intake backlog and returns, without watching for
// new files. Used by the scan subcommand for cron-style operation.
func (d *Daemon) RunOnce(ctx context.Context) error {
	for _, dir := range d.layout.Dirs() {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(err, "ensure dir %s", dir)
		}
	}
	if err := d.fileLock.TryLock(); err != nil {
		return errors.Wrap(err, "daemon lock")
	}
	defer d.fileLock.Unlock()
	defer d.limiter.Close()

	if _, err := Reconcile(d.layout, d.logger); err != nil {
		return err
	}

	entries, err := os.ReadDir(d.layout.IncomingDir())
	if err != nil {
		return errors.Wrap(err, "read incoming dir")
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Daemon.Workers)
	for _, name := range names {
		name := name
		path := filepath.Join(d.layout.IncomingDir(), name)
		g.Go(func() error {
			if err := d.pipeline.Process(ctx, path); err != nil {
				d.logger.Error("process_error", "file", name, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	d.stats.LogSummary(d.logger)
	return nil
}
