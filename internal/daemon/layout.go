package daemon

import "path/filepath"

// Layout maps the tower base directory onto the fixed on-disk structure.
// Agents only ever write to Incoming; everything else is daemon-owned.
type Layout struct {
	Base string
}

func (l Layout) IncomingDir() string   { return filepath.Join(l.Base, "orders", "incoming") }
func (l Layout) ProcessingDir() string { return filepath.Join(l.Base, "orders", "processing") }
func (l Layout) CompletedDir() string  { return filepath.Join(l.Base, "orders", "completed") }
func (l Layout) FailedDir() string     { return filepath.Join(l.Base, "orders", "failed") }
func (l Layout) ResponsesDir() string  { return filepath.Join(l.Base, "responses") }
func (l Layout) LocksDir() string      { return filepath.Join(l.Base, "locks") }
func (l Layout) LogsDir() string       { return filepath.Join(l.Base, "logs") }
func (l Layout) ConfigPath() string    { return filepath.Join(l.Base, "config.yaml") }
func (l Layout) EnvPath() string       { return filepath.Join(l.Base, ".env") }
func (l Layout) LockPath() string      { return filepath.Join(l.LocksDir(), "towerd.lock") }

// Dirs lists every directory the daemon ensures at startup.
func (l Layout) Dirs() []string {
	return []string{
		l.IncomingDir(),
		l.ProcessingDir(),
		l.CompletedDir(),
		l.FailedDir(),
		l.ResponsesDir(),
		l.LocksDir(),
		l.LogsDir(),
		filepath.Join(l.Base, "quarantine"),
	}
}
