// Package lock provides the single-instance daemon lock and per-key
// serialization for the order pipeline.
package lock

import (
	"fmt"
	"os"
	"sync"
	"syscall"

	"github.com/cockroachdb/errors"
)

// MutexMap hands out one mutex per key, created on first use. The pipeline
// keys it by client order id so that duplicate detection and admission
// recording for the same id never interleave across workers. Entries are
// reference counted and dropped on the last Unlock, so the map tracks only
// ids currently in flight rather than every id ever seen.
type MutexMap struct {
	mu      sync.Mutex
	entries map[string]*mutexEntry
}

type mutexEntry struct {
	mu   sync.Mutex
	refs int
}

func NewMutexMap() *MutexMap {
	return &MutexMap{entries: make(map[string]*mutexEntry)}
}

func (m *MutexMap) Lock(key string) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &mutexEntry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()
	e.mu.Lock()
}

// Unlock must pair with a prior Lock of the same key.
func (m *MutexMap) Unlock(key string) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		m.mu.Unlock()
		panic("lock: Unlock of unlocked MutexMap key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	e.mu.Unlock()
}

// Len reports how many keys are currently held or contended.
func (m *MutexMap) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// FileLock is an advisory flock guarding against a second towerd on the same
// base directory. The holder's pid is written into the file for operators.
type FileLock struct {
	path string
	file *os.File
}

func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// TryLock acquires the lock without blocking. Failure usually means another
// daemon already owns this base directory.
func (fl *FileLock) TryLock() error {
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return errors.Wrap(err, "open lock file")
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return errors.Wrap(err, "acquire lock (another daemon may be running)")
	}
	if err := fl.writePID(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return err
	}
	fl.file = f
	return nil
}

func (fl *FileLock) writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return errors.Wrap(err, "truncate lock file")
	}
	if _, err := f.Seek(0, 0); err != nil {
		return errors.Wrap(err, "seek lock file")
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return errors.Wrap(err, "write pid to lock file")
	}
	return errors.Wrap(f.Sync(), "sync lock file")
}

// Unlock releases the lock and removes the file. Safe to call twice.
func (fl *FileLock) Unlock() error {
	if fl.file == nil {
		return nil
	}
	if err := syscall.Flock(int(fl.file.Fd()), syscall.LOCK_UN); err != nil {
		fl.file.Close()
		return errors.Wrap(err, "release lock")
	}
	if err := fl.file.Close(); err != nil {
		return errors.Wrap(err, "close lock file")
	}
	os.Remove(fl.path)
	fl.file = nil
	return nil
}
