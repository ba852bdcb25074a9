// Package status inspects a tower base directory and reports daemon and
// queue state for operators.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/cockroachdb/errors"
)

type Report struct {
	Daemon DaemonStatus `json:"daemon"`
	Queues []QueueDepth `json:"queues"`
}

type DaemonStatus struct {
	Running bool   `json:"running"`
	PID     string `json:"pid,omitempty"`
}

type QueueDepth struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Collect gathers the report without printing it.
func Collect(baseDir string) (Report, error) {
	var r Report
	r.Daemon = checkDaemon(filepath.Join(baseDir, "locks", "towerd.lock"))

	ordersDir := filepath.Join(baseDir, "orders")
	for _, name := range []string{"incoming", "processing", "completed", "failed"} {
		count, err := countFiles(filepath.Join(ordersDir, name))
		if err != nil {
			return Report{}, errors.Wrapf(err, "count %s", name)
		}
		r.Queues = append(r.Queues, QueueDepth{Name: name, Count: count})
	}
	qCount, err := countFiles(filepath.Join(baseDir, "quarantine"))
	if err == nil {
		r.Queues = append(r.Queues, QueueDepth{Name: "quarantine", Count: qCount})
	}
	return r, nil
}

// Run prints the report, as a table or JSON.
func Run(baseDir string, jsonOutput bool) error {
	r, err := Collect(baseDir)
	if err != nil {
		return err
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	if r.Daemon.Running {
		fmt.Printf("Daemon: running (pid %s)\n", r.Daemon.PID)
	} else {
		fmt.Println("Daemon: stopped")
	}
	fmt.Printf("\n  %-12s %7s\n", "QUEUE", "FILES")
	for _, q := range r.Queues {
		fmt.Printf("  %-12s %7d\n", q.Name, q.Count)
	}
	return nil
}

// checkDaemon probes the daemon's flock. A live daemon holds an exclusive
// lock, so a failed shared probe means it is running.
func checkDaemon(lockPath string) DaemonStatus {
	f, err := os.Open(lockPath)
	if err != nil {
		return DaemonStatus{Running: false}
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err != nil {
		data, _ := os.ReadFile(lockPath)
		return DaemonStatus{Running: true, PID: strings.TrimSpace(string(data))}
	}
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return DaemonStatus{Running: false}
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	count := 0
	for _, e := range entries {
		if !e.IsDir() {
			count++
		}
	}
	return count, nil
}
