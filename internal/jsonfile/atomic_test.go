package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtomicWrite_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "response.json")

	data := map[string]any{"status": "success", "count": 42}
	if err := AtomicWrite(path, data); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	var result map[string]any
	if err := json.Unmarshal(content, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if result["status"] != "success" {
		t.Errorf("status: got %v, want %q", result["status"], "success")
	}
}

func TestAtomicWrite_NoTempLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := AtomicWrite(path, map[string]int{"a": 1}); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tower-tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestAtomicWriteRaw_RejectsInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := AtomicWriteRaw(path, []byte("{not json")); err == nil {
		t.Fatal("expected error for invalid JSON content")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("invalid content must not be published, stat err=%v", err)
	}
}

func TestQuarantine(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "garbage.json")
	if err := os.WriteFile(bad, []byte("junk"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	dest, err := Quarantine(dir, bad)
	if err != nil {
		t.Fatalf("Quarantine failed: %v", err)
	}

	if _, err := os.Stat(bad); !os.IsNotExist(err) {
		t.Errorf("source file should be gone, stat err=%v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("quarantined file missing: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(dest), "garbage.json.") {
		t.Errorf("quarantine name should keep original base: %s", dest)
	}
}
