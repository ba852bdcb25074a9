package jsonfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestQuarantine_MovesFileAside(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "orders", "incoming", "garbage.txt")
	if err := os.MkdirAll(filepath.Dir(src), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(src, []byte("not an order"), 0644); err != nil {
		t.Fatal(err)
	}

	dest, err := Quarantine(base, src)
	if err != nil {
		t.Fatalf("Quarantine failed: %v", err)
	}

	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source file should be gone")
	}
	if !strings.HasPrefix(filepath.Base(dest), "garbage.txt.") {
		t.Errorf("unexpected quarantine name: %s", dest)
	}
	if !strings.HasSuffix(dest, ".rejected") {
		t.Errorf("quarantine name should end in .rejected: %s", dest)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "not an order" {
		t.Error("content must be preserved")
	}
}

func TestQuarantine_MissingSource(t *testing.T) {
	base := t.TempDir()
	if _, err := Quarantine(base, filepath.Join(base, "nope.txt")); err == nil {
		t.Fatal("expected error for missing source")
	}
}
