package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewRotatingWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "api.log")

	w, err := NewRotatingWriter(path, 0)
	if err != nil {
		t.Fatalf("rotating writer: %v", err)
	}
	logger := NewWithWriter("info", "json", w)
	logger.Info("lead stored", "lead_id", "l1")

	want := filepath.Join(dir, "api."+time.Now().Format("20060102")+".log")
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("read rotated file: %v", err)
	}
	if !strings.Contains(string(data), `"lead_id":"l1"`) {
		t.Fatalf("expected log line in %s, got %q", want, data)
	}
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("expected symlink at %s: %v", path, err)
	}
}
