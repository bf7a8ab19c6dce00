package shared

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
)

func TestTruncate(t *testing.T) {
	tc := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer string", 8, "a lon..."},
		{"abcdef", 3, "abc"},
		{"ünïcødé strings", 6, "ünï..."},
	}

	for _, tt := range tc {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestVerbosityLevel(t *testing.T) {
	tc := map[int]log.Level{
		-1: log.WarnLevel,
		0:  log.WarnLevel,
		1:  log.InfoLevel,
		2:  log.DebugLevel,
		5:  log.DebugLevel,
	}
	for v, want := range tc {
		if got := VerbosityLevel(v); got != want {
			t.Errorf("VerbosityLevel(%d) = %v, want %v", v, got, want)
		}
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stereo.log")

	logger, err := NewFileLogger(path, FileLogOpts{})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	logger.Error("hello", "key", "value")

	content := mustReadFile(t, path)
	if content == "" {
		t.Fatal("expected log file to contain the entry")
	}
}
