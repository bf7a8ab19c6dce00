package shared

import (
	"path/filepath"
	"testing"
)

func TestOpenCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.db")

	db, err := OpenCollection(path)
	if err != nil {
		t.Fatalf("OpenCollection failed: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("MaxOpenConnections = %d, want 1", got)
	}

	version, err := CurrentVersion(db)
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version < 1 {
		t.Error("expected migrations to be applied")
	}
}
