package shared

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/afero"
)

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare tilde", "~", home},
		{"tilde path", "~/music/a.db", filepath.Join(home, "music/a.db")},
		{"absolute", "/tmp/a.db", "/tmp/a.db"},
		{"relative", "a.db", "a.db"},
		{"tilde user untouched", "~bob/a.db", "~bob/a.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandHome(tt.in); got != tt.want {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPathCompletions(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, f := range []string{"/music/house.db", "/music/hardcore.db", "/music/techno.db"} {
		if err := afero.WriteFile(fs, f, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll("/music/archive", 0o755); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{
			name:   "directory lists all",
			prefix: "/music/",
			want:   []string{"/music/archive/", "/music/hardcore.db", "/music/house.db", "/music/techno.db"},
		},
		{
			name:   "partial name filters",
			prefix: "/music/h",
			want:   []string{"/music/hardcore.db", "/music/house.db"},
		},
		{
			name:   "no match",
			prefix: "/music/z",
			want:   []string{},
		},
		{
			name:   "missing directory",
			prefix: "/nope/",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PathCompletions(fs, tt.prefix)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("PathCompletions(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}
