package shared

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// PathCompletions lists entries that complete prefix.
//
// A prefix ending in a separator (or a bare "~") lists that directory; anything
// else lists the parent directory filtered by the final element. Directories get
// a trailing separator. Missing or unreadable directories give no completions.
func PathCompletions(fs afero.Fs, prefix string) []string {
	expanded := ExpandHome(prefix)

	var dir, partial string
	if prefix == "~" || strings.HasSuffix(prefix, string(filepath.Separator)) {
		dir = expanded
	} else {
		dir, partial = filepath.Split(expanded)
		if dir == "" {
			dir = "."
		}
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return []string{}
	}

	completions := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), partial) {
			continue
		}
		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			full += string(filepath.Separator)
		}
		completions = append(completions, full)
	}
	sort.Strings(completions)
	return completions
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(fs afero.Fs, dir string) error {
	return fs.MkdirAll(dir, 0o755)
}
