package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getstubd/stubd/pkg/stub"
)

// DefaultStubGlobs select every YAML and JSON file under the stub
// directory, recursively.
var DefaultStubGlobs = []string{"**/*.yaml", "**/*.yml", "**/*.json"}

// FileError is a per-file loading failure. Directory loads keep going
// past individual bad files.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// DirLoader loads stub mappings from every matching file in a directory.
type DirLoader struct {
	dir   string
	globs []string
}

// NewDirLoader creates a loader for dir. Empty globs fall back to
// DefaultStubGlobs.
func NewDirLoader(dir string, globs []string) *DirLoader {
	if len(globs) == 0 {
		globs = DefaultStubGlobs
	}
	return &DirLoader{dir: dir, globs: globs}
}

// Files returns the matching file paths, relative to the loader's
// directory, deduplicated and sorted.
func (l *DirLoader) Files() ([]string, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("stub directory %s: %w", l.dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("stub path %s is not a directory", l.dir)
	}

	fsys := os.DirFS(l.dir)
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range l.globs {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("bad glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load parses every matching file. Files that fail to parse are reported
// in the returned error list without aborting the rest. Mappings without
// an explicit ID get a deterministic one derived from their file path, so
// reloading the same directory upserts rather than duplicates.
func (l *DirLoader) Load() ([]*stub.StubMapping, []*FileError, error) {
	files, err := l.Files()
	if err != nil {
		return nil, nil, err
	}

	var all []*stub.StubMapping
	var errs []*FileError
	for _, rel := range files {
		mappings, err := LoadStubFile(filepath.Join(l.dir, rel))
		if err != nil {
			errs = append(errs, &FileError{Path: rel, Err: err})
			continue
		}
		prefix := idPrefix(rel)
		for i, m := range mappings {
			if m.ID == "" {
				m.ID = fmt.Sprintf("%s-%d", prefix, i)
			}
			all = append(all, m)
		}
	}
	return all, errs, nil
}

// idPrefix turns a relative file path into a stable mapping ID prefix.
func idPrefix(rel string) string {
	p := strings.TrimSuffix(rel, filepath.Ext(rel))
	p = strings.ReplaceAll(p, "/", "-")
	p = strings.ReplaceAll(p, string(filepath.Separator), "-")
	return "file-" + p
}
