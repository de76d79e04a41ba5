package deps

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/matzehuels/pypi-updater/pkg/errors"
)

// DefaultPatterns are the doublestar patterns searched under the project
// root when no files are named explicitly.
var DefaultPatterns = []string{
	"requirements/**/*.in",
	"requirements*.in",
	"requirements*.txt",
	"setup.py",
	"pyproject.toml",
}

// Discover expands patterns relative to root and returns the matching
// declaration files in pattern order, lexically sorted within a pattern.
// Files matched by an exclude pattern, files with no known format and
// pip-compile outputs are skipped. IDs follow discovery order.
func Discover(root string, patterns, exclude []string) ([]*File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve root %s", root)
	}
	fsys := os.DirFS(root)

	var files []*File
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "glob %q", pattern)
		}
		slices.Sort(matches)
		for _, rel := range matches {
			if seen[rel] || excluded(rel, exclude) {
				continue
			}
			seen[rel] = true

			f, ok := detectFile(root, rel)
			if !ok {
				continue
			}
			f.ID = len(files)
			files = append(files, f)
		}
	}
	return files, nil
}

// Open builds a File for an explicitly named path. Unlike [Discover] it
// reports unknown formats as errors.
func Open(root, path string, id int) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "resolve %s", path)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil || filepath.IsAbs(rel) {
		rel = abs
	}
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileRead, err, "read %s", path)
	}
	format, ok := Detect(abs, content)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidFormat, "%s: not a recognized dependency file", path)
	}
	return &File{ID: id, Path: abs, Rel: filepath.ToSlash(rel), Format: format}, nil
}

func detectFile(root, rel string) (*File, bool) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	// An unreadable file is still returned so that parsing reports it.
	content, _ := os.ReadFile(abs)
	if IsCompiled(content) {
		return nil, false
	}
	format, ok := Detect(abs, content)
	if !ok {
		return nil, false
	}
	return &File{Path: abs, Rel: rel, Format: format}, true
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
