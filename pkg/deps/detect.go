package deps

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	projectDepsRE  = regexp.MustCompile(`(?m)^\s*\[\s*project(?:\.optional-dependencies)?\s*\]`)
	poetryTablesRE = regexp.MustCompile(`(?m)^\s*\[\s*tool\.poetry\.(?:dependencies|dev-dependencies|group\.)`)
)

// Detect returns the format of the file at path, using content to tell PEP
// 621 and Poetry pyproject files apart.
func Detect(path string, content []byte) (Format, bool) {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case base == "setup.py":
		return FormatSetup, true
	case base == "pyproject.toml":
		if !projectDepsRE.Match(content) && poetryTablesRE.Match(content) {
			return FormatPoetry, true
		}
		return FormatPyProject, true
	case strings.HasSuffix(base, ".in"):
		return FormatPipTools, true
	case strings.HasSuffix(base, ".txt"):
		return FormatRequirements, true
	}
	return "", false
}

// IsCompiled reports whether content is a lock file written by pip-compile.
// Those are regenerated by the compile step and are not updated directly.
func IsCompiled(content []byte) bool {
	lines := bytes.SplitN(content, []byte{'\n'}, 11)
	for _, l := range lines[:min(len(lines), 10)] {
		if bytes.Contains(bytes.ToLower(l), []byte("autogenerated by pip-compile")) {
			return true
		}
	}
	return false
}
