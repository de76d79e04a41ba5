package errors

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// packageNameRE matches PEP 508 distribution names.
var packageNameRE = regexp.MustCompile(`^([A-Za-z0-9]|[A-Za-z0-9][A-Za-z0-9._-]*[A-Za-z0-9])$`)

// ValidatePackageName validates a Python distribution name per PEP 508.
// Names longer than 256 characters are rejected.
func ValidatePackageName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "package name cannot be empty")
	}
	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "package name too long (max 256 characters)")
	}
	if !packageNameRE.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid package name: %q", name)
	}
	return nil
}

// ValidateURL validates a package index URL. It must be absolute, use
// http or https and name a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL %q must use http or https", rawURL)
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}
	return nil
}

// ValidatePath validates a path that must stay inside the project root.
//
// Validation rules:
//   - Path cannot be empty
//   - No control characters
//   - No absolute paths
//   - No ".." elements
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path %q contains control characters", path)
		}
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidInput, "path %q must be relative to the project root", path)
	}
	for _, elem := range strings.Split(filepath.ToSlash(path), "/") {
		if elem == ".." {
			return New(ErrCodeInvalidInput, "path %q leaves the project root", path)
		}
	}
	return nil
}
