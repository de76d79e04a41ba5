// Package buildinfo exposes the version stamped into the binary at link time:
//
//	go build -ldflags "-X github.com/matzehuels/pypi-updater/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/pypi-updater/pkg/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	    -X github.com/matzehuels/pypi-updater/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Template returns the version template string for cobra.
func Template() string {
	return fmt.Sprintf("{{.Name}} %s (commit %s, built %s)\n", Version, Commit, Date)
}

// UserAgent is sent with every registry request.
func UserAgent() string {
	return "pypi-updater/" + Version + " (+https://github.com/matzehuels/pypi-updater)"
}
