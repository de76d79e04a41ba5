package compile

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
)

func writeScript(t *testing.T, dir, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	path := filepath.Join(dir, filepath.FromSlash(DefaultScript))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echo compiled\npwd\necho warn >&2\n")

	var live bytes.Buffer
	res, err := (&Runner{Dir: dir, Output: &live}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.OK() || res.ExitCode != 0 {
		t.Errorf("result = %+v, want exit 0", res)
	}
	if !strings.HasPrefix(res.Stdout, "compiled\n") || res.Stderr != "warn\n" {
		t.Errorf("stdout = %q, stderr = %q", res.Stdout, res.Stderr)
	}
	// The script runs from the project root.
	if wd, _ := filepath.EvalSymlinks(dir); !strings.Contains(res.Stdout, wd) && !strings.Contains(res.Stdout, dir) {
		t.Errorf("working directory not %s: %q", dir, res.Stdout)
	}
	if !strings.Contains(live.String(), "compiled") {
		t.Errorf("live output = %q", live.String())
	}
}

func TestRun_NonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "echo 'pip-compile failed' >&2\nexit 3\n")

	res, err := (&Runner{Dir: dir}).Run(context.Background())
	if !perrors.Is(err, perrors.ErrCodeCompile) {
		t.Fatalf("Run() error = %v, want COMPILE_ERROR", err)
	}
	if res.ExitCode != 3 || res.OK() || !strings.Contains(res.Stderr, "pip-compile failed") {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_Missing(t *testing.T) {
	res, err := (&Runner{Dir: t.TempDir()}).Run(context.Background())
	if !perrors.Is(err, perrors.ErrCodeCompile) {
		t.Fatalf("Run() error = %v, want COMPILE_ERROR", err)
	}
	if !res.Missing || res.OK() {
		t.Errorf("result = %+v, want missing", res)
	}
}

func TestRun_Timeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "sleep 5\n")

	start := time.Now()
	res, err := (&Runner{Dir: dir, Timeout: 100 * time.Millisecond}).Run(context.Background())
	if !perrors.Is(err, perrors.ErrCodeCompile) || res.OK() {
		t.Fatalf("Run() = %+v, %v; want timeout", res, err)
	}
	if time.Since(start) > 3*time.Second {
		t.Errorf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestRunner_Path(t *testing.T) {
	r := &Runner{Dir: "/project"}
	if got, want := r.Path(), filepath.Join("/project", "tools", "update-locked-requirements"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
	r = &Runner{Dir: "/project", Script: "/opt/compile.sh"}
	if got := r.Path(); got != "/opt/compile.sh" {
		t.Errorf("Path() = %q, want absolute script kept", got)
	}
}
