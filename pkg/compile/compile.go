// Package compile runs the project's lock-file compilation script after
// declaration files have been rewritten.
//
// The script is opaque: it is started without arguments from the project
// root and only its exit status and output are recorded. A failing script
// never undoes edits that were already written.
package compile

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
)

// Defaults for [Runner].
const (
	DefaultScript  = "tools/update-locked-requirements"
	DefaultTimeout = 5 * time.Minute
)

// Result describes one script run.
type Result struct {
	Script   string        `json:"script"`
	ExitCode int           `json:"exit_code"` // -1 when the script did not start or was killed
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
	Missing  bool          `json:"missing,omitempty"` // Script does not exist
}

// OK reports whether the script ran and exited with status 0.
func (r *Result) OK() bool { return r != nil && !r.Missing && r.ExitCode == 0 }

// Runner runs a compilation script.
type Runner struct {
	Script  string        // Path to the script, relative to Dir unless absolute
	Dir     string        // Working directory, usually the project root
	Timeout time.Duration // Zero selects DefaultTimeout
	Output  io.Writer     // Optional live copy of stdout and stderr
}

// Path returns the script path the runner executes.
func (r *Runner) Path() string {
	script := r.Script
	if script == "" {
		script = DefaultScript
	}
	if filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(r.Dir, filepath.FromSlash(script))
}

// Run executes the script and waits for it. The returned Result is never
// nil. The error is a COMPILE_ERROR when the script is missing, cannot be
// started, times out or exits non-zero.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	path := r.Path()
	res := &Result{Script: path, ExitCode: -1}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		res.Missing = true
		return res, perrors.New(perrors.ErrCodeCompile, "compile script %s not found", path)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = r.Dir
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	if r.Output != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Output)
		cmd.Stderr = io.MultiWriter(&stderr, r.Output)
	}
	cmd.WaitDelay = time.Second

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout, res.Stderr = stdout.String(), stderr.String()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch {
	case ctx.Err() != nil:
		return res, perrors.Wrap(perrors.ErrCodeCompile, ctx.Err(), "compile script %s did not finish within %s", path, timeout)
	case runErr != nil && res.ExitCode > 0:
		return res, perrors.New(perrors.ErrCodeCompile, "compile script %s exited with status %d", path, res.ExitCode)
	case runErr != nil:
		return res, perrors.Wrap(perrors.ErrCodeCompile, runErr, "run compile script %s", path)
	}
	return res, nil
}
