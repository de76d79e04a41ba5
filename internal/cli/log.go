// Package cli implements the pypi-updater command-line interface.
//
// The root command discovers Python dependency declaration files, looks up
// the latest release of every pinned package on the package index, and
// rewrites the version pins in place. Commands are built with cobra, and
// logging goes through charmbracelet/log.
//
// # Commands
//
//   - pypi-updater [files...]: check, plan or apply updates
//   - graph: Render the -r/-c include graph as DOT or SVG
//   - completion: Generate shell completion scripts
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context; pipeline stage and registry events are
// logged through observability hooks registered by the root command.
//
// # Example
//
//	c := cli.New(os.Stderr, cli.LogInfo)
//	if err := c.RootCommand().ExecuteContext(ctx); err != nil {
//	    os.Exit(cli.ExitCode(err))
//	}
package cli

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/pipeline"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Rendered include graph (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks logs pipeline stages and registry lookups at debug level and
// drives the resolve spinner. It implements observability.PipelineHooks,
// observability.RegistryHooks and observability.HTTPHooks.
type logHooks struct {
	logger  *log.Logger
	spinner *Spinner // nil when stderr is not a terminal
	queries atomic.Int64
	failed  atomic.Int64
}

func newLogHooks(l *log.Logger, spinner *Spinner) *logHooks {
	return &logHooks{logger: l, spinner: spinner}
}

func (h *logHooks) OnStageStart(_ context.Context, stage string) {
	h.logger.Debug("stage started", "stage", stage)
	if stage == pipeline.StageResolve && h.spinner != nil {
		h.spinner.Start()
	}
}

func (h *logHooks) OnStageComplete(_ context.Context, stage string, items int, d time.Duration, err error) {
	if stage == pipeline.StageResolve && h.spinner != nil {
		h.spinner.Stop()
	}
	if err != nil {
		h.logger.Debug("stage failed", "stage", stage, "duration", d.Round(time.Millisecond), "error", errors.UserMessage(err))
		return
	}
	h.logger.Debug("stage complete", "stage", stage, "items", items, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnQueryStart(_ context.Context, name string) {
	h.logger.Debug("querying index", "package", name)
}

func (h *logHooks) OnQueryComplete(_ context.Context, name string, attempts int, d time.Duration, err error) {
	n := h.queries.Add(1)
	if err != nil {
		h.failed.Add(1)
		h.logger.Debug("query failed", "package", name, "attempts", attempts, "duration", d.Round(time.Millisecond), "error", err)
	} else {
		h.logger.Debug("query complete", "package", name, "attempts", attempts, "duration", d.Round(time.Millisecond))
	}
	if h.spinner != nil {
		h.spinner.SetMessage(resolveMessage(n))
	}
}

func (h *logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h *logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "error", err)
}

// Queries returns how many lookups completed and how many of them failed.
func (h *logHooks) Queries() (done, failed int64) {
	return h.queries.Load(), h.failed.Load()
}
