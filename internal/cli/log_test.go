package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi-updater/pkg/pipeline"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info level", log.InfoLevel, func(l *log.Logger) { l.Info("loaded dependency files") }, true},
		{"debug at info level", log.InfoLevel, func(l *log.Logger) { l.Debug("querying index") }, false},
		{"debug at debug level", log.DebugLevel, func(l *log.Logger) { l.Debug("querying index") }, true},
		{"warn at info level", log.InfoLevel, func(l *log.Logger) { l.Warn("skipping file") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))

			if gotLog := buf.Len() > 0; gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("Rendered include graph")

	out := buf.String()
	if !strings.Contains(out, "Rendered include graph (") || !strings.Contains(out, "ms)") {
		t.Errorf("progress.done() output = %q", out)
	}
}

func TestLoggerContext(t *testing.T) {
	var buf bytes.Buffer
	custom := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), custom)); got != custom {
		t.Error("loggerFromContext should return the attached logger")
	}
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext without a logger should return log.Default()")
	}
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHooks(newLogger(&buf, log.DebugLevel), nil)
	ctx := context.Background()

	h.OnStageStart(ctx, pipeline.StageResolve)
	h.OnQueryStart(ctx, "django")
	h.OnQueryComplete(ctx, "django", 1, time.Millisecond, nil)
	h.OnQueryComplete(ctx, "requests", 3, time.Millisecond, stderrors.New("503"))
	h.OnRequest(ctx, "GET", "pypi.org", "/pypi/django/json")
	h.OnResponse(ctx, "GET", "pypi.org", "/pypi/django/json", 200, time.Millisecond)
	h.OnError(ctx, "GET", "pypi.org", "/pypi/requests/json", stderrors.New("connection refused"))
	h.OnStageComplete(ctx, pipeline.StageResolve, 2, time.Millisecond, nil)
	h.OnStageComplete(ctx, pipeline.StageParse, 0, time.Millisecond, stderrors.New("boom"))

	done, failed := h.Queries()
	if done != 2 || failed != 1 {
		t.Errorf("Queries() = %d, %d, want 2, 1", done, failed)
	}

	out := buf.String()
	for _, want := range []string{
		"stage started", "querying index", "query complete", "query failed",
		"http request", "http response", "http error", "stage complete", "stage failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

func TestLogHooks_Spinner(t *testing.T) {
	var logs, screen bytes.Buffer
	s := newSpinner(&syncWriter{w: &screen}, resolveMessage(0))
	h := newLogHooks(newLogger(&logs, log.InfoLevel), s)
	ctx := context.Background()

	h.OnStageStart(ctx, pipeline.StageResolve)
	h.OnQueryComplete(ctx, "django", 1, time.Millisecond, nil)
	time.Sleep(120 * time.Millisecond)
	h.OnStageComplete(ctx, pipeline.StageResolve, 1, time.Millisecond, nil)

	if !strings.Contains(screen.String(), "1 done") {
		t.Errorf("spinner output = %q, want the updated message", screen.String())
	}
	if logs.Len() != 0 {
		t.Errorf("debug events logged at info level: %q", logs.String())
	}
}
