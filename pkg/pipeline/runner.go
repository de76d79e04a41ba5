package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi-updater/pkg/compile"
	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/includes"
	"github.com/matzehuels/pypi-updater/pkg/integrations/pypi"
	"github.com/matzehuels/pypi-updater/pkg/observability"
	"github.com/matzehuels/pypi-updater/pkg/planner"
	"github.com/matzehuels/pypi-updater/pkg/registry"
	"github.com/matzehuels/pypi-updater/pkg/report"
)

// Runner executes runs. It keeps no state between runs, so one Runner can
// serve several Execute calls.
type Runner struct {
	// Fetcher answers registry queries. When nil, a PyPI client for
	// Options.IndexURL is created per run.
	Fetcher registry.Fetcher
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil logger selects log.Default().
func NewRunner(fetcher registry.Fetcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Fetcher: fetcher, Logger: logger}
}

// Execute performs a complete run. The returned Result carries the summary
// even when err is non-nil, as long as files were loaded.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	started := time.Now()
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	ws, err := r.Load(ctx, opts)
	if err != nil {
		return nil, err
	}
	res := &Result{Workspace: ws}

	p, err := planner.New(planner.Options{
		Policy:   opts.policy(),
		Prompter: opts.Prompter,
		Ignore:   opts.Ignore,
	})
	if err != nil {
		return nil, err
	}

	results := r.resolve(ctx, opts, p.Names(ws.Docs))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err = stage(ctx, StagePlan, func() (int, error) {
		res.Decisions = p.Plan(ctx, ws.Docs, results)
		return len(res.Decisions), nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_ = stage(ctx, StageApply, func() (int, error) {
		res.Outcomes = p.Apply(ctx, ws.Docs, res.Decisions)
		written := 0
		for _, o := range res.Outcomes {
			if o.Written {
				written++
				opts.Logger.Info("updated file", "file", o.File, "changes", o.Changes)
			} else if o.Err != nil {
				opts.Logger.Error("write failed", "file", o.File, "error", perrors.UserMessage(o.Err))
			}
		}
		return written, nil
	})

	in := report.Input{
		Mode:      string(opts.Mode()),
		Started:   started,
		Files:     filesOf(ws.Docs),
		Decisions: res.Decisions,
		Outcomes:  res.Outcomes,
		Errors:    ws.Errors,
		Warnings:  ws.Warnings,
	}
	if r.shouldCompile(opts, res.Outcomes) {
		in.Compile, in.CompileErr = r.compile(ctx, opts)
	}
	in.Finished = time.Now()
	res.Summary = report.Build(in)
	return res, nil
}

// Load discovers, parses and orders the declaration files. Files that fail
// are recorded in Workspace.Errors; Load itself fails only when no usable
// file remains.
func (r *Runner) Load(ctx context.Context, opts Options) (*Workspace, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	ws := &Workspace{Root: opts.Root}

	err := stage(ctx, StageDiscover, func() (int, error) {
		files, errs, err := r.files(opts)
		ws.Files, ws.Errors = files, errs
		return len(files), err
	})
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("discovered files", "count", len(ws.Files), "root", opts.Root)

	var docs []*deps.Document
	_ = stage(ctx, StageParse, func() (int, error) {
		for _, f := range ws.Files {
			doc, err := deps.Parse(f)
			if err != nil {
				opts.Logger.Warn("skipping file", "file", f, "error", perrors.UserMessage(err))
				ws.Errors = append(ws.Errors, err)
				continue
			}
			for _, w := range doc.Warnings() {
				ws.Warnings = append(ws.Warnings, fmt.Sprintf("%s: %v", f, w))
			}
			docs = append(docs, doc)
		}
		return len(docs), nil
	})

	err = stage(ctx, StageOrder, func() (int, error) {
		order, err := includes.Build(docs)
		if order == nil {
			return 0, err
		}
		ws.Order, ws.Docs = order, order.Docs
		for _, inc := range order.Missing {
			ws.Warnings = append(ws.Warnings, fmt.Sprintf("%s:%d: included file %s was not found", inc.File, inc.Line+1, inc.Target))
		}
		for _, inc := range order.Blocked {
			ws.Warnings = append(ws.Warnings, fmt.Sprintf("%s:%d: included file %s is part of an include cycle and was skipped", inc.File, inc.Line+1, inc.Target))
		}
		if err != nil {
			opts.Logger.Warn("include cycle", "error", perrors.UserMessage(err))
			ws.Errors = append(ws.Errors, err)
		}
		return len(order.Docs), nil
	})
	if err != nil {
		return nil, err
	}

	if len(ws.Docs) == 0 && len(ws.Errors) > 0 {
		return ws, perrors.Wrap(perrors.ErrCodeInvalidInput, errors.Join(ws.Errors...), "no processable dependency files")
	}
	opts.Logger.Info("loaded dependency files", "files", len(ws.Docs), "declarations", countDecls(ws.Docs))
	return ws, nil
}

func (r *Runner) files(opts Options) ([]*deps.File, []error, error) {
	if len(opts.Files) == 0 {
		files, err := deps.Discover(opts.Root, opts.Patterns, opts.Exclude)
		return files, nil, err
	}

	var files []*deps.File
	var errs []error
	for _, path := range opts.Files {
		f, err := deps.Open(opts.Root, path, len(files))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		files = append(files, f)
	}
	return files, errs, nil
}

func (r *Runner) resolve(ctx context.Context, opts Options, names []string) map[string]registry.Result {
	fetcher := r.Fetcher
	if fetcher == nil {
		fetcher = pypi.NewClient(opts.IndexURL, opts.Registry.QueryTimeout)
	}
	resolver := registry.New(fetcher, opts.Registry)

	var results map[string]registry.Result
	_ = stage(ctx, StageResolve, func() (int, error) {
		results = resolver.Resolve(ctx, names)
		return len(results), nil
	})

	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			opts.Logger.Debug("registry query failed", "package", res.Name, "error", res.Err, "attempts", res.Attempts, "detail", res.Detail)
		}
	}
	opts.Logger.Info("resolved latest versions", "packages", len(results), "failed", failed)
	return results
}

func (r *Runner) shouldCompile(opts Options, outcomes []planner.FileOutcome) bool {
	if !opts.Writes() || opts.NoCompile {
		return false
	}
	for _, o := range outcomes {
		if o.Written {
			return true
		}
	}
	return false
}

func (r *Runner) compile(ctx context.Context, opts Options) (*compile.Result, error) {
	runner := &compile.Runner{
		Script:  opts.CompileScript,
		Dir:     opts.Root,
		Timeout: opts.CompileTimeout,
		Output:  opts.CompileOutput,
	}

	var res *compile.Result
	err := stage(ctx, StageCompile, func() (int, error) {
		var err error
		res, err = runner.Run(ctx)
		return 1, err
	})
	switch {
	case err == nil:
		opts.Logger.Info("compiled locked requirements", "script", opts.CompileScript, "duration", res.Duration)
	case res.Missing:
		opts.Logger.Warn("compile script not found", "script", runner.Path())
	default:
		opts.Logger.Warn("compile script failed; edits were kept", "exit_code", res.ExitCode, "error", perrors.UserMessage(err))
	}
	return res, err
}

// stage runs fn between the pipeline hooks.
func stage(ctx context.Context, name string, fn func() (int, error)) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, name)
	start := time.Now()
	n, err := fn()
	hooks.OnStageComplete(ctx, name, n, time.Since(start), err)
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func filesOf(docs []*deps.Document) []*deps.File {
	files := make([]*deps.File, len(docs))
	for i, d := range docs {
		files[i] = d.File
	}
	return files
}

func countDecls(docs []*deps.Document) int {
	n := 0
	for _, d := range docs {
		n += len(d.Declarations)
	}
	return n
}
