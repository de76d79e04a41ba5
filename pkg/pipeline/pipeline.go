// Package pipeline runs a complete update: discover → parse → order →
// resolve → plan → apply → compile → report.
//
// The CLI is a thin layer over [Runner]. Each stage can also be used on
// its own: [Runner.Load] stops after the include order has been computed,
// which is all the graph command needs.
//
// # Usage
//
//	runner := pipeline.NewRunner(nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Root:           ".",
//	    NonInteractive: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Summary.Counts.Applied, "packages updated")
//
// # Failure handling
//
// Problems with a single file, package or write are recorded in the
// summary and the run carries on. Execute only returns an error when
// nothing is left to work on: discovery failed, or every file was
// unreadable, unparseable or part of an include cycle.
package pipeline

import (
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi-updater/pkg/compile"
	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/includes"
	"github.com/matzehuels/pypi-updater/pkg/planner"
	"github.com/matzehuels/pypi-updater/pkg/registry"
	"github.com/matzehuels/pypi-updater/pkg/report"
)

// Mode is the overall behavior of a run.
type Mode string

const (
	ModeCheckOnly      Mode = "check-only"
	ModeDryRun         Mode = "dry-run"
	ModeInteractive    Mode = "interactive"
	ModeNonInteractive Mode = "non-interactive"
)

// Stage names reported to [observability.PipelineHooks].
const (
	StageDiscover = "discover"
	StageParse    = "parse"
	StageOrder    = "order"
	StageResolve  = "resolve"
	StagePlan     = "plan"
	StageApply    = "apply"
	StageCompile  = "compile"
)

// Options configures a run. The zero value discovers files under the
// working directory and prompts for every update.
type Options struct {
	Root     string   // Project root (default ".")
	Files    []string // Explicit files; when set, discovery is skipped
	Patterns []string // Discovery patterns (default deps.DefaultPatterns)
	Exclude  []string // Patterns of files to leave alone
	Ignore   []string // Packages never updated

	CheckOnly      bool // Resolve and report, never write
	DryRun         bool // Plan and report, never write
	NonInteractive bool // Accept every update without prompting
	NoCompile      bool // Do not run the compile script

	IndexURL string
	Registry registry.Options

	CompileScript  string        // Relative to Root (default compile.DefaultScript)
	CompileTimeout time.Duration // Default compile.DefaultTimeout
	CompileOutput  io.Writer     // Live copy of the script's output

	Prompter planner.Prompter // Required for ModeInteractive
	Logger   *log.Logger

	validated bool
}

// Mode derives the run mode from the flags. Check-only wins over dry-run,
// which wins over non-interactive.
func (o *Options) Mode() Mode {
	switch {
	case o.CheckOnly:
		return ModeCheckOnly
	case o.DryRun:
		return ModeDryRun
	case o.NonInteractive:
		return ModeNonInteractive
	default:
		return ModeInteractive
	}
}

// Writes reports whether the run may modify files.
func (o *Options) Writes() bool {
	m := o.Mode()
	return m == ModeInteractive || m == ModeNonInteractive
}

func (o *Options) policy() planner.Policy {
	switch o.Mode() {
	case ModeCheckOnly, ModeDryRun:
		return planner.DryRun
	case ModeNonInteractive:
		return planner.NonInteractive
	default:
		return planner.Interactive
	}
}

// ValidateAndSetDefaults checks the options and fills in defaults.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Root == "" {
		o.Root = "."
	}
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "resolve root %s", o.Root)
	}
	o.Root = root

	if len(o.Patterns) == 0 {
		o.Patterns = deps.DefaultPatterns
	}
	if o.CompileScript == "" {
		o.CompileScript = compile.DefaultScript
	}
	if o.CompileTimeout <= 0 {
		o.CompileTimeout = compile.DefaultTimeout
	}
	o.Registry = o.Registry.WithDefaults()
	if o.Mode() == ModeInteractive && o.Prompter == nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "interactive mode needs a prompter; use --non-interactive")
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// Workspace is the parsed state of a project before any registry query.
type Workspace struct {
	Root     string
	Files    []*deps.File     // Every file considered, in discovery order
	Docs     []*deps.Document // Parsed files in update order
	Order    *includes.Order
	Errors   []error  // Per-file failures
	Warnings []string // Declaration warnings and missing includes
}

// Result is the outcome of [Runner.Execute].
type Result struct {
	Workspace *Workspace
	Decisions []planner.Decision
	Outcomes  []planner.FileOutcome
	Summary   *report.Summary
}
