package cli

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"os"
	"path"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/matzehuels/pypi-updater/internal/config"
	"github.com/matzehuels/pypi-updater/pkg/buildinfo"
	"github.com/matzehuels/pypi-updater/pkg/compile"
	"github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/integrations/pypi"
	"github.com/matzehuels/pypi-updater/pkg/observability"
	"github.com/matzehuels/pypi-updater/pkg/pipeline"
	"github.com/matzehuels/pypi-updater/pkg/registry"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "pypi-updater"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130 // Standard shell convention for SIGINT
)

// ErrUpdatesFailed is returned after the summary was printed when any
// decision failed or a run-level error was recorded.
var ErrUpdatesFailed = stderrors.New("some updates failed")

// ExitCode maps the error returned by a command to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case stderrors.Is(err, context.Canceled):
		return ExitInterrupted
	}
	return ExitFailure
}

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Fetcher replaces the PyPI client. Tests set it; nil means PyPI.
	Fetcher registry.Fetcher
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

func (c *CLI) verbose() bool {
	return c.Logger.GetLevel() <= log.DebugLevel
}

// RootCommand creates the root cobra command with all subcommands registered.
// Running the root command itself performs an update.
func (c *CLI) RootCommand() *cobra.Command {
	flags := &updateFlags{}

	root := &cobra.Command{
		Use:   appName + " [files...]",
		Short: "Update pinned PyPI dependencies in requirements files",
		Long: `pypi-updater finds requirements files, setup.py and pyproject.toml
declarations, looks up the latest release of every pinned package on the
package index and rewrites the version pins in place.

Files included with -r or -c are updated before the files that include them.
Without files, the project root is searched. After updating, the lock
compilation script (tools/update-locked-requirements) is run.`,
		Example: `  # Show available updates
  pypi-updater --check-only

  # Apply every update without prompting
  pypi-updater --non-interactive

  # Preview changes to a single file
  pypi-updater --dry-run requirements/base.in`,
		Version:       buildinfo.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUpdate(cmd, args, flags)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	flags.register(root.Flags())

	root.AddCommand(c.graphCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Update
// =============================================================================

// projectFlags locate the project and its configuration. They are shared by
// every command that loads dependency files.
type projectFlags struct {
	root            string
	requirementsDir string
	configPath      string
	exclude         []string
}

func (f *projectFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.root, "root", ".", "project root directory")
	fs.StringVar(&f.requirementsDir, "requirements-dir", "", "directory holding *.in files (default \"requirements\")")
	fs.StringVar(&f.configPath, "config", "", "configuration file (default: .pypi-updater.yaml in the root)")
	fs.StringSliceVar(&f.exclude, "exclude", nil, "glob of files to leave alone (repeatable)")
}

// loadConfig reads the configuration file and applies the flags that were
// set on the command line.
func (f *projectFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	logger := loggerFromContext(cmd.Context())

	cfgPath := f.configPath
	if cfgPath == "" {
		cfgPath = config.FindConfigFile(f.root)
	}
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		logger.Debug("loaded config", "path", cfgPath)
		cfg = loaded
	}

	if cmd.Flags().Changed("requirements-dir") {
		cfg.RequirementsDir = f.requirementsDir
		cfg.Patterns = nil
	}
	cfg.Exclude = append(cfg.Exclude, f.exclude...)
	return cfg, nil
}

type updateFlags struct {
	projectFlags

	checkOnly      bool
	dryRun         bool
	nonInteractive bool
	noCompile      bool
	jsonOutput     bool

	toolsDir     string
	indexURL     string
	concurrency  int
	timeout      time.Duration
	queryTimeout time.Duration
	ignore       []string
}

func (f *updateFlags) register(fs *pflag.FlagSet) {
	f.projectFlags.register(fs)

	fs.BoolVar(&f.checkOnly, "check-only", false, "report available updates without changing files")
	fs.BoolVar(&f.dryRun, "dry-run", false, "plan updates and show them without writing")
	fs.BoolVar(&f.nonInteractive, "non-interactive", false, "apply every update without prompting")
	fs.BoolVar(&f.noCompile, "no-compile", false, "do not run the lock compilation script")
	fs.BoolVar(&f.jsonOutput, "json", false, "print the summary as JSON")

	fs.StringVar(&f.toolsDir, "tools-dir", "", "directory holding update-locked-requirements (default \"tools\")")
	fs.StringVar(&f.indexURL, "index-url", "", "package index JSON API base URL (default "+pypi.DefaultIndexURL+")")
	fs.IntVar(&f.concurrency, "concurrency", registry.DefaultConcurrency, "maximum parallel index queries")
	fs.DurationVar(&f.timeout, "timeout", registry.DefaultTimeout, "bound on all index queries together")
	fs.DurationVar(&f.queryTimeout, "query-timeout", registry.DefaultQueryTimeout, "bound on a single index query attempt")
	fs.StringSliceVar(&f.ignore, "ignore", nil, "package never to update (repeatable)")
}

// options turns flags and configuration into pipeline options.
func (f *updateFlags) options(cmd *cobra.Command, files []string) (pipeline.Options, error) {
	cfg, err := f.loadConfig(cmd)
	if err != nil {
		return pipeline.Options{}, err
	}

	changed := cmd.Flags().Changed
	if changed("index-url") {
		cfg.IndexURL = f.indexURL
	}
	if changed("tools-dir") {
		cfg.ToolsDir = f.toolsDir
		cfg.Compile.Script = path.Join(f.toolsDir, path.Base(compile.DefaultScript))
	}
	if changed("concurrency") {
		cfg.Registry.Concurrency = f.concurrency
	}
	if changed("timeout") {
		cfg.Registry.Timeout = f.timeout
	}
	if changed("query-timeout") {
		cfg.Registry.QueryTimeout = f.queryTimeout
	}
	cfg.Ignore = append(cfg.Ignore, f.ignore...)
	if err := cfg.Validate(); err != nil {
		return pipeline.Options{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid flags")
	}

	return pipeline.Options{
		Root:           f.root,
		Files:          files,
		Patterns:       cfg.DiscoveryPatterns(),
		Exclude:        cfg.Exclude,
		Ignore:         cfg.Ignore,
		CheckOnly:      f.checkOnly,
		DryRun:         f.dryRun,
		NonInteractive: f.nonInteractive,
		NoCompile:      f.noCompile || cfg.Compile.Disable,
		IndexURL:       cfg.IndexURL,
		Registry:       cfg.RegistryOptions(),
		CompileScript:  cfg.Compile.Script,
		CompileTimeout: cfg.Compile.Timeout,
	}, nil
}

func (c *CLI) runUpdate(cmd *cobra.Command, args []string, flags *updateFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	stderr := cmd.ErrOrStderr()

	opts, err := flags.options(cmd, args)
	if err != nil {
		return err
	}
	opts.Logger = logger
	if c.verbose() {
		opts.CompileOutput = stderr
	}
	if opts.Mode() == pipeline.ModeInteractive {
		opts.Prompter = newPrompter(cmd.InOrStdin(), stderr)
	}

	var spinner *Spinner
	if isTerminal(stderr) && !c.verbose() {
		spinner = newSpinnerWithContext(ctx, stderr, resolveMessage(0))
	}
	hooks := newLogHooks(logger, spinner)
	observability.SetPipelineHooks(hooks)
	observability.SetRegistryHooks(hooks)
	observability.SetHTTPHooks(hooks)
	defer observability.Reset()

	res, err := pipeline.NewRunner(c.Fetcher, logger).Execute(ctx, opts)
	if err != nil {
		return err
	}
	if done, failed := hooks.Queries(); done > 0 {
		logger.Debug("index queries finished", "queries", done, "failed", failed)
	}

	out := cmd.OutOrStdout()
	if flags.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res.Summary); err != nil {
			return err
		}
	} else {
		printSummary(out, res.Summary, c.verbose())
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Summary.HasFailures() {
		return ErrUpdatesFailed
	}
	return nil
}

// isTerminal reports whether w is a terminal file.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
