package pipeline

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/integrations/pypi"
	"github.com/matzehuels/pypi-updater/pkg/integrations/pypi/pypitest"
	"github.com/matzehuels/pypi-updater/pkg/observability"
	"github.com/matzehuels/pypi-updater/pkg/planner"
	"github.com/matzehuels/pypi-updater/pkg/registry"
)

var quiet = log.NewWithOptions(io.Discard, log.Options{})

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		mode := os.FileMode(0o644)
		if strings.HasPrefix(rel, "tools/") {
			mode = 0o755
		}
		if err := os.WriteFile(path, []byte(content), mode); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func newIndex(t *testing.T) *pypitest.Server {
	t.Helper()
	srv := pypitest.NewServer(map[string]string{
		"Django":   "4.2.0",
		"requests": "2.31.0",
		"attrs":    "23.1.0",
		"black":    "24.1.0",
	})
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *pypitest.Server, opts Options) *Result {
	t.Helper()
	opts.IndexURL = srv.URL
	opts.Registry.Backoff = time.Millisecond
	res, err := NewRunner(nil, quiet).Execute(context.Background(), opts)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	return res
}

func TestExecute_EndToEnd(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt": "Django==4.1.0\nrequests>=2.25.0\n",
	})
	srv := newIndex(t)

	res := run(t, srv, Options{Root: root, NonInteractive: true})

	if got := readFile(t, root, "requirements.txt"); got != "Django==4.2.0\nrequests>=2.31.0\n" {
		t.Errorf("requirements.txt = %q", got)
	}
	c := res.Summary.Counts
	if c.Applied != 2 || c.Skipped != 0 || c.Failed != 0 {
		t.Errorf("counts = %+v, want 2 applied, 0 skipped, 0 failed", c)
	}
	if res.Summary.HasFailures() {
		t.Errorf("HasFailures() = true, errors: %+v", res.Summary.Errors)
	}
	if res.Summary.Mode != string(ModeNonInteractive) {
		t.Errorf("Mode = %q", res.Summary.Mode)
	}
	// No compile script in the tree: a warning, not a failure.
	if res.Summary.Compile == nil || !res.Summary.Compile.Missing || len(res.Summary.Warnings) != 1 {
		t.Errorf("compile = %+v, warnings = %v", res.Summary.Compile, res.Summary.Warnings)
	}
}

func TestExecute_Idempotent(t *testing.T) {
	content := "# pinned\nDjango==4.1.0  # web\nrequests[socks]>=2.25.0 ; python_version >= \"3.8\"\n"
	root := writeTree(t, map[string]string{"requirements.txt": content})
	srv := newIndex(t)

	run(t, srv, Options{Root: root, NonInteractive: true, NoCompile: true})
	first := readFile(t, root, "requirements.txt")
	want := "# pinned\nDjango==4.2.0  # web\nrequests[socks]>=2.31.0 ; python_version >= \"3.8\"\n"
	if first != want {
		t.Fatalf("first run = %q, want %q", first, want)
	}

	res := run(t, srv, Options{Root: root, NonInteractive: true, NoCompile: true})
	if got := readFile(t, root, "requirements.txt"); got != first {
		t.Errorf("second run changed the file: %q", got)
	}
	if c := res.Summary.Counts; c.Applied != 0 || c.Unchanged != 2 {
		t.Errorf("second run counts = %+v, want 2 unchanged", c)
	}
	if res.Outcomes[0].Written {
		t.Error("second run wrote the file")
	}
}

func TestExecute_DryRunAndCheckOnly(t *testing.T) {
	for _, opts := range []Options{{DryRun: true}, {CheckOnly: true}, {CheckOnly: true, DryRun: true}} {
		t.Run(string(opts.Mode()), func(t *testing.T) {
			content := "Django==4.1.0\n"
			root := writeTree(t, map[string]string{
				"requirements.txt":                 content,
				"tools/update-locked-requirements": "#!/bin/sh\ntouch compiled\n",
			})
			opts.Root = root
			res := run(t, newIndex(t), opts)

			if got := readFile(t, root, "requirements.txt"); got != content {
				t.Errorf("file changed to %q", got)
			}
			if res.Summary.Counts.Applied != 1 || len(res.Summary.Updates()) != 1 {
				t.Errorf("counts = %+v, want the update reported", res.Summary.Counts)
			}
			if res.Summary.Compile != nil {
				t.Error("compile script ran")
			}
		})
	}
}

func TestExecute_Compile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	root := writeTree(t, map[string]string{
		"requirements/base.in":             "Django==4.1.0\n",
		"tools/update-locked-requirements": "#!/bin/sh\necho compiled > requirements/base.txt\n",
	})

	res := run(t, newIndex(t), Options{Root: root, NonInteractive: true})

	if !res.Summary.Compile.OK() {
		t.Fatalf("compile = %+v", res.Summary.Compile)
	}
	if got := readFile(t, root, "requirements/base.txt"); got != "compiled\n" {
		t.Errorf("compile output = %q", got)
	}
}

func TestExecute_CompileFailureKeepsEdits(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
	root := writeTree(t, map[string]string{
		"requirements.txt":                 "Django==4.1.0\n",
		"tools/update-locked-requirements": "#!/bin/sh\necho boom >&2\nexit 1\n",
	})

	res := run(t, newIndex(t), Options{Root: root, NonInteractive: true})

	if got := readFile(t, root, "requirements.txt"); got != "Django==4.2.0\n" {
		t.Errorf("edit rolled back: %q", got)
	}
	if res.Summary.Compile.ExitCode != 1 || res.Summary.HasFailures() || len(res.Summary.Warnings) != 1 {
		t.Errorf("compile = %+v, warnings = %v", res.Summary.Compile, res.Summary.Warnings)
	}
}

func TestExecute_NoCompileWithoutWrites(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt":                 "attrs==23.1.0\n",
		"tools/update-locked-requirements": "#!/bin/sh\nexit 1\n",
	})
	res := run(t, newIndex(t), Options{Root: root, NonInteractive: true})
	if res.Summary.Compile != nil {
		t.Error("compile script ran although nothing changed")
	}
}

func TestLoad_IncludeOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements/a-prod.in":         "-r z-base.in\n-c m-constraints.txt\nrequests>=2.25.0\n",
		"requirements/m-dev.in":          "-r a-prod.in\nblack==23.0\n",
		"requirements/z-base.in":         "Django==4.1.0\n",
		"requirements/m-constraints.txt": "attrs==22.0\n",
	})
	ws, err := NewRunner(nil, quiet).Load(context.Background(), Options{
		Root:      root,
		Patterns:  []string{"requirements/*.in", "requirements/*.txt"},
		CheckOnly: true,
	})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	var order []string
	for _, d := range ws.Docs {
		order = append(order, d.File.Rel)
	}
	want := []string{"requirements/z-base.in", "requirements/m-constraints.txt", "requirements/a-prod.in", "requirements/m-dev.in"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestLoad_CycleIsReported(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements/a.in": "-r b.in\nDjango==4.1.0\n",
		"requirements/b.in": "-r a.in\nrequests>=2.25.0\n",
		"requirements/c.in": "attrs==22.0\n",
	})

	res := run(t, newIndex(t), Options{Root: root, NonInteractive: true, NoCompile: true})

	ws := res.Workspace
	if len(ws.Docs) != 1 || ws.Docs[0].File.Rel != "requirements/c.in" {
		t.Errorf("docs = %v, want only c.in", ws.Docs)
	}
	if len(ws.Errors) != 1 || !perrors.Is(ws.Errors[0], perrors.ErrCodeGraph) {
		t.Fatalf("errors = %v, want one GRAPH_ERROR", ws.Errors)
	}
	msg := ws.Errors[0].Error()
	if !strings.Contains(msg, "requirements/a.in") || !strings.Contains(msg, "requirements/b.in") {
		t.Errorf("cycle error %q does not name both files", msg)
	}
	if got := readFile(t, root, "requirements/a.in"); got != "-r b.in\nDjango==4.1.0\n" {
		t.Errorf("cycle member was rewritten: %q", got)
	}
	if got := readFile(t, root, "requirements/c.in"); got != "attrs==23.1.0\n" {
		t.Errorf("c.in = %q", got)
	}
	if !res.Summary.HasFailures() {
		t.Error("HasFailures() = false with a cycle")
	}
}

func TestLoad_IncludeOfCycleMemberWarns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements/a.in": "-r b.in\nattrs==22.0\n",
		"requirements/b.in": "-r c.in\n",
		"requirements/c.in": "-r b.in\n",
	})
	ws, err := NewRunner(nil, quiet).Load(context.Background(), Options{Root: root, CheckOnly: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(ws.Docs) != 1 || ws.Docs[0].File.Rel != "requirements/a.in" {
		t.Errorf("docs = %v, want only a.in", ws.Docs)
	}
	if len(ws.Warnings) != 1 || !strings.Contains(ws.Warnings[0], "include cycle") || !strings.Contains(ws.Warnings[0], "b.in") {
		t.Errorf("warnings = %v", ws.Warnings)
	}
}

func TestLoad_NothingProcessable(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements/a.in": "-r b.in\n",
		"requirements/b.in": "-r a.in\n",
	})
	_, err := NewRunner(nil, quiet).Load(context.Background(), Options{Root: root, CheckOnly: true})
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("Load() error = %v, want INVALID_INPUT", err)
	}
}

func TestLoad_MissingInclude(t *testing.T) {
	root := writeTree(t, map[string]string{"requirements/dev.in": "-r base.in\nblack==23.0\n"})
	ws, err := NewRunner(nil, quiet).Load(context.Background(), Options{Root: root, CheckOnly: true})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(ws.Warnings) != 1 || !strings.Contains(ws.Warnings[0], "base.in") {
		t.Errorf("warnings = %v", ws.Warnings)
	}
}

func TestExecute_ParseErrorIsPerFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"pyproject.toml":   "[project\ndependencies = [\n",
		"requirements.txt": "Django==4.1.0\n",
	})

	res := run(t, newIndex(t), Options{Root: root, NonInteractive: true, NoCompile: true})

	if res.Summary.Counts.Applied != 1 {
		t.Errorf("counts = %+v, want the good file updated", res.Summary.Counts)
	}
	if len(res.Summary.Errors) != 1 || res.Summary.Errors[0].Code != string(perrors.ErrCodeParse) {
		t.Errorf("errors = %+v, want one PARSE_ERROR", res.Summary.Errors)
	}
}

func TestExecute_ExplicitFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt":     "Django==4.1.0\n",
		"requirements-dev.txt": "black==23.0\n",
	})

	res := run(t, newIndex(t), Options{
		Root:           root,
		Files:          []string{filepath.Join(root, "requirements-dev.txt"), filepath.Join(root, "missing.txt")},
		NonInteractive: true,
		NoCompile:      true,
	})

	if got := readFile(t, root, "requirements.txt"); got != "Django==4.1.0\n" {
		t.Errorf("unselected file changed: %q", got)
	}
	if got := readFile(t, root, "requirements-dev.txt"); got != "black==24.1.0\n" {
		t.Errorf("selected file = %q", got)
	}
	if len(res.Workspace.Errors) != 1 || !perrors.Is(res.Workspace.Errors[0], perrors.ErrCodeFileRead) {
		t.Errorf("errors = %v, want FILE_READ_ERROR for missing.txt", res.Workspace.Errors)
	}
}

func TestExecute_Interactive(t *testing.T) {
	root := writeTree(t, map[string]string{"requirements.txt": "Django==4.1.0\nrequests>=2.25.0\n"})

	var asked []string
	res := run(t, newIndex(t), Options{
		Root:      root,
		NoCompile: true,
		Prompter: planner.PromptFunc(func(_ context.Context, c planner.Candidate) (planner.Answer, error) {
			asked = append(asked, c.Declaration.Name)
			if c.Declaration.Name == "django" {
				return planner.AnswerSkip, nil
			}
			return planner.AnswerApply, nil
		}),
	})

	if strings.Join(asked, ",") != "django,requests" {
		t.Errorf("asked = %v", asked)
	}
	if got := readFile(t, root, "requirements.txt"); got != "Django==4.1.0\nrequests>=2.31.0\n" {
		t.Errorf("requirements.txt = %q", got)
	}
	if c := res.Summary.Counts; c.Applied != 1 || c.Skipped != 1 {
		t.Errorf("counts = %+v", c)
	}
}

func TestExecute_InteractiveNeedsPrompter(t *testing.T) {
	_, err := NewRunner(nil, quiet).Execute(context.Background(), Options{Root: t.TempDir()})
	if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("Execute() error = %v, want INVALID_INPUT", err)
	}
}

func TestExecute_RegistryFailure(t *testing.T) {
	root := writeTree(t, map[string]string{"requirements.txt": "Django==4.1.0\nrequests>=2.25.0\n"})
	srv := newIndex(t)
	srv.Fail("django", http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusServiceUnavailable)

	res := run(t, srv, Options{Root: root, NonInteractive: true, NoCompile: true})

	if c := res.Summary.Counts; c.Failed != 1 || c.Applied != 1 {
		t.Errorf("counts = %+v, want 1 failed, 1 applied", c)
	}
	if !res.Summary.HasFailures() {
		t.Error("HasFailures() = false")
	}
	if got := readFile(t, root, "requirements.txt"); got != "Django==4.1.0\nrequests>=2.31.0\n" {
		t.Errorf("requirements.txt = %q", got)
	}
}

func TestExecute_Ignore(t *testing.T) {
	root := writeTree(t, map[string]string{"requirements.txt": "Django==4.1.0\nrequests>=2.25.0\n"})
	srv := newIndex(t)

	run(t, srv, Options{Root: root, NonInteractive: true, NoCompile: true, Ignore: []string{"django"}})

	if srv.Hits("django") != 0 {
		t.Error("ignored package was queried")
	}
	if got := readFile(t, root, "requirements.txt"); got != "Django==4.1.0\nrequests>=2.31.0\n" {
		t.Errorf("requirements.txt = %q", got)
	}
}

func TestExecute_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"requirements.txt": "Django==4.1.0\n"})
	srv := newIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRunner(nil, quiet).Execute(ctx, Options{Root: root, NonInteractive: true, IndexURL: srv.URL})
	if err != context.Canceled {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if got := readFile(t, root, "requirements.txt"); got != "Django==4.1.0\n" {
		t.Errorf("file changed after cancellation: %q", got)
	}
}

type stageRecorder struct {
	observability.NoopPipelineHooks
	mu     sync.Mutex
	stages []string
}

func (h *stageRecorder) OnStageStart(_ context.Context, stage string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stages = append(h.stages, stage)
}

func TestExecute_StageHooks(t *testing.T) {
	hooks := &stageRecorder{}
	observability.SetPipelineHooks(hooks)
	defer observability.Reset()

	root := writeTree(t, map[string]string{"requirements.txt": "Django==4.1.0\n"})
	run(t, newIndex(t), Options{Root: root, NonInteractive: true})

	want := []string{StageDiscover, StageParse, StageOrder, StageResolve, StagePlan, StageApply, StageCompile}
	if !slices.Equal(hooks.stages, want) {
		t.Errorf("stages = %v, want %v", hooks.stages, want)
	}
}

func TestRunner_CustomFetcher(t *testing.T) {
	root := writeTree(t, map[string]string{"setup.py": "from setuptools import setup\nsetup(install_requires=['Django==4.1.0'])\n"})
	srv := newIndex(t)

	runner := NewRunner(pypi.NewClient(srv.URL, time.Second), quiet)
	res, err := runner.Execute(context.Background(), Options{Root: root, NonInteractive: true, NoCompile: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Summary.Counts.Applied != 1 {
		t.Errorf("counts = %+v", res.Summary.Counts)
	}
	if got := readFile(t, root, "setup.py"); !strings.Contains(got, "'Django==4.2.0'") {
		t.Errorf("setup.py = %q", got)
	}
	if res.Workspace.Docs[0].File.Format != deps.FormatSetup {
		t.Errorf("format = %s", res.Workspace.Docs[0].File.Format)
	}
}

func TestOptions(t *testing.T) {
	tests := []struct {
		opts   Options
		mode   Mode
		writes bool
	}{
		{Options{}, ModeInteractive, true},
		{Options{NonInteractive: true}, ModeNonInteractive, true},
		{Options{DryRun: true, NonInteractive: true}, ModeDryRun, false},
		{Options{CheckOnly: true, DryRun: true}, ModeCheckOnly, false},
	}
	for _, tt := range tests {
		if got := tt.opts.Mode(); got != tt.mode {
			t.Errorf("Mode() = %s, want %s", got, tt.mode)
		}
		if got := tt.opts.Writes(); got != tt.writes {
			t.Errorf("%s: Writes() = %v, want %v", tt.mode, got, tt.writes)
		}
	}

	o := Options{CheckOnly: true}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(o.Root) || o.Registry.Concurrency != registry.DefaultConcurrency || len(o.Patterns) == 0 {
		t.Errorf("defaults not applied: %+v", o)
	}
}
