// Package pkg provides the libraries behind pypi-updater.
//
// # Overview
//
// pypi-updater keeps the version pins of a Python project current. It reads
// requirements files, setup.py and pyproject.toml, asks the package index for
// the latest release of every pinned package, and rewrites only the version
// text of each pin, leaving every other byte of the file as it was.
//
// The typical data flow:
//
//	requirements/*.in, setup.py, pyproject.toml
//	         ↓
//	    [deps] package (discover, parse, render edits)
//	         ↓
//	    [includes] package (-r/-c include order, cycle detection)
//	         ↓
//	    [registry] package (concurrent index lookups with retries)
//	         ↓
//	    [planner] package (apply/skip decisions, prompts, file writes)
//	         ↓
//	    [compile] + [report] packages (lock compilation, run summary)
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Root:           ".",
//	    NonInteractive: true,
//	})
//	fmt.Println(res.Summary.Counts.Applied, "updates applied")
//
// # Main Packages
//
// ## Domain
//
// [deps] - Declaration files: discovery, format detection, parsers for the
// requirements, setup.py and pyproject (PEP 621 and Poetry) dialects, and
// span-based rendering of version edits.
//
// [version] - PEP 440 version parsing, ordering and bump classification.
//
// [dag] - A small directed graph with depth-first topological sort, cycle
// reporting and Graphviz output.
//
// [includes] - Update order of files linked by -r and -c directives.
//
// [planner] - Turns declarations and registry results into decisions and
// writes each changed file once.
//
// ## External Integrations
//
// [integrations] - Shared HTTP client. [integrations/pypi] queries the PyPI
// JSON API; [integrations/pypi/pypitest] is an in-process fake index.
//
// [registry] - Bounded-concurrency resolution of many names with retries,
// per-query and aggregate timeouts, and optional rate limiting.
//
// [compile] - Runs the lock compilation script after files were updated.
//
// ## Orchestration
//
// [pipeline] - The complete run (discover → parse → order → resolve → plan →
// apply → compile) used by the CLI.
//
// [report] - The run summary, printable as a table or JSON.
//
// ## Support
//
// [errors] - Coded errors. [httputil] - Retry with backoff.
// [observability] - Pipeline, registry and HTTP hooks. [buildinfo] - Version
// stamping.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include live PyPI tests
//
// [deps]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/deps
// [version]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/version
// [dag]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/dag
// [includes]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/includes
// [planner]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/planner
// [integrations]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/integrations
// [integrations/pypi]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/integrations/pypi
// [integrations/pypi/pypitest]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/integrations/pypi/pypitest
// [registry]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/registry
// [compile]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/compile
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/pipeline
// [report]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/report
// [errors]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/errors
// [httputil]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/pypi-updater/pkg/buildinfo
package pkg
