package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pypi-updater/pkg/dag"
	"github.com/matzehuels/pypi-updater/pkg/errors"
	"github.com/matzehuels/pypi-updater/pkg/pipeline"
)

const (
	graphFormatDOT = "dot"
	graphFormatSVG = "svg"
)

type graphFlags struct {
	projectFlags
	format string
	output string
}

// graphCommand renders the -r/-c include graph. Cycle members are drawn red
// and includes of files that were not found are dashed.
func (c *CLI) graphCommand() *cobra.Command {
	flags := &graphFlags{}

	cmd := &cobra.Command{
		Use:   "graph [files...]",
		Short: "Render the include graph of requirements files",
		Long: `Render the include graph of requirements files as Graphviz DOT or SVG.

Edges point from a file to the files it includes with -r or -c, which is the
order in which updates are applied: included files first.`,
		Example: `  pypi-updater graph | dot -Tpng > includes.png
  pypi-updater graph --format svg -o includes.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd, args, flags)
		},
	}

	flags.projectFlags.register(cmd.Flags())
	cmd.Flags().StringVarP(&flags.format, "format", "f", graphFormatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, args []string, flags *graphFlags) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	format := strings.ToLower(flags.format)
	if format != graphFormatDOT && format != graphFormatSVG {
		return errors.New(errors.ErrCodeInvalidInput, "unknown graph format %q (want dot or svg)", flags.format)
	}

	cfg, err := flags.loadConfig(cmd)
	if err != nil {
		return err
	}
	p := newProgress(logger)
	ws, loadErr := pipeline.NewRunner(c.Fetcher, logger).Load(ctx, pipeline.Options{
		Root:      flags.root,
		Files:     args,
		Patterns:  cfg.DiscoveryPatterns(),
		Exclude:   cfg.Exclude,
		CheckOnly: true,
		NoCompile: true,
		Logger:    logger,
	})
	if ws == nil || ws.Order == nil {
		return loadErr
	}

	dot := dag.ToDOT(ws.Order.Graph)
	data := []byte(dot)
	if format == graphFormatSVG {
		if data, err = dag.RenderSVG(ctx, dot); err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
	}

	stderr := cmd.ErrOrStderr()
	if flags.output == "" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(flags.output, data, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeWrite, err, "write %s", flags.output)
		}
		printSuccess(stderr, "Wrote include graph of %d files", len(ws.Order.Docs))
		printFile(stderr, flags.output)
	}
	p.done("Rendered include graph")

	for _, cycle := range ws.Order.Cycles {
		names := make([]string, len(cycle))
		for i, f := range cycle {
			names[i] = f.String()
		}
		printWarning(stderr, "include cycle between %s", strings.Join(names, ", "))
	}
	return loadErr
}
