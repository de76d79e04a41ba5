package planner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/pypi-updater/pkg/deps"
	perrors "github.com/matzehuels/pypi-updater/pkg/errors"
)

// FileOutcome reports what happened to one file during [Planner.Apply].
type FileOutcome struct {
	File    *deps.File
	Changes int  // Accepted edits
	Written bool // False for dry runs, files without edits and failures
	Err     error
}

// Apply renders and writes every document that has accepted edits, in the
// order of docs. decisions is updated in place: when a file cannot be
// rendered or written, its apply decisions get Err set and other files are
// unaffected. Nothing is written under the dry-run policy.
func (p *Planner) Apply(ctx context.Context, docs []*deps.Document, decisions []Decision) []FileOutcome {
	byFile := make(map[*deps.File][]int)
	for i := range decisions {
		if decisions[i].Action == ActionApply && decisions[i].Err == nil {
			f := decisions[i].Declaration.File
			byFile[f] = append(byFile[f], i)
		}
	}

	outcomes := make([]FileOutcome, 0, len(docs))
	for _, doc := range docs {
		idx := byFile[doc.File]
		out := FileOutcome{File: doc.File, Changes: len(idx)}
		if len(idx) == 0 || p.opts.Policy == DryRun {
			outcomes = append(outcomes, out)
			continue
		}

		if err := ctx.Err(); err != nil {
			out.Err = perrors.Wrap(perrors.ErrCodeWrite, err, "%s: %s", doc.File, ReasonInterrupted)
		} else {
			out.Err = p.write(doc, decisions, idx)
			out.Written = out.Err == nil
		}
		if out.Err != nil {
			for _, i := range idx {
				decisions[i].Err = out.Err
			}
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (p *Planner) write(doc *deps.Document, decisions []Decision, idx []int) error {
	edits := make(map[*deps.Declaration]string, len(idx))
	for _, i := range idx {
		edits[decisions[i].Declaration] = decisions[i].Latest.String()
	}

	data, err := doc.Render(edits)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeWrite, err, "render %s", doc.File)
	}
	if err := p.opts.WriteFile(doc.File.Path, data); err != nil {
		return perrors.Wrap(perrors.ErrCodeWrite, err, "write %s", doc.File)
	}
	return nil
}

// writeAtomic replaces path through a temporary file in the same
// directory, keeping the original permissions.
func writeAtomic(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
