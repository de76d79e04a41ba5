// Package includes orders declaration files so that every file is updated
// after the files it includes with "-r" or "-c".
//
// The include relation is loaded into a [dag.DAG] and sorted depth-first.
// Discovery order breaks ties. Cycles do not stop the run: their members are
// reported and left out of the order while every other file is still
// returned.
package includes

import (
	"slices"
	"strings"

	"github.com/matzehuels/pypi-updater/pkg/dag"
	"github.com/matzehuels/pypi-updater/pkg/deps"
	"github.com/matzehuels/pypi-updater/pkg/errors"
)

// Order is the result of [Build].
type Order struct {
	// Docs lists documents in update order: included files first.
	Docs []*deps.Document
	// Missing holds include directives whose target was not among the
	// parsed files. Targets are treated as leaves.
	Missing []deps.Include
	// Cycles lists each include cycle by its member files.
	Cycles [][]*deps.File
	// Blocked holds include directives of ordered files whose target was
	// left out because it lies on a cycle.
	Blocked []deps.Include
	// Graph is the include graph, with missing targets as extra nodes.
	Graph *dag.DAG
}

// Build computes the update order of docs. When the include directives form
// cycles, Build returns a GRAPH_ERROR naming every member together with an
// Order that holds the remaining files.
func Build(docs []*deps.Document) (*Order, error) {
	sorted := slices.Clone(docs)
	slices.SortStableFunc(sorted, func(a, b *deps.Document) int { return a.File.ID - b.File.ID })

	g := dag.New()
	byPath := make(map[string]*deps.Document, len(sorted))
	for _, doc := range sorted {
		if err := g.AddNode(dag.Node{
			ID:    doc.File.Path,
			Label: doc.File.String(),
			Meta:  dag.Metadata{dag.MetaTooltip: string(doc.File.Format)},
		}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add %s", doc.File)
		}
		byPath[doc.File.Path] = doc
	}

	o := &Order{Graph: g}
	for _, doc := range sorted {
		for _, inc := range doc.Includes {
			if _, ok := byPath[inc.Path]; !ok {
				o.Missing = append(o.Missing, inc)
				_ = g.AddNode(dag.Node{ID: inc.Path, Label: inc.Target, Meta: dag.Metadata{dag.MetaMissing: true}})
			}
			_ = g.AddEdge(dag.Edge{From: doc.File.Path, To: inc.Path})
		}
	}

	order, cycles := g.TopoSort()
	for _, id := range order {
		if doc, ok := byPath[id]; ok {
			o.Docs = append(o.Docs, doc)
		}
	}
	if len(cycles) == 0 {
		return o, nil
	}

	excluded := make(map[string]bool)
	descr := make([]string, len(cycles))
	for i, cycle := range cycles {
		files := make([]*deps.File, len(cycle))
		names := make([]string, len(cycle))
		for j, id := range cycle {
			excluded[id] = true
			files[j] = byPath[id].File
			names[j] = files[j].String()
			if n, ok := g.Node(id); ok {
				n.Meta[dag.MetaCycle] = true
			}
		}
		o.Cycles = append(o.Cycles, files)
		descr[i] = strings.Join(names, ", ")
	}
	for _, doc := range o.Docs {
		for _, inc := range doc.Includes {
			if excluded[inc.Path] {
				o.Blocked = append(o.Blocked, inc)
			}
		}
	}
	return o, errors.New(errors.ErrCodeGraph, "include cycle between %s", strings.Join(descr, "; "))
}

// Members returns every file that takes part in a cycle.
func (o *Order) Members() []*deps.File {
	var out []*deps.File
	for _, cycle := range o.Cycles {
		for _, f := range cycle {
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	return out
}
