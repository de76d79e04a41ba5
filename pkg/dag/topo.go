package dag

import "slices"

// TopoSort orders nodes so that every node appears after all of its
// children. Roots are visited in insertion order and children in edge
// order, which makes the result stable for a given insertion sequence.
//
// Cycles are found as strongly connected components: every node of a
// component with more than one member, or with an edge to itself, is left
// out of order. Each component is returned once, members in visiting order.
func (d *DAG) TopoSort() (order []string, cycles [][]string) {
	index := make(map[string]int, len(d.nodes))
	low := make(map[string]int, len(d.nodes))
	onStack := make(map[string]bool)
	var stack []string

	// Tarjan's algorithm emits a component only after every component
	// reachable from it, so the emission sequence is already children-first.
	var visit func(id string)
	visit = func(id string) {
		index[id] = len(index)
		low[id] = index[id]
		stack = append(stack, id)
		onStack[id] = true

		for _, child := range d.outgoing[id] {
			if _, seen := index[child]; !seen {
				visit(child)
				low[id] = min(low[id], low[child])
			} else if onStack[child] {
				low[id] = min(low[id], index[child])
			}
		}
		if low[id] != index[id] {
			return
		}

		start := slices.Index(stack, id)
		comp := slices.Clone(stack[start:])
		stack = stack[:start]
		for _, m := range comp {
			onStack[m] = false
		}
		if len(comp) == 1 && !slices.Contains(d.outgoing[id], id) {
			order = append(order, id)
			return
		}
		slices.SortFunc(comp, func(a, b string) int { return index[a] - index[b] })
		cycles = append(cycles, comp)
	}

	for _, n := range d.order {
		if _, seen := index[n.ID]; !seen {
			visit(n.ID)
		}
	}
	return order, cycles
}

// HasCycle reports whether the graph contains at least one cycle.
func (d *DAG) HasCycle() bool {
	_, cycles := d.TopoSort()
	return len(cycles) > 0
}
