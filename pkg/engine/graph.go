package engine

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/txforge/txforge/pkg/types"
)

// GraphContext is the dependency graph of a runbook: one node per indexed
// construct, one edge per resolved reference. Scheduling order is the
// graph's topological order, with declaration order breaking ties so a
// given runbook always schedules identically.
type GraphContext struct {
	// nodes maps construct digests to their graph nodes.
	nodes map[types.ConstructDid]*graphNode

	// sorted caches the topological order once computed.
	sorted []types.ConstructDid
}

type graphNode struct {
	did      types.ConstructDid
	declared int

	// dependencies are the constructs this node needs results from.
	dependencies []types.ConstructDid

	// dependents are the constructs needing this node's results.
	dependents []types.ConstructDid
}

// NewGraphContext builds the dependency graph for every construct indexed
// in the workspace. Edges follow resolved references; unresolved
// references are left for evaluation-time diagnostics.
func NewGraphContext(w *WorkspaceContext) *GraphContext {
	g := &GraphContext{nodes: make(map[types.ConstructDid]*graphNode)}
	for _, c := range w.Constructs() {
		g.nodes[c.Did] = &graphNode{did: c.Did, declared: c.DeclarationIndex}
	}
	for _, c := range w.Constructs() {
		node := g.nodes[c.Did]
		for _, dep := range w.Dependencies(c) {
			target, ok := g.nodes[dep]
			if !ok {
				continue
			}
			node.dependencies = append(node.dependencies, dep)
			target.dependents = append(target.dependents, c.Did)
		}
	}
	return g
}

// Len returns the node count.
func (g *GraphContext) Len() int {
	return len(g.nodes)
}

// Dependencies returns the direct dependencies of did.
func (g *GraphContext) Dependencies(did types.ConstructDid) []types.ConstructDid {
	if n, ok := g.nodes[did]; ok {
		return n.dependencies
	}
	return nil
}

// Dependents returns the direct dependents of did.
func (g *GraphContext) Dependents(did types.ConstructDid) []types.ConstructDid {
	if n, ok := g.nodes[did]; ok {
		return n.dependents
	}
	return nil
}

// declHeap is a min-heap of ready nodes ordered by declaration index.
type declHeap []*graphNode

func (h declHeap) Len() int            { return len(h) }
func (h declHeap) Less(i, j int) bool  { return h[i].declared < h[j].declared }
func (h declHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *declHeap) Push(x interface{}) { *h = append(*h, x.(*graphNode)) }
func (h *declHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// TopologicalSort orders the graph so every construct appears after all of
// its dependencies. Among simultaneously ready constructs, the one
// declared first is scheduled first. A cycle yields a fatal diagnostic
// naming every construct still entangled in it.
func (g *GraphContext) TopologicalSort() ([]types.ConstructDid, *types.Diagnostic) {
	order, remaining := g.sort()
	if len(remaining) > 0 {
		names := make([]string, len(remaining))
		for i, did := range remaining {
			names[i] = did.Did.String()
		}
		return nil, types.ErrorDiagf("dependency cycle involving: %s", strings.Join(names, ", ")).
			WithCode(types.DiagCodeCycle)
	}
	return order, nil
}

// sort runs Kahn's algorithm, returning the ordered prefix and, on a
// cycle, the constructs left unordered in declaration order.
func (g *GraphContext) sort() ([]types.ConstructDid, []types.ConstructDid) {
	if g.sorted != nil {
		return g.sorted, nil
	}

	inDegree := make(map[types.ConstructDid]int, len(g.nodes))
	for did, node := range g.nodes {
		inDegree[did] = len(node.dependencies)
	}

	ready := &declHeap{}
	heap.Init(ready)
	for did, deg := range inDegree {
		if deg == 0 {
			heap.Push(ready, g.nodes[did])
		}
	}

	order := make([]types.ConstructDid, 0, len(g.nodes))
	for ready.Len() > 0 {
		node := heap.Pop(ready).(*graphNode)
		order = append(order, node.did)
		for _, dep := range node.dependents {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				heap.Push(ready, g.nodes[dep])
			}
		}
	}

	if len(order) != len(g.nodes) {
		// Everything not ordered sits on or downstream of a cycle.
		var remainingNodes []*graphNode
		for did, deg := range inDegree {
			if deg > 0 {
				remainingNodes = append(remainingNodes, g.nodes[did])
			}
		}
		sort.Slice(remainingNodes, func(i, j int) bool {
			return remainingNodes[i].declared < remainingNodes[j].declared
		})
		remaining := make([]types.ConstructDid, len(remainingNodes))
		for i, n := range remainingNodes {
			remaining[i] = n.did
		}
		return order, remaining
	}

	g.sorted = order
	return order, nil
}

// SortedWithNames is TopologicalSort with construct references substituted
// for digests in the cycle diagnostic, for operator-facing errors.
func (g *GraphContext) SortedWithNames(w *WorkspaceContext) ([]types.ConstructDid, *types.Diagnostic) {
	order, remaining := g.sort()
	if len(remaining) == 0 {
		return order, nil
	}
	names := make([]string, len(remaining))
	for i, did := range remaining {
		names[i] = did.Did.String()
		if c, ok := w.Construct(did); ok {
			names[i] = c.Reference()
		}
	}
	return nil, types.ErrorDiagf("dependency cycle involving: %s", strings.Join(names, ", ")).
		WithCode(types.DiagCodeCycle)
}

// DownstreamClosure returns every construct reachable from the given
// roots by following dependent edges, excluding the roots themselves.
func (g *GraphContext) DownstreamClosure(roots ...types.ConstructDid) map[types.ConstructDid]bool {
	closure := make(map[types.ConstructDid]bool)
	var visit func(did types.ConstructDid)
	visit = func(did types.ConstructDid) {
		node, ok := g.nodes[did]
		if !ok {
			return
		}
		for _, dep := range node.dependents {
			if !closure[dep] {
				closure[dep] = true
				visit(dep)
			}
		}
	}
	for _, root := range roots {
		visit(root)
	}
	return closure
}

// ToDOT renders the graph in DOT format for Graphviz.
func (g *GraphContext) ToDOT(w *WorkspaceContext) string {
	var sb strings.Builder
	sb.WriteString("digraph runbook {\n")
	sb.WriteString("  rankdir=TB;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	nodes := make([]*graphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].declared < nodes[j].declared })

	for _, n := range nodes {
		label := n.did.Did.String()[:10]
		if c, ok := w.Construct(n.did); ok {
			label = c.Reference()
		}
		fmt.Fprintf(&sb, "  %q [label=%q];\n", n.did.Did.String(), label)
	}
	sb.WriteString("\n")
	for _, n := range nodes {
		for _, dep := range n.dependencies {
			fmt.Fprintf(&sb, "  %q -> %q;\n", dep.Did.String(), n.did.Did.String())
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
