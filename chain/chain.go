// Package chain implements the parent-child link graph of component C5:
// acyclicity and depth-bound enforcement, and the derived child target
// window. Modeled as a dense index-remapped graph per the engine's arena
// convention rather than a pointer-linked structure.
package chain

import (
	"sort"

	"github.com/motioneffector/reflow/calendar"
	"github.com/motioneffector/reflow/errs"
	"github.com/motioneffector/reflow/model"
)

// MaxDepth is the longest permitted root-to-node path in the link graph.
const MaxDepth = 32

// Graph is the link set, remapped to dense integer indices for DFS.
type Graph struct {
	index       map[model.SeriesId]int
	series      []model.SeriesId
	outbound    [][]model.Link // outbound[i] = links whose parent is series[i]
	parentOf    map[model.SeriesId]model.Link
}

// Build indexes links into a Graph. Does not itself validate the
// invariants — use ValidateNewLink to check a candidate edge against the
// graph before adding it.
func Build(seriesIds []model.SeriesId, links []model.Link) *Graph {
	g := &Graph{
		index:    make(map[model.SeriesId]int, len(seriesIds)),
		parentOf: make(map[model.SeriesId]model.Link, len(links)),
	}
	for _, id := range seriesIds {
		g.index[id] = len(g.series)
		g.series = append(g.series, id)
		g.outbound = append(g.outbound, nil)
	}
	for _, l := range links {
		if i, ok := g.index[l.ParentSeriesId]; ok {
			g.outbound[i] = append(g.outbound[i], l)
		}
		g.parentOf[l.ChildSeriesId] = l
	}
	return g
}

// ParentLink returns the inbound link of child, if any.
func (g *Graph) ParentLink(child model.SeriesId) (model.Link, bool) {
	l, ok := g.parentOf[child]
	return l, ok
}

// Children returns the outbound links of parent.
func (g *Graph) Children(parent model.SeriesId) []model.Link {
	i, ok := g.index[parent]
	if !ok {
		return nil
	}
	return g.outbound[i]
}

// ValidateNewLink checks the preconditions for adding parent->child to g
// (spec.md §4.5), without mutating g.
func (g *Graph) ValidateNewLink(parent, child model.SeriesId) error {
	if _, ok := g.index[parent]; !ok {
		return errs.NotFound("link: parent series %q not found", parent)
	}
	if _, ok := g.index[child]; !ok {
		return errs.NotFound("link: child series %q not found", child)
	}
	if parent == child {
		return errs.SelfLink("link: parent and child are the same series %q", parent)
	}
	if _, ok := g.parentOf[child]; ok {
		return errs.AlreadyLinked("link: child %q already has a parent", child)
	}
	if g.reachable(child, parent) {
		return errs.CycleDetected("link: %q is reachable from %q, adding this edge would create a cycle", parent, child)
	}
	depth := g.depthOf(parent) + 1 + g.longestDownstreamChain(child)
	if depth > MaxDepth {
		return errs.ChainDepthExceeded("link: adding %q->%q would push the longest root path to %d (max %d)", parent, child, depth, MaxDepth)
	}
	return nil
}

// reachable reports whether to is reachable from 'from' by following
// outbound edges (DFS with a visited set).
func (g *Graph) reachable(from, to model.SeriesId) bool {
	visited := make(map[model.SeriesId]bool)
	var dfs func(model.SeriesId) bool
	dfs = func(n model.SeriesId) bool {
		if n == to {
			return true
		}
		if visited[n] {
			return false
		}
		visited[n] = true
		for _, l := range g.Children(n) {
			if dfs(l.ChildSeriesId) {
				return true
			}
		}
		return false
	}
	return dfs(from)
}

// depthOf returns the length (edge count) of the longest path from any
// root to n.
func (g *Graph) depthOf(n model.SeriesId) int {
	depth := 0
	cur := n
	for {
		l, ok := g.parentOf[cur]
		if !ok {
			return depth
		}
		depth++
		cur = l.ParentSeriesId
		if depth > MaxDepth*2 {
			// graph is guaranteed acyclic by construction; this guards
			// against a corrupted input graph rather than a reachable state.
			return depth
		}
	}
}

// longestDownstreamChain returns the number of edges in the longest path
// from n down to a leaf.
func (g *Graph) longestDownstreamChain(n model.SeriesId) int {
	best := 0
	for _, l := range g.Children(n) {
		if d := 1 + g.longestDownstreamChain(l.ChildSeriesId); d > best {
			best = d
		}
	}
	return best
}

// Roots returns every series with no inbound link, sorted lexicographically.
func (g *Graph) Roots() []model.SeriesId {
	var roots []model.SeriesId
	for _, id := range g.series {
		if _, ok := g.parentOf[id]; !ok {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots
}

// TopologicalOrder returns every series in an order where a parent always
// precedes its children, ties broken lexicographically by SeriesId. Used
// by the solver's "chain roots before descendants" variable ordering.
func (g *Graph) TopologicalOrder() []model.SeriesId {
	visited := make(map[model.SeriesId]bool, len(g.series))
	var order []model.SeriesId
	var visit func(model.SeriesId)
	visit = func(n model.SeriesId) {
		if visited[n] {
			return
		}
		visited[n] = true
		order = append(order, n)
		children := append([]model.Link(nil), g.Children(n)...)
		sort.Slice(children, func(i, j int) bool { return children[i].ChildSeriesId < children[j].ChildSeriesId })
		for _, l := range children {
			visit(l.ChildSeriesId)
		}
	}
	for _, root := range g.Roots() {
		visit(root)
	}
	// Any series unreachable from a root (shouldn't happen in a valid DAG,
	// but keep the ordering total) is appended lexicographically.
	var stray []model.SeriesId
	for _, id := range g.series {
		if !visited[id] {
			stray = append(stray, id)
		}
	}
	sort.Slice(stray, func(i, j int) bool { return stray[i] < stray[j] })
	return append(order, stray...)
}

// ParentEnd computes endOfParent(d) per spec.md §4.5: the parent's actual
// completion end time on d if completed, else its scheduled end.
func ParentEnd(completedEnd *calendar.LocalDateTime, scheduledIdeal calendar.LocalDateTime, scheduledDuration int) calendar.LocalDateTime {
	if completedEnd != nil {
		return *completedEnd
	}
	return calendar.AddMinutes(scheduledIdeal, scheduledDuration)
}

// TargetWindow computes the child's target time and valid window for a
// link given the parent's end on the relevant date.
func TargetWindow(l model.Link, parentEnd calendar.LocalDateTime) (target, windowStart, windowEnd calendar.LocalDateTime) {
	target = calendar.AddMinutes(parentEnd, l.TargetDistance)
	windowStart = calendar.AddMinutes(target, -l.EarlyWobble)
	windowEnd = calendar.AddMinutes(target, l.LateWobble)
	return target, windowStart, windowEnd
}

// CompletedEnds maps a parent instance's variable key to the actual end
// time of its completion on that date. Propagation, search, and conflict
// reporting all consult it before falling back to a scheduled-only end,
// per spec.md §4.5's "actualEnd if P is completed on d, else scheduledEnd".
type CompletedEnds map[model.VarKey]calendar.LocalDateTime

// Lookup returns the actual completion end for key, or nil if the parent
// has no completion recorded for that date.
func (c CompletedEnds) Lookup(key model.VarKey) *calendar.LocalDateTime {
	if c == nil {
		return nil
	}
	end, ok := c[key]
	if !ok {
		return nil
	}
	return &end
}
