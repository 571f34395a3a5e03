package engine

import "sort"

// findCycle returns a closed dependency walk, or nil if the graph is acyclic.
//
// The algorithm:
//  1. Run Tarjan's algorithm over module → dependency edges
//  2. Take the first SCC with more than one member, or a self-loop
//  3. Reconstruct a path from its earliest-registered member back to itself
//
// Nodes and edges are visited in registration and declaration order, so the
// reported cycle is stable for a given registry.
func (r *Registry) findCycle() []Handle {
	for _, scc := range r.tarjanSCC() {
		if len(scc) == 1 && !r.hasSelfLoop(scc[0]) {
			continue
		}
		sort.Slice(scc, func(i, j int) bool { return r.index[scc[i]] < r.index[scc[j]] })
		return r.reconstructCyclePath(scc)
	}
	return nil
}

func (r *Registry) hasSelfLoop(h Handle) bool {
	for _, dep := range r.descs[r.index[h]].Dependencies {
		if dep == h {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components of the dependency graph.
// Single-node SCCs without self-loops are NOT cycles.
func (r *Registry) tarjanSCC() [][]Handle {
	var (
		index   = 0
		stack   []Handle
		indices = make(map[Handle]int)
		lowlink = make(map[Handle]int)
		onStack = make(map[Handle]bool)
		sccs    [][]Handle
	)

	var strongConnect func(Handle)
	strongConnect = func(v Handle) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range r.descs[r.index[v]].Dependencies {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// Root node: pop the stack into an SCC
		if lowlink[v] == indices[v] {
			var scc []Handle
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, d := range r.descs {
		if _, visited := indices[d.Handle]; !visited {
			strongConnect(d.Handle)
		}
	}
	return sccs
}

// reconstructCyclePath walks dependency edges inside the SCC from its first
// member until it returns there. Every SCC member can reach every other, so a
// depth-first walk restricted to the SCC always closes.
func (r *Registry) reconstructCyclePath(scc []Handle) []Handle {
	start := scc[0]
	if len(scc) == 1 {
		return []Handle{start, start}
	}

	members := make(map[Handle]bool, len(scc))
	for _, h := range scc {
		members[h] = true
	}

	visited := make(map[Handle]bool)
	var path []Handle

	var walk func(Handle) bool
	walk = func(v Handle) bool {
		visited[v] = true
		path = append(path, v)
		for _, w := range r.descs[r.index[v]].Dependencies {
			if !members[w] {
				continue
			}
			if w == start {
				path = append(path, start)
				return true
			}
			if !visited[w] && walk(w) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	walk(start)
	return path
}
