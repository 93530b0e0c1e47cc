package closure

// Graph is an auxiliary directed graph over one relation.
type Graph struct {
	order []string
	adj   map[string][]string
	edges map[[2]string]struct{}
}

// NewGraph returns an empty auxiliary graph.
func NewGraph() *Graph {
	return &Graph{
		adj:   make(map[string][]string),
		edges: make(map[[2]string]struct{}),
	}
}

// Add inserts the edge s->o and reports whether it was new.
func (g *Graph) Add(s, o string) bool {
	key := [2]string{s, o}
	if _, ok := g.edges[key]; ok {
		return false
	}
	g.edges[key] = struct{}{}
	if _, ok := g.adj[s]; !ok {
		g.order = append(g.order, s)
	}
	g.adj[s] = append(g.adj[s], o)
	return true
}

// Len is the number of edges.
func (g *Graph) Len() int { return len(g.edges) }

// Closure calls fn for every pair (s, o) such that o is reachable from s by
// one or more edges. Sources are visited in insertion order and targets in
// breadth-first order. A node on a cycle reaches itself. Returning false
// from fn stops the walk.
func (g *Graph) Closure(fn func(s, o string) bool) {
	for _, s := range g.order {
		seen := make(map[string]bool)
		queue := append([]string(nil), g.adj[s]...)
		for _, o := range queue {
			seen[o] = true
		}
		for i := 0; i < len(queue); i++ {
			n := queue[i]
			if !fn(s, n) {
				return
			}
			for _, next := range g.adj[n] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
}
