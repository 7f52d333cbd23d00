package epiworld

import (
	"bufio"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// AdjList is a sparse directed or undirected neighbour list, the population's
// contact structure. Edges are unweighted; group-mixing weighting is carried
// by the contact matrix instead.
type AdjList struct {
	directed  bool
	neighbors map[int][]int
	size      int
}

// NewAdjList creates an empty list sized for n agents (ids 0..n-1).
func NewAdjList(n int, directed bool) *AdjList {
	return &AdjList{
		directed:  directed,
		neighbors: make(map[int][]int, n),
		size:      n,
	}
}

// Size returns the number of vertices the list was built for.
func (a *AdjList) Size() int { return a.size }

// Neighbors returns agent id's neighbour list. Never mutate the returned
// slice; callers needing a private copy should copy it explicitly.
func (a *AdjList) Neighbors(id int) []int { return a.neighbors[id] }

// Degree returns len(Neighbors(id)).
func (a *AdjList) Degree(id int) int { return len(a.neighbors[id]) }

// ConnectionExists reports whether u-v is an edge (directed u->v for a
// directed list).
func (a *AdjList) ConnectionExists(u, v int) bool { return a.hasEdge(u, v) }

func (a *AdjList) hasEdge(u, v int) bool {
	for _, n := range a.neighbors[u] {
		if n == v {
			return true
		}
	}
	return false
}

// AddEdge adds u->v (and v->u if undirected). No-op if the edge already
// exists.
func (a *AdjList) AddEdge(u, v int) {
	if !a.hasEdge(u, v) {
		a.neighbors[u] = append(a.neighbors[u], v)
	}
	if !a.directed && !a.hasEdge(v, u) {
		a.neighbors[v] = append(a.neighbors[v], u)
	}
}

// RemoveEdge deletes u->v (and v->u if undirected).
func (a *AdjList) RemoveEdge(u, v int) {
	a.neighbors[u] = removeInt(a.neighbors[u], v)
	if !a.directed {
		a.neighbors[v] = removeInt(a.neighbors[v], u)
	}
}

func removeInt(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Copy deep-copies the list, used by Model.Clone.
func (a *AdjList) Copy() *AdjList {
	n := &AdjList{directed: a.directed, neighbors: make(map[int][]int, len(a.neighbors)), size: a.size}
	for k, v := range a.neighbors {
		cp := make([]int, len(v))
		copy(cp, v)
		n.neighbors[k] = cp
	}
	return n
}

// AdjListFromEdgeList builds an AdjList from (n_vertices, pairs of (u,v)),
// the adjacency-list interchange format.
func AdjListFromEdgeList(n int, pairs [][2]int, directed bool) *AdjList {
	a := NewAdjList(n, directed)
	for _, p := range pairs {
		a.AddEdge(p[0], p[1])
	}
	return a
}

// EmptyAdjList builds a graph of n isolated vertices (the "empty-graph size
// N" population constructor).
func EmptyAdjList(n int, directed bool) *AdjList {
	return NewAdjList(n, directed)
}

// WattsStrogatz builds a Watts-Strogatz small-world graph: a ring lattice of
// n vertices each connected to k nearest neighbours (an odd k is reduced by
// one), with each edge rewired with probability p.
func WattsStrogatz(n, k int, p float64, directed bool, rng *RNGEngine) *AdjList {
	a := NewAdjList(n, directed)
	if k%2 == 1 {
		k--
	}
	half := k / 2
	for i := 0; i < n; i++ {
		for d := 1; d <= half; d++ {
			j := (i + d) % n
			a.AddEdge(i, j)
		}
	}
	if p <= 0 {
		return a
	}
	for i := 0; i < n; i++ {
		for d := 1; d <= half; d++ {
			j := (i + d) % n
			if rng.Uniform() >= p {
				continue
			}
			// Rewire i-j to i-newTarget, avoiding self loops and duplicates.
			var newTarget int
			for attempts := 0; attempts < 50; attempts++ {
				candidate := rng.UniformRange(0, n)
				if candidate != i && !a.hasEdge(i, candidate) {
					newTarget = candidate
					break
				}
				newTarget = -1
			}
			if newTarget < 0 {
				continue
			}
			a.RemoveEdge(i, j)
			a.AddEdge(i, newTarget)
		}
	}
	return a
}

// Rewire performs edge-preserving degree-preserving double-edge-swap rewires
// (repeated nSwaps times): pick two edges (a-b),(c-d) and replace with
// (a-d),(c-b) when that introduces no self-loop or duplicate. Preserves each
// vertex's degree exactly.
func (a *AdjList) Rewire(nSwaps int, rng *RNGEngine) {
	ids := make([]int, 0, len(a.neighbors))
	for id := range a.neighbors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	if len(ids) < 2 {
		return
	}
	for s := 0; s < nSwaps; s++ {
		u := ids[rng.UniformRange(0, len(ids))]
		nbrsU := a.Neighbors(u)
		if len(nbrsU) == 0 {
			continue
		}
		v := nbrsU[rng.UniformRange(0, len(nbrsU))]

		x := ids[rng.UniformRange(0, len(ids))]
		nbrsX := a.Neighbors(x)
		if len(nbrsX) == 0 {
			continue
		}
		y := nbrsX[rng.UniformRange(0, len(nbrsX))]

		if u == x || u == y || v == x || v == y {
			continue
		}
		if a.hasEdge(u, y) || a.hasEdge(x, v) {
			continue
		}
		a.RemoveEdge(u, v)
		a.RemoveEdge(x, y)
		a.AddEdge(u, y)
		a.AddEdge(x, v)
	}
}

// LoadEdgeList reads a plain "u,v" per line adjacency-list interchange file
// and returns its pairs along with the inferred vertex count (max id + 1).
func LoadEdgeList(path string) (pairs [][2]int, n int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "opening edge list %s", path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 2 {
			return nil, 0, errors.Errorf("malformed edge list line: %q", line)
		}
		u, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "parsing source vertex in %q", line)
		}
		v, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, 0, errors.Wrapf(err, "parsing target vertex in %q", line)
		}
		pairs = append(pairs, [2]int{u, v})
		if u+1 > n {
			n = u + 1
		}
		if v+1 > n {
			n = v + 1
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "scanning edge list")
	}
	return pairs, n, nil
}
