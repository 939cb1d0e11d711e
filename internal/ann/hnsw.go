package ann

import (
	"fmt"

	"github.com/coder/hnsw"
	"gonum.org/v1/gonum/floats"
)

// HNSW is an approximate backend over a hierarchical navigable small-world
// graph. Neighborhoods may miss true neighbors; the duplicate reducer
// tolerates that. Distances for the radius filter are recomputed from the
// original float64 vectors, so the float32 graph storage only affects
// which candidates surface, not whether they pass the radius test.
type HNSW struct {
	vecs  [][]float64
	graph *hnsw.Graph[int]
}

func (h *HNSW) Build(items [][]float64) error {
	h.vecs = make([][]float64, len(items))
	g := hnsw.NewGraph[int]()
	g.Distance = hnsw.EuclideanDistance

	for i, v := range items {
		cp := make([]float64, len(v))
		copy(cp, v)
		h.vecs[i] = cp

		vec32 := make([]float32, len(v))
		for j, x := range v {
			vec32[j] = float32(x)
		}
		g.Add(hnsw.MakeNode(i, vec32))
	}
	h.graph = g
	return nil
}

func (h *HNSW) Len() int { return len(h.vecs) }

func (h *HNSW) Vector(row int) []float64 { return h.vecs[row] }

func (h *HNSW) QueryRadius(row int, radius float64) ([]int, error) {
	if row < 0 || row >= len(h.vecs) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, len(h.vecs))
	}
	query := h.vecs[row]

	vec32 := make([]float32, len(query))
	for j, x := range query {
		vec32[j] = float32(x)
	}
	nodes := h.graph.Search(vec32, MaxNeighbors)

	var cands []candidate
	for _, n := range nodes {
		d := floats.Distance(query, h.vecs[n.Key], 2)
		if d < radius {
			cands = append(cands, candidate{row: n.Key, dist: d})
		}
	}
	return nearest(cands), nil
}
