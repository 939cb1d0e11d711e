// Package ann provides a uniform interface over the approximate
// nearest-neighbor backends used by the search pass.
package ann

import (
	"fmt"
	"sort"
)

// MaxNeighbors caps every radius query. The search is intentionally local:
// backends that could return unbounded radius neighborhoods are trimmed to
// their nearest MaxNeighbors candidates so results stay comparable across
// backends.
const MaxNeighbors = 20

// Index is the capability set every backend must expose. Vectors use the
// Euclidean (L2) metric. QueryRadius returns the rows whose distance to
// Vector(row) is strictly less than radius, at most MaxNeighbors of them.
type Index interface {
	Build(items [][]float64) error
	Len() int
	Vector(row int) []float64
	QueryRadius(row int, radius float64) ([]int, error)
}

// New returns the backend registered under name.
func New(name string) (Index, error) {
	switch name {
	case "linear":
		return &Linear{}, nil
	case "kdtree":
		return &KDTree{}, nil
	case "hnsw":
		return &HNSW{}, nil
	default:
		return nil, fmt.Errorf("unknown ANN backend %q (have: linear, kdtree, hnsw)", name)
	}
}

// Backends lists the registered backend names.
func Backends() []string {
	return []string{"linear", "kdtree", "hnsw"}
}

// candidate pairs a row with its distance to the query vector.
type candidate struct {
	row  int
	dist float64
}

// nearest sorts candidates by distance and keeps at most MaxNeighbors rows.
func nearest(cands []candidate) []int {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].dist != cands[j].dist {
			return cands[i].dist < cands[j].dist
		}
		return cands[i].row < cands[j].row
	})
	if len(cands) > MaxNeighbors {
		cands = cands[:MaxNeighbors]
	}
	rows := make([]int, len(cands))
	for i, c := range cands {
		rows[i] = c.row
	}
	return rows
}
