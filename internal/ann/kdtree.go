package ann

import (
	"fmt"

	"github.com/kyroy/kdtree"
	"github.com/kyroy/kdtree/points"
	"gonum.org/v1/gonum/floats"
)

// KDTree is an exact backend over a k-d tree. It asks the tree for the
// MaxNeighbors nearest rows and keeps those inside the radius, which
// matches the capped-k contract directly.
type KDTree struct {
	vecs [][]float64
	tree *kdtree.KDTree
}

func (k *KDTree) Build(items [][]float64) error {
	k.vecs = make([][]float64, len(items))
	pts := make([]kdtree.Point, len(items))
	for i, v := range items {
		cp := make([]float64, len(v))
		copy(cp, v)
		k.vecs[i] = cp
		pts[i] = points.NewPoint(cp, i)
	}
	k.tree = kdtree.New(pts)
	return nil
}

func (k *KDTree) Len() int { return len(k.vecs) }

func (k *KDTree) Vector(row int) []float64 { return k.vecs[row] }

func (k *KDTree) QueryRadius(row int, radius float64) ([]int, error) {
	if row < 0 || row >= len(k.vecs) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, len(k.vecs))
	}
	query := k.vecs[row]

	hits := k.tree.KNN(points.NewPoint(query, row), MaxNeighbors)

	var cands []candidate
	for _, hit := range hits {
		p, ok := hit.(*points.Point)
		if !ok {
			return nil, fmt.Errorf("unexpected point type %T in tree", hit)
		}
		i, ok := p.Data.(int)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T in tree point", p.Data)
		}
		d := floats.Distance(query, k.vecs[i], 2)
		if d < radius {
			cands = append(cands, candidate{row: i, dist: d})
		}
	}
	return nearest(cands), nil
}
