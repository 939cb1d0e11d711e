package ann

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Linear is the exact reference backend: a brute-force scan over all
// indexed vectors. Slow past a few tens of thousands of windows but
// returns the true radius neighborhood.
type Linear struct {
	vecs [][]float64
}

func (l *Linear) Build(items [][]float64) error {
	l.vecs = make([][]float64, len(items))
	for i, v := range items {
		cp := make([]float64, len(v))
		copy(cp, v)
		l.vecs[i] = cp
	}
	return nil
}

func (l *Linear) Len() int { return len(l.vecs) }

func (l *Linear) Vector(row int) []float64 { return l.vecs[row] }

func (l *Linear) QueryRadius(row int, radius float64) ([]int, error) {
	if row < 0 || row >= len(l.vecs) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", row, len(l.vecs))
	}
	query := l.vecs[row]

	var cands []candidate
	for i, v := range l.vecs {
		d := floats.Distance(query, v, 2)
		if d < radius {
			cands = append(cands, candidate{row: i, dist: d})
		}
	}
	return nearest(cands), nil
}
