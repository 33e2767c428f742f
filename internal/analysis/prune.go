package analysis

import "math"

// Prune drops degenerate columns: those whose whole row, diagonal included,
// is undefined. Rows and columns go together so the result stays symmetric.
// Pruning everything yields an empty matrix.
func Prune(m *Matrix) *Matrix {
	n := m.Len()
	keep := make([]int, 0, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if !math.IsNaN(m.at(i, j)) {
				keep = append(keep, i)
				break
			}
		}
	}
	if len(keep) == n {
		return m
	}
	cols := make([]string, len(keep))
	for a, i := range keep {
		cols[a] = m.Columns[i]
	}
	out := newMatrix(cols)
	for a, i := range keep {
		for b := a; b < len(keep); b++ {
			out.set(a, b, m.at(i, keep[b]))
		}
	}
	return out
}

// Degenerate lists the columns Prune would remove, in matrix order.
func Degenerate(m *Matrix) []string {
	var out []string
	for i, c := range m.Columns {
		dead := true
		for j := range m.Columns {
			if !math.IsNaN(m.at(i, j)) {
				dead = false
				break
			}
		}
		if dead {
			out = append(out, c)
		}
	}
	return out
}
