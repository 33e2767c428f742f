package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Matrix is a symmetric Pearson correlation matrix keyed by column name.
// Undefined coefficients are stored as NaN.
type Matrix struct {
	Columns []string
	values  *mat.SymDense
	index   map[string]int
}

func newMatrix(cols []string) *Matrix {
	m := &Matrix{Columns: cols, index: make(map[string]int, len(cols))}
	for i, c := range cols {
		m.index[c] = i
	}
	// gonum rejects zero-sized matrices
	if len(cols) > 0 {
		m.values = mat.NewSymDense(len(cols), nil)
	}
	return m
}

// Len returns the number of columns on each axis.
func (m *Matrix) Len() int { return len(m.Columns) }

// At returns the coefficient for columns a and b. ok is false when either
// column is absent or the coefficient is undefined.
func (m *Matrix) At(a, b string) (r float64, ok bool) {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB {
		return 0, false
	}
	r = m.values.At(i, j)
	return r, !math.IsNaN(r)
}

func (m *Matrix) at(i, j int) float64 { return m.values.At(i, j) }

func (m *Matrix) set(i, j int, r float64) { m.values.SetSym(i, j, r) }

// Correlate computes the full Pearson matrix over every column of t.
//
// Off-diagonal cells use only rows where both cells are numeric; fewer than
// MinPeriods such rows, or a constant side, leaves the cell undefined. The
// diagonal is 1 for any column holding at least one numeric value, even a
// single one. That is a compatibility convention, not a statistical result.
func Correlate(t *Table, opt Options) *Matrix {
	m := newMatrix(t.Columns)
	n := len(t.Columns)
	if n == 0 {
		return m
	}
	minp := opt.minPeriods()

	cols := make([][]Cell, n)
	hasNumeric := make([]bool, n)
	for j := range cols {
		cols[j] = t.Column(j)
		for _, c := range cols[j] {
			if c.Kind == KindNumeric {
				hasNumeric[j] = true
				break
			}
		}
	}

	x := make([]float64, 0, t.Rows())
	y := make([]float64, 0, t.Rows())
	for i := 0; i < n; i++ {
		if hasNumeric[i] {
			m.set(i, i, 1)
		} else {
			m.set(i, i, math.NaN())
		}
		for j := i + 1; j < n; j++ {
			x, y = x[:0], y[:0]
			if hasNumeric[i] && hasNumeric[j] {
				for r := range cols[i] {
					a, okA := cols[i][r].Numeric()
					b, okB := cols[j][r].Numeric()
					if okA && okB {
						x = append(x, a)
						y = append(y, b)
					}
				}
			}
			m.set(i, j, pearson(x, y, minp))
		}
	}
	return m
}

// pearson returns NaN for samples that cannot produce a coefficient.
// x and y are rescaled in place.
func pearson(x, y []float64, minp int) float64 {
	if len(x) < minp || constant(x) || constant(y) {
		return math.NaN()
	}
	rescale(x)
	rescale(y)
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	return math.Max(-1, math.Min(1, r))
}

// rescale divides v by its largest magnitude so squared deviations stay
// finite for values near the float64 limits. r is scale invariant.
func rescale(v []float64) {
	n := floats.Norm(v, math.Inf(1))
	if n == 0 || n == 1 {
		return
	}
	for i := range v {
		v[i] /= n
	}
}

func constant(v []float64) bool {
	return len(v) == 0 || floats.Max(v) == floats.Min(v)
}
