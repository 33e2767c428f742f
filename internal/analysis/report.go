package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Map returns the nested name->name->value form; undefined cells are nil.
func (m *Matrix) Map() map[string]map[string]*float64 {
	out := make(map[string]map[string]*float64, m.Len())
	for i, a := range m.Columns {
		row := make(map[string]*float64, m.Len())
		for j, b := range m.Columns {
			r := m.at(i, j)
			if math.IsNaN(r) {
				row[b] = nil
				continue
			}
			row[b] = &r
		}
		out[a] = row
	}
	return out
}

// MarshalJSON encodes the matrix as {"a": {"a": 1, "b": null}, ...}.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// TopPairs lists defined off-diagonal pairs by |r| descending. n <= 0 means all.
func (m *Matrix) TopPairs(n int) []PairCorr {
	var pairs []PairCorr
	for i := 0; i < m.Len(); i++ {
		for j := i + 1; j < m.Len(); j++ {
			r := m.at(i, j)
			if math.IsNaN(r) {
				continue
			}
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: r})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].R), math.Abs(pairs[j].R)
		if ai == aj {
			return pairs[i].A+pairs[i].B < pairs[j].A+pairs[j].B
		}
		return ai > aj
	})
	if n > 0 && len(pairs) > n {
		pairs = pairs[:n]
	}
	return pairs
}

// Markdown renders a compact report: header, full matrix table, top pairs.
func (r *Result) Markdown(top int) string {
	var b strings.Builder
	m := r.Matrix
	b.WriteString("[CORRELATION SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d (kept %d)\n", r.Columns, m.Len()))
	if len(r.Pruned) > 0 {
		b.WriteString(fmt.Sprintf("Pruned: %s\n", strings.Join(r.Pruned, ", ")))
	}
	if m.Len() == 0 {
		return b.String()
	}

	b.WriteString("\n[CORRELATION MATRIX]\n")
	b.WriteString("| |")
	for _, c := range m.Columns {
		b.WriteString(" ")
		b.WriteString(safeName(c))
		b.WriteString(" |")
	}
	b.WriteString("\n|---|")
	for range m.Columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for i, c := range m.Columns {
		b.WriteString("| ")
		b.WriteString(safeName(c))
		b.WriteString(" |")
		for j := range m.Columns {
			v := m.at(i, j)
			if math.IsNaN(v) {
				b.WriteString(" – |")
			} else {
				b.WriteString(fmt.Sprintf(" %.3f |", v))
			}
		}
		b.WriteString("\n")
	}

	if pairs := m.TopPairs(top); len(pairs) > 0 {
		b.WriteString("\n[TOP PAIRS]\n")
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", safeName(p.A), safeName(p.B), p.R))
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/")
}
