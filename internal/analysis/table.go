package analysis

import (
	"sort"
	"strconv"
)

// Options controls how records are turned into a correlation matrix.
type Options struct {
	// MinPeriods is the minimum number of paired observations required for
	// an off-diagonal coefficient. Values below 2 are treated as 2.
	MinPeriods int
	// BoolAsNumeric maps true/false to 1/0 instead of treating them as text.
	BoolAsNumeric bool
}

// DefaultOptions returns the options used by the HTTP service.
func DefaultOptions() Options {
	return Options{MinPeriods: 2}
}

func (o Options) minPeriods() int {
	if o.MinPeriods < 2 {
		return 2
	}
	return o.MinPeriods
}

// Table is the rectangular view of a record batch.
type Table struct {
	// Index holds 1-based row labels in input order.
	Index   []string
	Columns []string
	// Cells is row-major: Cells[row][col].
	Cells [][]Cell
}

// Rows returns the number of rows.
func (t *Table) Rows() int { return len(t.Index) }

// Column returns a copy of one column's cells.
func (t *Table) Column(j int) []Cell {
	out := make([]Cell, len(t.Cells))
	for i, row := range t.Cells {
		out[i] = row[j]
	}
	return out
}

// BuildTable assembles records into a Table. Columns are the union of keys in
// first-seen order; keys inside a single record are visited sorted so the
// layout is deterministic. Nothing is dropped here.
func BuildTable(records []Record, opt Options) (*Table, error) {
	t := &Table{
		Index: make([]string, len(records)),
		Cells: make([][]Cell, len(records)),
	}
	colIndex := map[string]int{}
	for i, rec := range records {
		if rec == nil {
			return nil, &StructuralError{Index: i, Got: "null"}
		}
		t.Index[i] = strconv.Itoa(i + 1)
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := colIndex[k]; !ok {
				colIndex[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}
	ncol := len(t.Columns)
	for i, rec := range records {
		row := make([]Cell, ncol)
		for k, v := range rec {
			row[colIndex[k]] = resolveCell(v, opt)
		}
		t.Cells[i] = row
	}
	return t, nil
}
