package analysis

// Result is the outcome of one Analyze call.
type Result struct {
	// Matrix is the pruned correlation matrix.
	Matrix *Matrix
	Rows   int
	// Columns counts every column seen, pruned ones included.
	Columns int
	// Pruned lists the degenerate columns that were removed.
	Pruned []string
}

// Analyze runs the full pipeline: BuildTable, Correlate, Prune.
// Only structural problems in the input return an error.
func Analyze(records []Record, opt Options) (*Result, error) {
	t, err := BuildTable(records, opt)
	if err != nil {
		return nil, err
	}
	full := Correlate(t, opt)
	return &Result{
		Matrix:  Prune(full),
		Rows:    t.Rows(),
		Columns: len(t.Columns),
		Pruned:  Degenerate(full),
	}, nil
}
