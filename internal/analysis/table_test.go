package analysis

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"strings"
	"sync"
	"testing"
)

func TestBuildTableUnionAndOrder(t *testing.T) {
	recs := []Record{
		{"b": 1.0, "a": "x"},
		{"c": true},
		{"a": nil, "b": 2.0},
	}
	tbl, err := BuildTable(recs, DefaultOptions())
	if err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if !equalStrings(tbl.Index, []string{"1", "2", "3"}) {
		t.Fatalf("index = %#v", tbl.Index)
	}
	if !equalStrings(tbl.Columns, []string{"a", "b", "c"}) {
		t.Fatalf("columns = %#v", tbl.Columns)
	}
	if tbl.Rows() != 3 {
		t.Fatalf("rows = %d", tbl.Rows())
	}
	want := [][]Kind{
		{KindNonNumeric, KindNumeric, KindMissing},
		{KindMissing, KindMissing, KindNonNumeric},
		{KindMissing, KindNumeric, KindMissing},
	}
	for i, row := range tbl.Cells {
		for j, c := range row {
			if c.Kind != want[i][j] {
				t.Fatalf("cell[%d][%d] kind = %s, want %s", i, j, c.Kind, want[i][j])
			}
		}
	}
	col := tbl.Column(1)
	if v, ok := col[2].Numeric(); !ok || v != 2 {
		t.Fatalf("b[3] = %v,%v", v, ok)
	}
}

func TestResolveCellKinds(t *testing.T) {
	opt := DefaultOptions()
	cases := []struct {
		in   any
		kind Kind
		val  float64
	}{
		{nil, KindMissing, 0},
		{3, KindNumeric, 3},
		{int64(-4), KindNumeric, -4},
		{uint8(7), KindNumeric, 7},
		{float32(1.5), KindNumeric, 1.5},
		{json.Number("2.25"), KindNumeric, 2.25},
		{json.Number("abc"), KindNonNumeric, 0},
		{math.NaN(), KindMissing, 0},
		{math.Inf(1), KindNonNumeric, 0},
		{"12", KindNonNumeric, 0},
		{true, KindNonNumeric, 0},
		{map[string]any{"x": 1}, KindNonNumeric, 0},
		{[]any{1, 2}, KindNonNumeric, 0},
	}
	for _, tc := range cases {
		c := resolveCell(tc.in, opt)
		if c.Kind != tc.kind {
			t.Fatalf("resolveCell(%#v) kind = %s, want %s", tc.in, c.Kind, tc.kind)
		}
		if c.Kind == KindNumeric && c.Value != tc.val {
			t.Fatalf("resolveCell(%#v) value = %v, want %v", tc.in, c.Value, tc.val)
		}
	}

	opt.BoolAsNumeric = true
	if c := resolveCell(true, opt); c.Kind != KindNumeric || c.Value != 1 {
		t.Fatalf("bool true as numeric = %#v", c)
	}
	if c := resolveCell(false, opt); c.Kind != KindNumeric || c.Value != 0 {
		t.Fatalf("bool false as numeric = %#v", c)
	}
}

func TestAnalyzeLinearPair(t *testing.T) {
	res := mustAnalyze(t, []Record{
		{"a": 1, "b": 2},
		{"a": 2, "b": 4},
		{"a": 3, "b": 6},
	})
	assertJSON(t, res.Matrix, `{"a":{"a":1,"b":1},"b":{"a":1,"b":1}}`)
	if res.Rows != 3 || res.Columns != 2 || len(res.Pruned) != 0 {
		t.Fatalf("result meta = %+v", res)
	}
}

func TestAnalyzeNeverNumericColumnIsPruned(t *testing.T) {
	res := mustAnalyze(t, []Record{
		{"a": 1, "b": "x"},
		{"a": 2, "b": "y"},
	})
	assertJSON(t, res.Matrix, `{"a":{"a":1}}`)
	if !equalStrings(res.Pruned, []string{"b"}) {
		t.Fatalf("pruned = %#v", res.Pruned)
	}
}

func TestAnalyzeConstantColumns(t *testing.T) {
	// A lone constant column survives on its diagonal.
	res := mustAnalyze(t, []Record{{"a": 5}, {"a": 5}, {"a": 5}})
	assertJSON(t, res.Matrix, `{"a":{"a":1}}`)

	// Two constant columns keep their diagonals but not the pair.
	res = mustAnalyze(t, []Record{{"a": 5, "b": 1}, {"a": 5, "b": 1}, {"a": 5, "b": 1}})
	assertJSON(t, res.Matrix, `{"a":{"a":1,"b":null},"b":{"a":null,"b":1}}`)
}

func TestAnalyzeSingleValueDiagonalConvention(t *testing.T) {
	// One numeric observation is not enough for a variance, but the
	// diagonal is still reported as 1.
	res := mustAnalyze(t, []Record{{"a": 7, "b": "x"}, {"b": "y"}})
	assertJSON(t, res.Matrix, `{"a":{"a":1}}`)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	res := mustAnalyze(t, []Record{})
	assertJSON(t, res.Matrix, `{}`)
	res = mustAnalyze(t, nil)
	assertJSON(t, res.Matrix, `{}`)
	// Records without keys build rows but no columns.
	res = mustAnalyze(t, []Record{{}, {}})
	if res.Rows != 2 || res.Matrix.Len() != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestAnalyzeAllPruned(t *testing.T) {
	res := mustAnalyze(t, []Record{{"a": "x", "b": nil}, {"a": "y"}})
	assertJSON(t, res.Matrix, `{}`)
	if !equalStrings(res.Pruned, []string{"a", "b"}) {
		t.Fatalf("pruned = %#v", res.Pruned)
	}
}

func TestAnalyzeStructuralError(t *testing.T) {
	_, err := Analyze([]Record{{"a": 1}, nil, {"a": 3}}, DefaultOptions())
	if err == nil {
		t.Fatalf("expected structural error")
	}
	if !errors.Is(err, ErrStructural) {
		t.Fatalf("errors.Is(ErrStructural) = false for %v", err)
	}
	var se *StructuralError
	if !errors.As(err, &se) || se.Index != 1 {
		t.Fatalf("structural error = %#v", err)
	}
	if !strings.Contains(err.Error(), "record 2") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestCorrelatePairwiseDeletion(t *testing.T) {
	recs := []Record{
		{"x": 1.0, "y": 2.0, "z": 9.0},
		{"x": 2.0, "y": 1.0},
		{"x": 3.0, "y": "n/a", "z": 7.0},
		{"x": 4.0, "y": 5.0, "z": 3.0},
		{"x": 5.0, "y": 4.5, "z": 1.0},
		{"y": 8.0, "z": 0.5},
	}
	res := mustAnalyze(t, recs)
	m := res.Matrix

	xy := correlation([]float64{1, 2, 4, 5}, []float64{2, 1, 5, 4.5})
	xz := correlation([]float64{1, 3, 4, 5}, []float64{9, 7, 3, 1})
	yz := correlation([]float64{2, 5, 4.5, 8}, []float64{9, 3, 1, 0.5})
	checkCell(t, m, "x", "y", xy)
	checkCell(t, m, "x", "z", xz)
	checkCell(t, m, "y", "z", yz)
	checkCell(t, m, "z", "y", yz)
	for _, c := range []string{"x", "y", "z"} {
		checkCell(t, m, c, c, 1)
	}
}

func TestCorrelateMinPeriods(t *testing.T) {
	recs := []Record{
		{"a": 1, "b": 3},
		{"a": 2, "b": 1},
		{"a": 3},
		{"a": 4, "b": 2},
	}
	opt := DefaultOptions()
	res, err := Analyze(recs, opt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if _, ok := res.Matrix.At("a", "b"); !ok {
		t.Fatalf("a~b undefined with default min periods")
	}
	opt.MinPeriods = 4
	res, err = Analyze(recs, opt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if r, ok := res.Matrix.At("a", "b"); ok {
		t.Fatalf("a~b = %v, want undefined with 3 < 4 pairs", r)
	}
	// Values below 2 are raised to 2, so one pair never correlates.
	opt.MinPeriods = 0
	res, err = Analyze([]Record{{"a": 1, "b": 2}, {"a": 3}}, opt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	assertJSON(t, res.Matrix, `{"a":{"a":1,"b":null},"b":{"a":null,"b":1}}`)
}

func TestCorrelateNegativeAndClamped(t *testing.T) {
	recs := make([]Record, 0, 50)
	for i := 0; i < 50; i++ {
		v := 0.1 * float64(i)
		recs = append(recs, Record{"up": v, "down": 3 - 7*v})
	}
	res := mustAnalyze(t, recs)
	r, ok := res.Matrix.At("up", "down")
	if !ok {
		t.Fatalf("up~down undefined")
	}
	if r < -1 || !almostEqual(r, -1, 1e-12) {
		t.Fatalf("up~down = %.17g, want -1 within range", r)
	}
}

func TestCorrelateExtremeMagnitudes(t *testing.T) {
	want := correlation([]float64{1, 2, 3}, []float64{1, 2, 4})
	for _, scale := range []float64{1e200, 1e-200, 1e307} {
		recs := []Record{
			{"a": 1 * scale, "b": 1},
			{"a": 2 * scale, "b": 2},
			{"a": 3 * scale, "b": 4},
		}
		res := mustAnalyze(t, recs)
		checkCell(t, res.Matrix, "a", "b", want)
		checkCell(t, res.Matrix, "b", "a", want)
	}
}

func TestAnalyzeConcurrentCallsAreIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	recs := make([]Record, 200)
	for i := range recs {
		rec := Record{"x": rng.NormFloat64(), "label": "row"}
		if i%5 != 0 {
			rec["y"] = rng.NormFloat64()*2 + rec["x"].(float64)
		}
		if i%3 == 0 {
			rec["z"] = nil
		}
		recs[i] = rec
	}
	want, err := json.Marshal(mustAnalyze(t, recs).Matrix)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	const workers = 32
	got := make([][]byte, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			res, err := Analyze(recs, DefaultOptions())
			if err != nil {
				errs[w] = err
				return
			}
			got[w], errs[w] = json.Marshal(res.Matrix)
		}(w)
	}
	wg.Wait()
	for w := 0; w < workers; w++ {
		if errs[w] != nil {
			t.Fatalf("worker %d: %v", w, errs[w])
		}
		if string(got[w]) != string(want) {
			t.Fatalf("worker %d: matrix = %s, want %s", w, got[w], want)
		}
	}
}

func TestCorrelateBoolColumns(t *testing.T) {
	recs := []Record{
		{"flag": true, "v": 10},
		{"flag": false, "v": 1},
		{"flag": true, "v": 9},
	}
	res := mustAnalyze(t, recs)
	assertJSON(t, res.Matrix, `{"v":{"v":1}}`)

	opt := DefaultOptions()
	opt.BoolAsNumeric = true
	res, err := Analyze(recs, opt)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	checkCell(t, res.Matrix, "flag", "v", correlation([]float64{1, 0, 1}, []float64{10, 1, 9}))
}

func TestPruneKeepsSymmetry(t *testing.T) {
	nan := math.NaN()
	m := newMatrix([]string{"a", "dead", "b", "lonely"})
	vals := [][]float64{
		{1, nan, 0.5, nan},
		{nan, nan, nan, nan},
		{0.5, nan, 1, nan},
		{nan, nan, nan, nan},
	}
	for i := range vals {
		for j := i; j < len(vals); j++ {
			m.set(i, j, vals[i][j])
		}
	}
	// lonely gets only an off-diagonal value via a: still kept.
	m.set(0, 3, -0.25)

	if got := Degenerate(m); !equalStrings(got, []string{"dead"}) {
		t.Fatalf("degenerate = %#v", got)
	}
	p := Prune(m)
	if !equalStrings(p.Columns, []string{"a", "b", "lonely"}) {
		t.Fatalf("pruned columns = %#v", p.Columns)
	}
	assertJSON(t, p, `{"a":{"a":1,"b":0.5,"lonely":-0.25},"b":{"a":0.5,"b":1,"lonely":null},"lonely":{"a":-0.25,"b":null,"lonely":null}}`)
	if _, ok := p.At("dead", "a"); ok {
		t.Fatalf("dead column still addressable")
	}
}

func TestAnalyzeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cols := []string{"a", "b", "c", "d", "e", "f"}
	for iter := 0; iter < 100; iter++ {
		n := rng.Intn(12)
		recs := make([]Record, n)
		for i := range recs {
			rec := Record{}
			for _, c := range cols {
				switch rng.Intn(6) {
				case 0:
					// absent
				case 1:
					rec[c] = nil
				case 2:
					rec[c] = "txt"
				case 3:
					rec[c] = float64(rng.Intn(3))
				default:
					rec[c] = rng.NormFloat64()
				}
			}
			recs[i] = rec
		}
		first := mustAnalyze(t, recs)
		second := mustAnalyze(t, recs)
		m := first.Matrix

		for _, a := range m.Columns {
			defined := false
			for _, b := range m.Columns {
				rab, okAB := m.At(a, b)
				rba, okBA := m.At(b, a)
				if okAB != okBA || (okAB && rab != rba) {
					t.Fatalf("iter %d: asymmetric %s/%s: %v,%v vs %v,%v", iter, a, b, rab, okAB, rba, okBA)
				}
				if okAB && (rab < -1 || rab > 1) {
					t.Fatalf("iter %d: %s~%s = %v out of range", iter, a, b, rab)
				}
				defined = defined || okAB
			}
			if !defined {
				t.Fatalf("iter %d: column %s survived pruning with an all-null row", iter, a)
			}
		}

		j1, err := json.Marshal(first.Matrix)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		j2, err := json.Marshal(second.Matrix)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(j1) != string(j2) {
			t.Fatalf("iter %d: not idempotent:\n%s\n%s", iter, j1, j2)
		}
	}
}

func TestResultMarkdown(t *testing.T) {
	res := mustAnalyze(t, []Record{
		{"a": 1, "b": 2, "c": 3, "note": "x"},
		{"a": 2, "b": 4, "c": 1, "note": "y"},
		{"a": 3, "b": 6, "c": 2, "note": "z"},
	})
	md := res.Markdown(5)
	for _, want := range []string{
		"[CORRELATION SUMMARY]",
		"Rows: 3",
		"Columns: 4 (kept 3)",
		"Pruned: note",
		"[CORRELATION MATRIX]",
		"| a | 1.000 | 1.000 |",
		"[TOP PAIRS]",
		"- a ~ b: r=1.000",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
	pairs := res.Matrix.TopPairs(1)
	if len(pairs) != 1 || pairs[0].A != "a" || pairs[0].B != "b" {
		t.Fatalf("top pairs = %#v", pairs)
	}
}

func mustAnalyze(t *testing.T, recs []Record) *Result {
	t.Helper()
	res, err := Analyze(recs, DefaultOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return res
}

func assertJSON(t *testing.T, m *Matrix, want string) {
	t.Helper()
	got, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Fatalf("matrix = %s, want %s", gb, wb)
	}
}

func checkCell(t *testing.T, m *Matrix, a, b string, want float64) {
	t.Helper()
	r, ok := m.At(a, b)
	if !ok {
		t.Fatalf("%s~%s undefined, want %f", a, b, want)
	}
	if !almostEqual(r, want, 1e-9) {
		t.Fatalf("%s~%s = %f, want %f", a, b, r, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func correlation(x, y []float64) float64 {
	mx, my := mean(x), mean(y)
	var num, dx, dy float64
	for i := range x {
		a := x[i] - mx
		b := y[i] - my
		num += a * b
		dx += a * a
		dy += b * b
	}
	return num / math.Sqrt(dx*dy)
}
