package analysis

import (
	"encoding/json"
	"math"
)

// Record is one input row: column name to JSON-compatible scalar.
type Record map[string]any

// Kind tags the state of a single table cell.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumeric
	KindNonNumeric
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindNonNumeric:
		return "non-numeric"
	default:
		return "missing"
	}
}

// Cell is a resolved table cell. Value is only meaningful for KindNumeric,
// Raw only for KindNonNumeric.
type Cell struct {
	Kind  Kind
	Value float64
	Raw   any
}

// Numeric reports the cell's value when it participates in correlations.
func (c Cell) Numeric() (float64, bool) {
	return c.Value, c.Kind == KindNumeric
}

// resolveCell classifies a raw record value. NaN counts as missing, the
// way a dataframe treats it; infinities are kept out of the sums.
func resolveCell(v any, opt Options) Cell {
	var f float64
	switch x := v.(type) {
	case nil:
		return Cell{Kind: KindMissing}
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return Cell{Kind: KindNonNumeric, Raw: x.String()}
		}
		f = n
	case bool:
		if !opt.BoolAsNumeric {
			return Cell{Kind: KindNonNumeric, Raw: x}
		}
		if x {
			f = 1
		}
	default:
		return Cell{Kind: KindNonNumeric, Raw: v}
	}
	if math.IsNaN(f) {
		return Cell{Kind: KindMissing}
	}
	if math.IsInf(f, 0) {
		return Cell{Kind: KindNonNumeric, Raw: v}
	}
	return Cell{Kind: KindNumeric, Value: f}
}
