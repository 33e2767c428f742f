package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

// ParseNumeric parses a locale-formatted number such as "1.234,5", "12.5%"
// or "1 000". With a zero DecimalSeparator the separators are guessed per
// value: when both ',' and '.' appear the right-most is the decimal mark; a
// lone separator repeated, or a single ',' followed by exactly three digits,
// groups thousands. Guessed thousands groups must be well formed, so "12 34"
// is not a number.
func ParseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "%", ""))
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\u00A0", " "))
	if raw == "" {
		return 0, false
	}
	dec, thou := opt.DecimalSeparator, opt.ThousandsSeparator
	if dec == 0 {
		dec, thou = guessSeparators(raw, thou)
	}

	intPart, frac, hasFrac := raw, "", false
	if i := strings.LastIndex(raw, string(dec)); i >= 0 {
		intPart, frac, hasFrac = raw[:i], raw[i+1:], true
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec && strings.ContainsRune(intPart, sep) {
				thou = sep
				break
			}
		}
	}
	if thou != 0 && thou != dec && strings.ContainsRune(intPart, thou) {
		if opt.ThousandsSeparator == 0 && !validGrouping(intPart, thou) {
			return 0, false
		}
		intPart = strings.ReplaceAll(intPart, string(thou), "")
	}
	num := intPart
	if hasFrac {
		num += "." + frac
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func guessSeparators(raw string, thou rune) (rune, rune) {
	commas, dots := strings.Count(raw, ","), strings.Count(raw, ".")
	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(raw, ",") > strings.LastIndex(raw, ".") {
			return ',', '.'
		}
		return '.', ','
	case commas > 1:
		return '.', ','
	case commas == 1:
		after := raw[strings.Index(raw, ",")+1:]
		if thou == ',' || (len(after) == 3 && allDigits(after)) {
			return '.', ','
		}
		return ',', thou
	case dots > 1:
		return ',', '.'
	default:
		return '.', thou
	}
}

// validGrouping reports whether s (optionally signed) is digits in groups
// of three after a leading group of one to three.
func validGrouping(s string, sep rune) bool {
	s = strings.TrimLeft(s, "+-")
	parts := strings.Split(s, string(sep))
	for i, p := range parts {
		if !allDigits(p) {
			return false
		}
		if i == 0 && (len(p) == 0 || len(p) > 3) {
			return false
		}
		if i > 0 && len(p) != 3 {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// textValue turns a raw text cell into a record value: absent when blank,
// float64 when it parses as a number, the trimmed string otherwise.
func textValue(s string, opt Options) (any, bool) {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil, false
	}
	if f, ok := ParseNumeric(v, opt); ok {
		return f, true
	}
	return v, true
}

// headerNames names columns from a header row. Blank names become
// "column_N" and repeats get a ".k" suffix.
func headerNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := map[string]int{}
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n+1)
		} else {
			seen[name] = 0
		}
		out[i] = name
	}
	return out
}

// rowRecord builds a record from one data row; missing trailing cells and
// blank cells are left out.
func rowRecord(names, row []string, opt Options) analysis.Record {
	rec := make(analysis.Record, len(names))
	for j, name := range names {
		if j >= len(row) {
			break
		}
		if v, ok := textValue(row[j], opt); ok {
			rec[name] = v
		}
	}
	return rec
}
