package parser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

type csvLoader struct{}

func (csvLoader) CanLoad(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvLoader) Load(path string, opt Options) ([]analysis.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	if opt.Delimiter == 0 {
		head, _ := br.Peek(4096)
		opt.Delimiter = sniffDelimiter(path, head)
	}
	return ReadCSV(br, opt)
}

// ReadCSV reads a header row followed by data rows. Blank cells are left out
// of the record; numeric-looking cells become float64.
func ReadCSV(r io.Reader, opt Options) ([]analysis.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	if opt.Delimiter != 0 {
		cr.Comma = opt.Delimiter
	}
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []analysis.Record{}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := headerNames(header)
	out := []analysis.Record{}
	for {
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(out)+1, err)
		}
		out = append(out, rowRecord(names, row, opt))
	}
	return out, nil
}

// sniffDelimiter picks the most frequent of tab, ';' and ',' in the header
// line. A .tsv extension wins outright.
func sniffDelimiter(path string, head []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	best, bestN := ',', bytes.Count(head, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(head, []byte(string(d))); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
