package parser

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

// Options controls how text cells become record values.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the extension and header line.
	Delimiter rune
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
	// XLSX sheet selection; SheetIndex is 1-based and used when SheetName is empty.
	SheetName  string
	SheetIndex int
}

// Loader reads a file into records.
type Loader interface {
	CanLoad(filename string) bool
	Load(path string, opt Options) ([]analysis.Record, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// LoadFile selects a loader based on filename.
func LoadFile(path string, opt Options) ([]analysis.Record, error) {
	for _, l := range registry {
		if l.CanLoad(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(jsonLoader{})
	Register(csvLoader{})
	Register(xlsxLoader{})
}

// ErrUnsupported indicates a format is not supported yet.
var ErrUnsupported = errors.New("unsupported input format")
