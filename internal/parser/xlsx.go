package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(path string, opt Options) ([]analysis.Record, error) {
	return ReadXLSX(path, opt)
}

type xlsxWorkbook struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRels struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (x xlsxText) String() string {
	var b strings.Builder
	b.WriteString(x.T)
	for _, r := range x.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxSST struct {
	Items []xlsxText `xml:"si"`
}

type xlsxCell struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	V      string   `xml:"v"`
	Inline xlsxText `xml:"is"`
}

type xlsxSheet struct {
	Rows []struct {
		Cells []xlsxCell `xml:"c"`
	} `xml:"sheetData>row"`
}

// ReadXLSX reads one worksheet: opt.SheetName when set, otherwise the sheet
// at 1-based position opt.SheetIndex (default 1) in workbook order. The first
// row is the header.
func ReadXLSX(file string, opt Options) ([]analysis.Record, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := readZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, err
	}
	var rels xlsxRels
	if err := readZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	var sst xlsxSST
	if err := readZipXML(&zr.Reader, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	var names []string
	for _, sh := range wb.Sheets {
		names = append(names, sh.Name)
	}
	sel := -1
	if opt.SheetName != "" {
		for i, sh := range wb.Sheets {
			if strings.EqualFold(sh.Name, opt.SheetName) {
				sel = i
				break
			}
		}
		if sel < 0 {
			return nil, fmt.Errorf("sheet '%s' not found in workbook '%s'.\nAvailable sheets: %s",
				opt.SheetName, filepath.Base(file), strings.Join(names, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(wb.Sheets) {
			return nil, fmt.Errorf("sheet index %d not found in workbook '%s' (%d sheets).\nAvailable sheets: %s",
				idx, filepath.Base(file), len(wb.Sheets), strings.Join(names, ", "))
		}
		sel = idx - 1
	}
	target := fmt.Sprintf("xl/worksheets/sheet%d.xml", sel+1)
	for _, r := range rels.Rels {
		if r.ID == wb.Sheets[sel].RID {
			target = normalizeRelPath(r.Target)
			break
		}
	}

	if !hasZipMember(&zr.Reader, target) {
		return nil, fmt.Errorf("worksheet %s for sheet '%s' missing from workbook '%s'",
			target, wb.Sheets[sel].Name, filepath.Base(file))
	}
	var sheet xlsxSheet
	if err := readZipXML(&zr.Reader, target, &sheet); err != nil {
		return nil, err
	}
	shared := make([]string, len(sst.Items))
	for i, it := range sst.Items {
		shared[i] = it.String()
	}

	out := []analysis.Record{}
	var header []string
	for _, row := range sheet.Rows {
		if header == nil {
			var cells []string
			for pos, c := range row.Cells {
				j := cellColumn(c, pos)
				for len(cells) <= j {
					cells = append(cells, "")
				}
				cells[j] = cellText(c, shared)
			}
			header = headerNames(cells)
			continue
		}
		if opt.MaxRows > 0 && len(out) >= opt.MaxRows {
			break
		}
		rec := make(analysis.Record, len(header))
		for pos, c := range row.Cells {
			j := cellColumn(c, pos)
			if j >= len(header) {
				continue
			}
			if v, ok := cellValue(c, shared, opt); ok {
				rec[header[j]] = v
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func cellColumn(c xlsxCell, pos int) int {
	if j := colIndexFromRef(c.Ref); j >= 0 {
		return j
	}
	return pos
}

func cellText(c xlsxCell, shared []string) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.V))
		if err != nil || i < 0 || i >= len(shared) {
			return ""
		}
		return shared[i]
	case "inlineStr":
		return c.Inline.String()
	case "e":
		return ""
	default:
		return c.V
	}
}

// cellValue converts a data cell. Typed numbers and booleans keep their
// type; text goes through the same rules as CSV cells.
func cellValue(c xlsxCell, shared []string, opt Options) (any, bool) {
	switch c.Type {
	case "", "n":
		f, err := strconv.ParseFloat(strings.TrimSpace(c.V), 64)
		if err != nil {
			return textValue(c.V, opt)
		}
		return f, true
	case "b":
		return strings.TrimSpace(c.V) == "1", true
	default:
		return textValue(cellText(c, shared), opt)
	}
}

// readZipXML decodes one archive member into v. A missing member is not an
// error; v is left zero.
func readZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		if err := xml.NewDecoder(rc).Decode(v); err != nil && err != io.EOF {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		return nil
	}
	return nil
}

func hasZipMember(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// colIndexFromRef maps "C12" to 2.
func colIndexFromRef(ref string) int {
	idx := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		idx = idx*26 + int(r-'A'+1)
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets, which may carry a leading
// slash or be relative to xl/, into archive member names.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
