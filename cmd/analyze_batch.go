package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
	"github.com/KaramelBytes/corrmatrix/internal/parser"
	"github.com/KaramelBytes/corrmatrix/internal/utils"
)

var (
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Compute correlation matrices for multiple JSON/CSV/TSV/XLSX files",
	Long: `Expand each argument as a glob and compute one correlation matrix per file.
With --out-dir each result is written to <name>.corr.<ext>; otherwise results are printed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		popt, err := parserOptions()
		if err != nil {
			return err
		}
		opt := currentConfig().AnalysisOptions()
		if cmd.Flags().Changed("min-periods") {
			opt.MinPeriods = anaMinPeriods
		}
		if cmd.Flags().Changed("bool-numeric") {
			opt.BoolAsNumeric = anaBoolNum
		}
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return err
			}
		}

		// Results go to stdout; progress and notices to stderr so printed
		// results stay machine-readable.
		out, status := cmd.OutOrStdout(), cmd.ErrOrStderr()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(status, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			recs, err := parser.LoadFile(path, popt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			res, err := analysis.Analyze(recs, opt)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			body, err := renderResult(res, anaFormat, anaTop)
			if err != nil {
				return err
			}
			logger.Debug().Str("file", path).Int("rows", res.Rows).Int("columns", res.Columns).Msg("batch item analyzed")

			if abOutDir == "" {
				fmt.Fprint(out, string(body))
				continue
			}
			ext := formatExt(anaFormat)
			target := uniqueOutputPath(abOutDir, path, ext)
			if target != filepath.Join(abOutDir, outputBase(path)+".corr"+ext) && !abQuiet {
				fmt.Fprintf(status, "⚠ Detected existing result, writing to %s to avoid overwrite.\n", filepath.Base(target))
			}
			if err := utils.SafeWriteFile(target, body); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(status, "✓ Wrote %s\n", target)
			}
		}
		return nil
	},
}

// expandInputs resolves globs and literal paths, deduplicated and sorted.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

func outputBase(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func formatExt(format string) string {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return ".yaml"
	case "markdown", "md":
		return ".md"
	default:
		return ".json"
	}
}

// uniqueOutputPath appends __2, __3... when a result with the same base name exists.
func uniqueOutputPath(dir, input, ext string) string {
	base := outputBase(input)
	cand := filepath.Join(dir, base+".corr"+ext)
	for idx := 2; ; idx++ {
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
		cand = filepath.Join(dir, fmt.Sprintf("%s__%d.corr%s", base, idx, ext))
	}
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	f := analyzeBatchCmd.Flags()
	f.StringVar(&abOutDir, "out-dir", "", "directory to write one result file per input")
	f.BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	f.StringVarP(&anaFormat, "format", "f", "json", "output format: json|yaml|markdown")
	f.StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	f.StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	f.IntVar(&anaMaxRows, "max-rows", 0, "maximum data rows to read per CSV/XLSX file (0 = unlimited)")
	f.StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	f.IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	f.IntVar(&anaMinPeriods, "min-periods", 2, "minimum paired observations per coefficient (overrides config)")
	f.BoolVar(&anaBoolNum, "bool-numeric", false, "treat true/false as 1/0 (overrides config)")
	f.IntVar(&anaTop, "top", 10, "markdown: number of strongest pairs to list (0 = all)")
}
