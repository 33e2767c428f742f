package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
	"github.com/KaramelBytes/corrmatrix/internal/parser"
	"github.com/KaramelBytes/corrmatrix/internal/utils"
)

var (
	anaOutputPath string
	anaFormat     string
	anaDelimiter  string
	anaDecimal    string
	anaThousands  string
	anaMaxRows    int
	anaSheetName  string
	anaSheetIndex int
	anaMinPeriods int
	anaBoolNum    bool
	anaTop        int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file|->",
	Short: "Compute the pruned correlation matrix of a JSON, CSV/TSV or XLSX file",
	Long: `Compute the pruned Pearson correlation matrix of a record file.
JSON input is an array of objects or {"data": [...]}; '-' reads JSON from stdin.
CSV/TSV/XLSX use the first row as the header.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		popt, err := parserOptions()
		if err != nil {
			return err
		}
		opt := c.AnalysisOptions()
		if cmd.Flags().Changed("min-periods") {
			opt.MinPeriods = anaMinPeriods
		}
		if cmd.Flags().Changed("bool-numeric") {
			opt.BoolAsNumeric = anaBoolNum
		}

		var recs []analysis.Record
		if args[0] == "-" {
			recs, err = parser.ReadJSON(cmd.InOrStdin())
		} else {
			recs, err = parser.LoadFile(args[0], popt)
		}
		if err != nil {
			return err
		}
		res, err := analysis.Analyze(recs, opt)
		if err != nil {
			return err
		}
		logger.Debug().
			Int("rows", res.Rows).
			Int("columns", res.Columns).
			Strs("pruned", res.Pruned).
			Msg("analysis complete")

		out, err := renderResult(res, anaFormat, anaTop)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote correlation matrix to %s\n", anaOutputPath)
			return nil
		}
		_, err = io.WriteString(cmd.OutOrStdout(), string(out))
		return err
	},
}

func parserOptions() (parser.Options, error) {
	opt := parser.Options{MaxRows: anaMaxRows, SheetName: anaSheetName, SheetIndex: anaSheetIndex}
	switch anaDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", anaDelimiter)
	}
	switch strings.ToLower(strings.TrimSpace(anaDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", anaDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(anaThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", anaThousands)
	}
	return opt, nil
}

func renderResult(res *analysis.Result, format string, top int) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		b, err := utils.PrettyJSON(res.Matrix)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml", "yml":
		b, err := yaml.Marshal(res.Matrix.Map())
		if err != nil {
			return nil, fmt.Errorf("marshal yaml: %w", err)
		}
		return b, nil
	case "markdown", "md":
		return []byte(res.Markdown(top)), nil
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use json|yaml|markdown)", format)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the result")
	analyzeCmd.Flags().StringVarP(&anaFormat, "format", "f", "json", "output format: json|yaml|markdown")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
	analyzeCmd.Flags().IntVar(&anaMaxRows, "max-rows", 0, "maximum data rows to read from CSV/XLSX (0 = unlimited)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to analyze")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeCmd.Flags().IntVar(&anaMinPeriods, "min-periods", 2, "minimum paired observations per coefficient (overrides config)")
	analyzeCmd.Flags().BoolVar(&anaBoolNum, "bool-numeric", false, "treat true/false as 1/0 (overrides config)")
	analyzeCmd.Flags().IntVar(&anaTop, "top", 10, "markdown: number of strongest pairs to list (0 = all)")
}
