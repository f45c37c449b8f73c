package alertlens

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/redactyl/alertlens/internal/artifacts"
	"github.com/redactyl/alertlens/internal/types"
)

var flagFullCode bool

func init() {
	cmd := &cobra.Command{
		Use:   "inspect <alert-dir>",
		Short: "Show how an alert bundle was parsed",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	rootCmd.AddCommand(cmd)
	cmd.Flags().BoolVar(&flagFullCode, "code", false, "print the full code artifact instead of its summary")
}

func runInspect(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	s, err := resolve(filepath.Dir(abs))
	if err != nil {
		return err
	}
	b, err := artifacts.ReadDir(withLogger(cmd.Context(), s), abs)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagJSON {
		return writeIndentedJSON(w, b)
	}

	fmt.Fprintf(w, "Alert: %s  %s\n", b.AlertID, b.AlertName)
	fmt.Fprintf(w, "Source: %s\n", b.SourceDir)
	printFiles(w, b.ArtifactFiles)
	printParams(w, b)
	if b.Table != nil {
		fmt.Fprintf(w, "\nSummary table: %d rows, %d columns\n", b.Table.RowCount, b.Table.ColumnCount)
		printColumns(w, b.Table)
	}
	code := b.CodeSummary
	if flagFullCode {
		code = types.Text(b.Code)
	}
	if code != "" {
		fmt.Fprintln(w, "\nCode:")
		if !s.noColor {
			code = highlightABAP(code, b.ArtifactFiles[types.KindCode])
		}
		fmt.Fprintln(w, code)
	}
	return nil
}

func printFiles(w io.Writer, files map[string]string) {
	kinds := make([]string, 0, len(files))
	for k := range files {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	fmt.Fprintln(w, "Artifacts:")
	for _, k := range kinds {
		fmt.Fprintf(w, "  %-12s %s\n", k, files[k])
	}
}

func printParams(w io.Writer, b types.ArtifactBundle) {
	p := b.Params
	if p.BackDays != nil {
		fmt.Fprintf(w, "BACKDAYS: %d\n", *p.BackDays)
	}
	if p.RepetBackDays != nil {
		fmt.Fprintf(w, "REPET_BACKDAYS: %d\n", *p.RepetBackDays)
	}
	if p.Duration != nil {
		fmt.Fprintf(w, "DURATION: %g\n", *p.Duration)
	}
	if p.Threshold != nil {
		fmt.Fprintf(w, "THRESHOLD: %g\n", *p.Threshold)
	}
	if p.Amount != nil {
		fmt.Fprintf(w, "AMOUNT: %g\n", *p.Amount)
	}
	if len(b.MetadataFields) == 0 {
		return
	}
	keys := make([]string, 0, len(b.MetadataFields))
	for k := range b.MetadataFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Metadata:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, b.MetadataFields[k])
	}
}

func printColumns(w io.Writer, t *types.StructuredTable) {
	table := tablewriter.NewWriter(w)
	table.Header("COLUMN", "SAP FIELD", "TYPE", "KEY", "TOTAL")
	for _, c := range t.Columns {
		key := ""
		if c.IsKeyMetric {
			key = "yes"
		}
		total := ""
		if c.Total != nil {
			total = fmt.Sprintf("%.2f", *c.Total)
		}
		_ = table.Append(c.Name, c.SAPField, string(c.DetectedType), key, total)
	}
	_ = table.Render()
}

// highlightABAP colours code for a 256-colour terminal. Code artifacts are
// ABAP reports exported as .txt, so the file name only decides for other
// extensions.
func highlightABAP(code, filename string) string {
	var lexer chroma.Lexer
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && ext != ".txt" {
		lexer = lexers.Match(filename)
	}
	if lexer == nil {
		lexer = lexers.Get("abap")
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return buf.String()
}
