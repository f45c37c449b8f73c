package artifacts

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/redactyl/alertlens/internal/types"
)

const (
	headerScanRows   = 5
	sampleRowCount   = 10
	sampleValueCount = 5
	typeSampleSize   = 20
	numericShare     = 0.8
)

var reSAPField = regexp.MustCompile(`\(([A-Z0-9_]+)\)\s*$`)

// Column name vocabularies, matched as lowercase substrings of the column
// header or its embedded SAP field code.
var (
	amountWords  = []string{"amount", "dmbtr", "wrbtr", "dmbe2", "credit", "debit", "balance", "total", "sum"}
	countWords   = []string{"count", "counter", "number of", "qty", "quantity", "anzahl"}
	dateWords    = []string{"date", "datum", "erdat", "budat", "bldat", "time", "period"}
	idWords      = []string{"id", "code", "key", "bukrs", "lifnr", "kunnr", "matnr", "belnr", "account", "hkont"}
	keySAPFields = []string{"dmbtr", "wrbtr", "dmbe2", "balance", "amount", "credit"}
	keyNameWords = []string{"amount", "balance", "credit", "debit", "total", "sum"}
)

// ReadWorkbook parses the first sheet of an .xlsx workbook.
func ReadWorkbook(data []byte) (*types.StructuredTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return BuildTable(rows), nil
}

// ReadCSV parses delimited text into a table. It reports false when the text
// does not look tabular (fewer than two columns or no data rows).
func ReadCSV(text string) (*types.StructuredTable, bool) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = sniffDelimiter(text)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	rows, err := r.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil, false
	}
	t := BuildTable(rows)
	if t.ColumnCount < 2 || t.RowCount == 0 {
		return nil, false
	}
	return t, true
}

func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		line = text[:i]
	}
	best, n := ',', strings.Count(line, ",")
	for _, d := range []rune{';', '\t'} {
		if c := strings.Count(line, string(d)); c > n {
			best, n = d, c
		}
	}
	return best
}

// BuildTable infers the header, column types and aggregates of a grid of
// cells as read from a spreadsheet.
func BuildTable(rows [][]string) *types.StructuredTable {
	t := &types.StructuredTable{
		Columns:    []types.ColumnDescriptor{},
		SampleRows: []map[string]any{},
	}
	h := headerRow(rows)
	if h >= len(rows) {
		t.RawText = renderRaw(t, nil, nil)
		return t
	}

	width := 0
	for _, r := range rows[h:] {
		if len(r) > width {
			width = len(r)
		}
	}
	var data [][]string
	for _, r := range rows[h+1:] {
		if !isBlank(r) {
			data = append(data, pad(r, width))
		}
	}
	names := columnNames(pad(rows[h], width))

	var keep []int
	for j := 0; j < width; j++ {
		for _, r := range data {
			if strings.TrimSpace(r[j]) != "" {
				keep = append(keep, j)
				break
			}
		}
	}

	t.RowCount = len(data)
	t.TotalCount = len(data)
	var total float64
	for _, j := range keep {
		values := columnValues(data, j)
		c := analyzeColumn(names[j], values)
		t.Columns = append(t.Columns, c)

		lower := strings.ToLower(c.OriginalName)
		if c.DetectedType == types.ColText && (strings.Contains(lower, "currency") || strings.Contains(lower, "waers")) {
			if m := mode(values); m != "" {
				t.Currency = m
			}
		}
		if c.IsKeyMetric && (c.DetectedType == types.ColCurrency || c.DetectedType == types.ColNumeric) && c.Total != nil {
			total += *c.Total
		}
	}
	t.ColumnCount = len(t.Columns)
	if total > 0 {
		t.TotalAmount = &total
	}

	t.Rows = make([]map[string]any, 0, len(data))
	for _, r := range data {
		row := map[string]any{}
		for k, j := range keep {
			v := strings.TrimSpace(r[j])
			if v == "" {
				continue
			}
			row[t.Columns[k].OriginalName] = cellValue(t.Columns[k].DetectedType, v)
		}
		t.Rows = append(t.Rows, row)
	}
	t.SampleRows = t.Rows[:min(len(t.Rows), sampleRowCount)]
	t.RawText = renderRaw(t, keep, data)
	return t
}

// headerRow scans the first rows for the header: a "Data" marker row makes
// the next row the header, otherwise the first row with more than three
// non-empty cells wins.
func headerRow(rows [][]string) int {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		r := rows[i]
		if len(r) > 0 && strings.EqualFold(strings.TrimSpace(r[0]), "data") {
			return i + 1
		}
		filled := 0
		for _, c := range r {
			if strings.TrimSpace(c) != "" {
				filled++
			}
		}
		if filled > 3 {
			return i
		}
	}
	return 0
}

func columnNames(header []string) []string {
	seen := map[string]int{}
	out := make([]string, len(header))
	for j, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", j)
		}
		if n := seen[name]; n > 0 {
			seen[name]++
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		out[j] = name
	}
	return out
}

func analyzeColumn(original string, values []string) types.ColumnDescriptor {
	c := types.ColumnDescriptor{Name: original, OriginalName: original, DetectedType: types.ColText}
	if m := reSAPField.FindStringSubmatch(original); m != nil {
		c.SAPField = m[1]
		c.Name = strings.TrimSpace(reSAPField.ReplaceAllString(original, ""))
	}

	var present []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return c
	}
	c.SampleValues = present[:min(sampleValueCount, len(present))]
	c.DetectedType = DetectColumnType(original, c.SAPField, present)
	c.IsKeyMetric = IsKeyMetric(original, c.SAPField, c.DetectedType)

	if c.DetectedType.IsNumericLike() {
		var n int
		var sum, lo, hi float64
		for _, v := range present {
			f, ok := coerce(v)
			if !ok {
				continue
			}
			if n == 0 || f < lo {
				lo = f
			}
			if n == 0 || f > hi {
				hi = f
			}
			sum += f
			n++
		}
		if n > 0 {
			avg := sum / float64(n)
			c.Total, c.Min, c.Max, c.Avg = &sum, &lo, &hi, &avg
		}
	}
	return c
}

// DetectColumnType applies the keyword rules in priority order and falls
// back to sampling the values.
func DetectColumnType(name, sapField string, values []string) types.ColumnType {
	col := strings.ToLower(name)
	sap := strings.ToLower(sapField)
	hit := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(col, w) || strings.Contains(sap, w) {
				return true
			}
		}
		return false
	}

	switch {
	case hit(amountWords):
		return types.ColCurrency
	case hit(countWords):
		return types.ColCount
	case strings.Contains(col, "%") || strings.Contains(col, "percent") || strings.Contains(col, "rate"):
		return types.ColPercentage
	case hit(dateWords):
		return types.ColDate
	case hit(idWords):
		return types.ColIdentifier
	case strings.Contains(col, "currency") || strings.Contains(sap, "waers"):
		return types.ColText
	}

	sample := values[:min(typeSampleSize, len(values))]
	if len(sample) == 0 {
		return types.ColText
	}
	numeric := 0
	for _, v := range sample {
		if _, ok := coerce(v); ok {
			numeric++
		}
	}
	if float64(numeric)/float64(len(sample)) >= numericShare {
		return types.ColNumeric
	}
	return types.ColText
}

// IsKeyMetric reports whether a column carries a headline amount.
func IsKeyMetric(name, sapField string, t types.ColumnType) bool {
	if t != types.ColCurrency && t != types.ColNumeric && t != types.ColCount {
		return false
	}
	sap := strings.ToLower(sapField)
	for _, f := range keySAPFields {
		if sap != "" && strings.Contains(sap, f) {
			return true
		}
	}
	col := strings.ToLower(name)
	for _, w := range keyNameWords {
		if strings.Contains(col, w) {
			return true
		}
	}
	return false
}

// coerce parses a cell as a number after removing thousands separators and
// minus signs.
func coerce(v string) (float64, bool) {
	s := strings.NewReplacer(",", "", "-", "").Replace(strings.TrimSpace(v))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// cellValue keeps numbers of numeric-like columns as float64 with their sign.
func cellValue(t types.ColumnType, v string) any {
	if !t.IsNumericLike() {
		return v
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return v
	}
	return f
}

// mode returns the most frequent non-empty value; ties go to the smallest.
func mode(values []string) string {
	counts := map[string]int{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			counts[v]++
		}
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := ""
	for _, k := range keys {
		if best == "" || counts[k] > counts[best] {
			best = k
		}
	}
	return best
}

func columnValues(data [][]string, j int) []string {
	out := make([]string, len(data))
	for i, r := range data {
		out[i] = r[j]
	}
	return out
}

func pad(r []string, width int) []string {
	if len(r) >= width {
		return r[:width]
	}
	out := make([]string, width)
	copy(out, r)
	return out
}

func isBlank(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// renderRaw produces the text form of a table used as the summary artifact
// and in prompts.
func renderRaw(t *types.StructuredTable, keep []int, data [][]string) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	b.WriteString("=== Summary Data ===\n")
	fmt.Fprintf(&b, "Rows: %d, Columns: %d\n", t.RowCount, t.ColumnCount)

	b.WriteString("\nColumn Analysis:\n")
	for _, c := range t.Columns {
		var marker, sap, stats string
		if c.IsKeyMetric {
			marker = "[KEY]"
		}
		if c.SAPField != "" {
			sap = " (" + c.SAPField + ")"
		}
		if c.Total != nil {
			stats = p.Sprintf(" | Total: %.2f", *c.Total)
		}
		fmt.Fprintf(&b, "  - %s%s: %s%s%s\n", c.Name, sap, c.DetectedType, marker, stats)
	}
	if t.TotalAmount != nil {
		var cur string
		if t.Currency != "" {
			cur = " " + t.Currency
		}
		b.WriteString(p.Sprintf("\nTotal Amount: %.2f%s\n", *t.TotalAmount, cur))
	}

	b.WriteString("\nSample Data (first 10 rows):\n")
	if len(data) == 0 || len(keep) == 0 {
		b.WriteString("(no rows)\n")
		return b.String()
	}
	tw := tablewriter.NewTable(&b)
	header := make([]any, len(keep))
	for k := range keep {
		header[k] = t.Columns[k].OriginalName
	}
	tw.Header(header...)
	for i := 0; i < len(data) && i < sampleRowCount; i++ {
		row := make([]string, len(keep))
		for k, j := range keep {
			row[k] = strings.TrimSpace(data[i][j])
		}
		_ = tw.Append(row)
	}
	_ = tw.Render()
	return b.String()
}
