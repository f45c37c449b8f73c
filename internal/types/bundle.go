package types

// ColumnType is the inferred kind of a summary table column.
type ColumnType string

const (
	ColNumeric    ColumnType = "numeric"
	ColCurrency   ColumnType = "currency"
	ColDate       ColumnType = "date"
	ColIdentifier ColumnType = "identifier"
	ColText       ColumnType = "text"
	ColPercentage ColumnType = "percentage"
	ColCount      ColumnType = "count"
)

// IsNumericLike reports whether statistics are computed for the type.
func (c ColumnType) IsNumericLike() bool {
	switch c {
	case ColNumeric, ColCurrency, ColCount, ColPercentage:
		return true
	}
	return false
}

// ColumnDescriptor describes one column of a summary table. Statistics are
// nil unless the column held at least one coercible value.
type ColumnDescriptor struct {
	Name         string     `json:"name"`
	OriginalName string     `json:"original_name"`
	SAPField     string     `json:"sap_field,omitempty"`
	DetectedType ColumnType `json:"detected_type"`
	IsKeyMetric  bool       `json:"is_key_metric"`
	SampleValues []string   `json:"sample_values,omitempty"`
	Total        *float64   `json:"total,omitempty"`
	Min          *float64   `json:"min,omitempty"`
	Max          *float64   `json:"max,omitempty"`
	Avg          *float64   `json:"avg,omitempty"`
}

// StructuredTable is the parsed form of a tabular summary artifact.
type StructuredTable struct {
	RowCount    int                `json:"row_count"`
	ColumnCount int                `json:"column_count"`
	Columns     []ColumnDescriptor `json:"columns"`
	TotalAmount *float64           `json:"total_amount,omitempty"`
	TotalCount  int                `json:"total_count"`
	Currency    string             `json:"currency,omitempty"`
	SampleRows  []map[string]any   `json:"sample_rows"`
	// Rows holds every data row; SampleRows is its prefix.
	Rows    []map[string]any `json:"-"`
	RawText string           `json:"-"`
}

// DataRows returns every data row, or the sample rows for a table that was
// decoded rather than built.
func (t *StructuredTable) DataRows() []map[string]any {
	if t == nil {
		return nil
	}
	if len(t.Rows) > 0 {
		return t.Rows
	}
	return t.SampleRows
}

// KeyMetricColumns returns the columns flagged as key metrics.
func (t *StructuredTable) KeyMetricColumns() []ColumnDescriptor {
	if t == nil {
		return nil
	}
	var out []ColumnDescriptor
	for _, c := range t.Columns {
		if c.IsKeyMetric {
			out = append(out, c)
		}
	}
	return out
}

// Parameters are the numeric alert parameters recovered from metadata or code.
type Parameters struct {
	BackDays      *int     `json:"backdays,omitempty"`
	RepetBackDays *int     `json:"repet_backdays,omitempty"`
	Duration      *float64 `json:"duration,omitempty"`
	Threshold     *float64 `json:"threshold,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
}

// Artifact kinds, used as keys of ArtifactBundle.ArtifactFiles.
const (
	KindCode        = "code"
	KindExplanation = "explanation"
	KindMetadata    = "metadata"
	KindSummary     = "summary"
)

// ArtifactBundle is the input for one alert analysis. Text fields are nil when
// the artifact was missing or could not be decoded.
type ArtifactBundle struct {
	AlertID   string `json:"alert_id"`
	AlertName string `json:"alert_name"`
	SourceDir string `json:"source_dir,omitempty"`

	Code        *string `json:"code,omitempty"`
	Explanation *string `json:"explanation,omitempty"`
	Metadata    *string `json:"metadata,omitempty"`
	Summary     *string `json:"summary,omitempty"`

	Table          *StructuredTable  `json:"table,omitempty"`
	CodeSummary    string            `json:"code_summary,omitempty"`
	MetadataFields map[string]string `json:"metadata_fields"`
	Params         Parameters        `json:"params"`
	ArtifactFiles  map[string]string `json:"artifact_files"`
}

// HasMinimum reports whether the bundle carries enough data to analyze.
func (b ArtifactBundle) HasMinimum() bool {
	return nonEmpty(b.Explanation) || nonEmpty(b.Summary)
}

// Text returns the dereferenced value of an optional artifact field.
func Text(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func nonEmpty(p *string) bool { return p != nil && *p != "" }
