// Package artifacts reads the four artifacts of an alert (code, explanation,
// metadata and summary) from a directory or from in-memory content and turns
// them into a types.ArtifactBundle.
//
// Missing, empty or undecodable artifacts are not errors: the corresponding
// bundle field stays nil. Only a missing directory is reported.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/redactyl/alertlens/internal/types"
)

// ErrNotFound is returned when the alert directory does not exist.
var ErrNotFound = errors.New("alert directory not found")

// Limits bounds how much of a single artifact is read.
type Limits struct {
	MaxFileBytes int64
}

// DefaultLimits are used by ReadDir and by a zero Reader.
func DefaultLimits() Limits {
	return Limits{MaxFileBytes: 64 << 20}
}

// Reader loads artifact bundles. The zero value uses DefaultLimits.
type Reader struct {
	Limits Limits
}

// ReadDir reads the bundle in dir with default limits.
func ReadDir(ctx context.Context, dir string) (types.ArtifactBundle, error) {
	var r Reader
	return r.ReadDir(ctx, dir)
}

// Content is an alert supplied as explicit strings rather than files.
type Content struct {
	AlertID     string
	AlertName   string
	Code        *string
	Explanation *string
	Metadata    *string
	Summary     *string
	// Table is an optional pre-parsed summary table.
	Table *types.StructuredTable
}

// ReadContent builds a bundle from explicit content. When a table is given
// without a summary text, the table's text rendering becomes the summary.
func ReadContent(c Content) types.ArtifactBundle {
	b := newBundle(c.AlertID, c.AlertName)
	b.Code = nonEmpty(c.Code)
	b.Explanation = nonEmpty(c.Explanation)
	b.Metadata = nonEmpty(c.Metadata)
	b.Summary = nonEmpty(c.Summary)
	b.Table = c.Table
	if b.Summary == nil && c.Table != nil && c.Table.RawText != "" {
		raw := c.Table.RawText
		b.Summary = &raw
	}
	derive(&b)
	return b
}

// ReadDir discovers and decodes the artifacts in dir.
func (r *Reader) ReadDir(ctx context.Context, dir string) (types.ArtifactBundle, error) {
	log := zerolog.Ctx(ctx).With().Str("dir", dir).Logger()

	fi, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.ArtifactBundle{}, fmt.Errorf("read %s: %w", dir, ErrNotFound)
		}
		return types.ArtifactBundle{}, fmt.Errorf("read %s: %w", dir, err)
	}
	if !fi.IsDir() {
		return types.ArtifactBundle{}, fmt.Errorf("read %s: not a directory: %w", dir, ErrNotFound)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return types.ArtifactBundle{}, fmt.Errorf("list %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	id, name := identify(filepath.Base(filepath.Clean(dir)), names)
	b := newBundle(id, name)
	b.SourceDir = dir

	found := discover(names)
	for _, kind := range kinds {
		fname, ok := found[kind]
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return types.ArtifactBundle{}, err
		}
		path := filepath.Join(dir, fname)
		b.ArtifactFiles[kind] = path

		text, table := r.load(log, path)
		switch kind {
		case types.KindCode:
			b.Code = text
		case types.KindExplanation:
			b.Explanation = text
		case types.KindMetadata:
			b.Metadata = text
		case types.KindSummary:
			b.Summary = text
			b.Table = table
		}
	}
	derive(&b)

	if !b.HasMinimum() {
		log.Warn().Str("alert_id", b.AlertID).Msg("bundle has neither explanation nor summary")
	}
	return b, nil
}

// load decodes one artifact file according to its extension. Tables are
// returned for spreadsheet and CSV inputs.
func (r *Reader) load(log zerolog.Logger, path string) (*string, *types.StructuredTable) {
	limits := r.Limits
	if limits.MaxFileBytes <= 0 {
		limits = DefaultLimits()
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		log.Debug().Str("file", path).Msg("pdf artifacts are recorded but not decoded")
		return nil, nil
	}

	data, err := readBounded(path, limits.MaxFileBytes)
	if err != nil {
		log.Warn().Err(err).Str("file", path).Msg("artifact unreadable")
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	switch ext {
	case ".xlsx", ".xlsm":
		t, err := ReadWorkbook(data)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("spreadsheet unreadable")
			return nil, nil
		}
		return nonEmpty(&t.RawText), t
	case ".docx":
		text, err := ReadDocx(data)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("word document unreadable")
			return nil, nil
		}
		return nonEmpty(&text), nil
	}

	text, enc, ok := Decode(data)
	if !ok {
		log.Warn().Str("file", path).Msg("artifact could not be decoded with any encoding")
		return nil, nil
	}
	log.Debug().Str("file", path).Str("encoding", enc).Msg("artifact decoded")
	if ext == ".csv" {
		if t, ok := ReadCSV(text); ok {
			return nonEmpty(&text), t
		}
	}
	return nonEmpty(&text), nil
}

func readBounded(path string, max int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("artifact exceeds %d bytes", max)
	}
	return data, nil
}

func newBundle(id, name string) types.ArtifactBundle {
	return types.ArtifactBundle{
		AlertID:        id,
		AlertName:      name,
		MetadataFields: map[string]string{},
		ArtifactFiles:  map[string]string{},
	}
}

// derive fills the fields computed from the raw artifacts.
func derive(b *types.ArtifactBundle) {
	if b.Code != nil {
		b.CodeSummary = ExtractCodeSummary(*b.Code)
	}
	if b.Metadata != nil {
		b.MetadataFields = ParseMetadata(*b.Metadata)
		b.Params = ParseParams(*b.Metadata)
	}
	if b.Params.BackDays == nil && b.Code != nil {
		b.Params.BackDays = ParseParams(*b.Code).BackDays
	}
	if b.MetadataFields == nil {
		b.MetadataFields = map[string]string{}
	}
	if b.ArtifactFiles == nil {
		b.ArtifactFiles = map[string]string{}
	}
}

func nonEmpty(p *string) *string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	s := *p
	return &s
}
