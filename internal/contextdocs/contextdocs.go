// Package contextdocs loads the focus-area reference documents used to prime
// LLM prompts. Documents are read once and then served read-only.
package contextdocs

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/redactyl/alertlens/internal/types"
)

// DefaultSummaryLen bounds CombinedSummary when no length is given.
const DefaultSummaryLen = 4000

const (
	readMoreDir  = "th-context/readmore"
	productDocs  = "product-docs/*.md"
	caseStudies  = "case-studies/**/*.{md,txt}"
	maxCaseStudy = 50_000
)

var readMoreFiles = map[types.FocusArea]string{
	types.BusinessProtection: "ReadMore_BusinessProtection.md",
	types.BusinessControl:    "ReadMore_BusinessControl.md",
	types.AccessGovernance:   "ReadMore_AccessGovernance.md",
	types.TechnicalControl:   "ReadMore_TechnicalControl.md",
	types.JobsControl:        "ReadMore_JobsControl.md",
	types.S4HANAExcellence:   "ReadMore_S4HANAExcellence.md",
}

// Loader reads documents from a docs root with this layout:
//
//	th-context/readmore/ReadMore_<Area>.md
//	product-docs/*.md
//	case-studies/**/*.{md,txt}
//
// A Loader is safe for concurrent use.
type Loader struct {
	fsys fs.FS
	log  zerolog.Logger

	once sync.Once
	docs map[string]string
}

// New returns a Loader rooted at dir. Nothing is read until first use.
func New(dir string, log zerolog.Logger) *Loader {
	return NewFS(os.DirFS(dir), log.With().Str("docs", dir).Logger())
}

// NewFS returns a Loader over fsys.
func NewFS(fsys fs.FS, log zerolog.Logger) *Loader {
	return &Loader{fsys: fsys, log: log}
}

// All returns every loaded document keyed by focus_area_<AREA>,
// product_doc_<name> or case_study_<path>. The map must not be modified.
func (l *Loader) All() map[string]string {
	l.once.Do(l.load)
	return l.docs
}

// FocusAreaContext returns the reference document for area.
func (l *Loader) FocusAreaContext(area types.FocusArea) (string, bool) {
	s, ok := l.All()["focus_area_"+string(area)]
	return s, ok
}

// FocusAreaContexts returns the reference documents keyed by focus area.
func (l *Loader) FocusAreaContexts() map[types.FocusArea]string {
	out := map[types.FocusArea]string{}
	for _, a := range types.FocusAreas {
		if s, ok := l.FocusAreaContext(a); ok {
			out[a] = s
		}
	}
	return out
}

// CombinedSummary returns the opening lines of each focus-area document,
// cut to maxLen characters. A non-positive maxLen uses DefaultSummaryLen.
func (l *Loader) CombinedSummary(maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLen
	}
	var parts []string
	for _, a := range types.FocusAreas {
		if a == types.S4HANAExcellence {
			continue
		}
		doc, ok := l.FocusAreaContext(a)
		if !ok {
			continue
		}
		parts = append(parts, "**"+string(a)+"**: "+strings.Join(leadLines(doc, 2), " "))
	}
	out := strings.Join(parts, "\n\n")
	if utf8.RuneCountInString(out) > maxLen {
		out = string([]rune(out)[:maxLen]) + "..."
	}
	return out
}

// leadLines returns up to n non-blank, non-heading lines after the title.
func leadLines(doc string, n int) []string {
	lines := strings.Split(doc, "\n")
	var out []string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.TrimSpace(line))
		if len(out) >= n {
			break
		}
	}
	return out
}

func (l *Loader) load() {
	l.docs = map[string]string{}
	l.loadFocusAreas()
	l.loadGlob(productDocs, "product_doc_", "product-docs/", 0)
	l.loadGlob(caseStudies, "case_study_", "case-studies/", maxCaseStudy)
	l.log.Debug().Int("documents", len(l.docs)).Msg("context documents loaded")
}

func (l *Loader) loadFocusAreas() {
	if _, err := fs.Stat(l.fsys, readMoreDir); err != nil {
		l.log.Warn().Str("dir", readMoreDir).Msg("focus area context directory not found")
		return
	}
	for _, a := range types.FocusAreas {
		b, err := fs.ReadFile(l.fsys, path.Join(readMoreDir, readMoreFiles[a]))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.log.Error().Err(err).Str("area", string(a)).Msg("read focus area context")
			}
			continue
		}
		l.docs["focus_area_"+string(a)] = string(b)
	}
}

func (l *Loader) loadGlob(pattern, keyPrefix, trim string, maxBytes int) {
	matches, err := doublestar.Glob(l.fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		l.log.Error().Err(err).Str("pattern", pattern).Msg("glob context documents")
		return
	}
	if len(matches) == 0 {
		l.log.Debug().Str("pattern", pattern).Msg("no context documents")
		return
	}
	sort.Strings(matches)
	for _, m := range matches {
		b, err := fs.ReadFile(l.fsys, m)
		if err != nil {
			l.log.Error().Err(err).Str("file", m).Msg("read context document")
			continue
		}
		if maxBytes > 0 && len(b) >= maxBytes {
			continue
		}
		l.docs[keyPrefix+docName(strings.TrimPrefix(m, trim))] = strings.ToValidUTF8(string(b), "")
	}
}

// docName turns a relative document path into a cache key suffix:
// "Fraud Cases/Vendor Bank.md" becomes "fraud_cases_vendor_bank".
func docName(rel string) string {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	rel = strings.ReplaceAll(rel, "/", "_")
	rel = strings.ReplaceAll(rel, " ", "_")
	return strings.ToLower(rel)
}
