package contextdocs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redactyl/alertlens/internal/types"
)

func docsFS() fstest.MapFS {
	return fstest.MapFS{
		"th-context/readmore/ReadMore_BusinessProtection.md": {Data: []byte("# Business Protection\n\n## Overview\nDetects fraud.\n\nCovers theft.\nIgnored third line.\n")},
		"th-context/readmore/ReadMore_JobsControl.md":        {Data: []byte("# Jobs\nBatch job health.\n")},
		"th-context/readmore/ReadMore_S4HANAExcellence.md":   {Data: []byte("# S4\nMigration readiness.\n")},
		"product-docs/User Guide.md":                         {Data: []byte("guide")},
		"product-docs/notes.txt":                             {Data: []byte("not markdown")},
		"case-studies/Fraud Cases/Vendor Bank.md":            {Data: []byte("case")},
		"case-studies/top.txt":                               {Data: []byte("top")},
		"case-studies/huge.md":                               {Data: []byte(strings.Repeat("x", maxCaseStudy))},
		"case-studies/image.png":                             {Data: []byte{0x89}},
	}
}

func TestLoader_All(t *testing.T) {
	l := NewFS(docsFS(), zerolog.Nop())
	got := l.All()

	assert.Contains(t, got, "focus_area_BUSINESS_PROTECTION")
	assert.Contains(t, got, "focus_area_JOBS_CONTROL")
	assert.Equal(t, "guide", got["product_doc_user_guide"])
	assert.NotContains(t, got, "product_doc_notes")
	assert.Equal(t, "case", got["case_study_fraud_cases_vendor_bank"])
	assert.Equal(t, "top", got["case_study_top"])
	assert.NotContains(t, got, "case_study_huge", "documents of 50KB or more are skipped")
	assert.NotContains(t, got, "case_study_image")
	assert.Len(t, got, 6)
}

func TestLoader_FocusAreaContext(t *testing.T) {
	l := NewFS(docsFS(), zerolog.Nop())
	s, ok := l.FocusAreaContext(types.JobsControl)
	require.True(t, ok)
	assert.Contains(t, s, "Batch job health")

	_, ok = l.FocusAreaContext(types.AccessGovernance)
	assert.False(t, ok)

	assert.Len(t, l.FocusAreaContexts(), 3)
}

func TestLoader_CombinedSummary(t *testing.T) {
	l := NewFS(docsFS(), zerolog.Nop())
	got := l.CombinedSummary(0)
	assert.Equal(t, "**BUSINESS_PROTECTION**: Detects fraud. Covers theft.\n\n**JOBS_CONTROL**: Batch job health.", got)
	assert.NotContains(t, got, "S4HANA", "only the five scored areas are summarised")

	short := l.CombinedSummary(10)
	assert.Equal(t, "**BUSINESS...", short)
}

func TestLoader_MissingDirectories(t *testing.T) {
	l := New(t.TempDir(), zerolog.Nop())
	assert.Empty(t, l.All())
	assert.Equal(t, "", l.CombinedSummary(100))
}

func TestLoader_FromDisk(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "th-context", "readmore", "ReadMore_AccessGovernance.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("# AG\nRoles and SoD.\n"), 0o644))

	s, ok := New(dir, zerolog.Nop()).FocusAreaContext(types.AccessGovernance)
	require.True(t, ok)
	assert.Contains(t, s, "Roles and SoD.")
}

func TestLoader_ConcurrentReads(t *testing.T) {
	l := NewFS(docsFS(), zerolog.Nop())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.CombinedSummary(0)
			_, _ = l.FocusAreaContext(types.BusinessProtection)
		}()
	}
	wg.Wait()
	assert.Len(t, l.All(), 6)
}

func TestDocName(t *testing.T) {
	assert.Equal(t, "fraud_cases_vendor_bank", docName("Fraud Cases/Vendor Bank.md"))
	assert.Equal(t, "readme", docName("README.txt"))
}
