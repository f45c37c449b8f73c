package artifacts

import (
	"regexp"
	"sort"
	"strings"

	"github.com/redactyl/alertlens/internal/types"
)

// kinds lists artifact kinds in the order they are loaded.
var kinds = []string{types.KindCode, types.KindExplanation, types.KindMetadata, types.KindSummary}

var prefixes = []struct {
	kind   string
	prefix string
}{
	{types.KindCode, "code_"},
	{types.KindExplanation, "explanation_"},
	{types.KindMetadata, "metadata_"},
	{types.KindMetadata, "metadata "},
	{types.KindMetadata, "metadata"},
	{types.KindSummary, "summary_"},
}

var (
	reExt       = regexp.MustCompile(`(?i)\.(txt|csv|xlsx|xlsm|docx|pdf)$`)
	reFileID    = regexp.MustCompile(`_(\d{6}_\d{6})$`)
	reDirDashed = regexp.MustCompile(`^(\d+_\d+)\s*-\s*(.+)$`)
	reDirUnder  = regexp.MustCompile(`^(\d+_\d+)_(.+)$`)
)

// KindOf returns the artifact kind of a file name, matched case-insensitively
// by prefix.
func KindOf(name string) (kind string, ok bool) {
	lower := strings.ToLower(name)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.kind, true
		}
	}
	return "", false
}

// discover maps each kind to the first matching file name in sorted order.
func discover(names []string) map[string]string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	out := map[string]string{}
	for _, n := range sorted {
		kind, ok := KindOf(n)
		if !ok {
			continue
		}
		if _, seen := out[kind]; !seen {
			out[kind] = n
		}
	}
	return out
}

// ParseFilename recovers the alert id and name from an artifact file name of
// the form Prefix_Alert Name_200025_001372.ext.
func ParseFilename(name string) (id, alertName string, ok bool) {
	stem := reExt.ReplaceAllString(name, "")
	lower := strings.ToLower(stem)
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p.prefix) {
			stem = stem[len(p.prefix):]
			break
		}
	}
	m := reFileID.FindStringSubmatchIndex(stem)
	if m == nil {
		return "", "", false
	}
	id = stem[m[2]:m[3]]
	alertName = strings.TrimSpace(strings.ReplaceAll(strings.Trim(stem[:m[0]], "_"), "_", " "))
	return id, alertName, true
}

// ParseDirName recovers the alert id and name from a directory named
// "200025_001373 - Alert name" or "200025_001373_Alert_Name". Anything else
// yields the raw name for both.
func ParseDirName(dir string) (id, alertName string) {
	if m := reDirDashed.FindStringSubmatch(dir); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	if m := reDirUnder.FindStringSubmatch(dir); m != nil {
		return m[1], strings.ReplaceAll(m[2], "_", " ")
	}
	return dir, dir
}

// identify resolves the bundle identity from file names first, then from the
// directory name.
func identify(dir string, names []string) (id, alertName string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	for _, n := range sorted {
		if _, ok := KindOf(n); !ok {
			continue
		}
		fid, fname, ok := ParseFilename(n)
		if !ok {
			continue
		}
		if id == "" {
			id = fid
		}
		if alertName == "" && fname != "" {
			alertName = fname
		}
		if id != "" && alertName != "" {
			return id, alertName
		}
	}
	did, dname := ParseDirName(dir)
	if id == "" {
		id = did
	}
	if alertName == "" {
		alertName = dname
	}
	return id, alertName
}
