package artifacts

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/redactyl/alertlens/internal/ctxparse"
	"github.com/redactyl/alertlens/internal/types"
)

const maxCodeSummary = 500

var codeSummaryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\*\s*Alert Definition\s*:\s*(.+?)(?:\n\*-|\n\*\s*CHANGE)`),
	regexp.MustCompile(`(?is)\*\s*Description\s*:\s*(.+?)(?:\n\*-|\n\*\s*CHANGE)`),
	regexp.MustCompile(`(?is)'Alert Definition:\s*(.+?)(?:\n|')`),
}

var (
	reCommentBreak = regexp.MustCompile(`\n\*\s*`)
	reSpaces       = regexp.MustCompile(`\s+`)

	reKeyValue = regexp.MustCompile(`(\w+)\s*[=:]\s*([^\n]+)`)
	reJSONPair = regexp.MustCompile(`"(\w+)"\s*:\s*"([^"]+)"`)

	// An optional closing quote after the name and opening quote before the
	// value let the same patterns read JSON metadata.
	reBackDays      = regexp.MustCompile(`(?i)\bBACKDAYS"?\s*[=:]\s*"?(\d+)`)
	reRepetBackDays = regexp.MustCompile(`(?i)REPET_BACKDAYS"?\s*[=:]\s*"?(\d+)`)
	reDuration      = regexp.MustCompile(`(?i)DURATION"?\s*[=:]\s*"?(\d+)`)
	reThreshold     = regexp.MustCompile(`(?i)THRESHOLD"?\s*[=:]\s*"?([\d.]+)`)
	reAmount        = regexp.MustCompile(`(?i)AMOUNT"?\s*[=:]\s*"?([\d,.]+)`)
)

// ExtractCodeSummary returns the purpose statement from an ABAP comment
// block ("* Alert Definition: ..." or "* Description: ..."), whitespace
// normalised and cut to 500 characters. It returns "" when none is found.
func ExtractCodeSummary(code string) string {
	for _, re := range codeSummaryPatterns {
		m := re.FindStringSubmatch(code)
		if m == nil {
			continue
		}
		s := strings.TrimSpace(m[1])
		s = reCommentBreak.ReplaceAllString(s, " ")
		s = reSpaces.ReplaceAllString(s, " ")
		return truncateRunes(s, maxCodeSummary)
	}
	return ""
}

// ParseMetadata builds the flat key/value map of a metadata artifact. Lines
// of the form KEY=VALUE or KEY: VALUE and "key":"value" pairs are collected;
// structured JSON or YAML metadata contributes its flattened scalars, which
// take precedence.
func ParseMetadata(text string) map[string]string {
	out := map[string]string{}
	for _, re := range []*regexp.Regexp{reKeyValue, reJSONPair} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			out[strings.TrimSpace(m[1])] = strings.TrimSpace(m[2])
		}
	}
	if fields, ok := ctxparse.Flatten([]byte(text)); ok {
		for k, v := range fields {
			out[k] = v
		}
	}
	return out
}

// ParseParams extracts the typed numeric alert parameters from text.
func ParseParams(text string) types.Parameters {
	var p types.Parameters
	if v, ok := matchInt(reBackDays, text); ok {
		p.BackDays = &v
	}
	if v, ok := matchInt(reRepetBackDays, text); ok {
		p.RepetBackDays = &v
	}
	if v, ok := matchFloat(reDuration, text); ok {
		p.Duration = &v
	}
	if v, ok := matchFloat(reThreshold, text); ok {
		p.Threshold = &v
	}
	if v, ok := matchFloat(reAmount, text); ok {
		p.Amount = &v
	}
	return p
}

func matchInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m[1])
	return v, err == nil
}

func matchFloat(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	return v, err == nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
