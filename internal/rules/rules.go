package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"

	xxhash "github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/redactyl/alertlens/internal/types"
)

//go:embed rules.yaml
var builtin []byte

// Set is a compiled rule table for classification and severity resolution.
type Set struct {
	Version    string          `yaml:"version"`
	Classifier ClassifierRules `yaml:"classifier"`
	Severity   SeverityRules   `yaml:"severity"`

	digest string
}

// ClassifierRules configures the weighted focus-area classifier.
type ClassifierRules struct {
	DefaultArea        types.FocusArea `yaml:"default_area"`
	DefaultConfidence  float64         `yaml:"default_confidence"`
	ConfidencePerPoint float64         `yaml:"confidence_per_point"`
	MaxConfidence      float64         `yaml:"max_confidence"`
	MaxReasons         int             `yaml:"max_reasons"`
	Areas              []AreaPatterns  `yaml:"areas"`
}

// AreaPatterns is the ordered pattern list of one focus area.
type AreaPatterns struct {
	Area     types.FocusArea   `yaml:"area"`
	Patterns []WeightedPattern `yaml:"patterns"`
}

// WeightedPattern is a keyword or regular expression with an integer weight.
type WeightedPattern struct {
	Match  string `yaml:"match"`
	Weight int    `yaml:"weight"`

	re *regexp.Regexp
}

// IsRegex reports whether the pattern is treated as a regular expression.
func IsRegex(p string) bool { return strings.ContainsAny(p, "*.+") }

// Matches reports whether the pattern occurs in text. text is expected to be
// lowercased already.
func (p WeightedPattern) Matches(text string) bool {
	if p.re != nil {
		return p.re.MatchString(text)
	}
	return strings.Contains(text, p.Match)
}

// SeverityRules configures the alert-type to severity mapping.
type SeverityRules struct {
	Tiers      map[types.FocusArea][]Tier  `yaml:"tiers"`
	Indicators []Indicator                 `yaml:"indicators"`
	Defaults   map[types.FocusArea]Verdict `yaml:"defaults"`
	Fallback   Verdict                     `yaml:"fallback"`

	compiled map[types.FocusArea][]compiledTier
}

// Tier is one severity level with its ordered patterns.
type Tier struct {
	Level    types.Severity `yaml:"level"`
	Patterns []string       `yaml:"patterns"`
}

// Indicator is a cross-area keyword that fixes the severity on its own.
type Indicator struct {
	Keyword string         `yaml:"keyword"`
	Level   types.Severity `yaml:"level"`
	Reason  string         `yaml:"reason"`
}

// Verdict is a severity with its explanation.
type Verdict struct {
	Level  types.Severity `yaml:"level"`
	Reason string         `yaml:"reason"`
}

type compiledTier struct {
	level    types.Severity
	patterns []*regexp.Regexp
}

// TierMatch is a successful tier lookup.
type TierMatch struct {
	Level   types.Severity
	Pattern string
}

// MatchTier tests text against the tiers of area in order and returns the
// first hit.
func (s *Set) MatchTier(area types.FocusArea, text string) (TierMatch, bool) {
	for _, t := range s.Severity.compiled[area] {
		for _, re := range t.patterns {
			if re.MatchString(text) {
				return TierMatch{Level: t.level, Pattern: re.String()[len("(?i)"):]}, true
			}
		}
	}
	return TierMatch{}, false
}

// Digest identifies the rule table contents; it changes whenever the source
// bytes change.
func (s *Set) Digest() string { return s.digest }

// Load parses and compiles a rule table.
func Load(b []byte) (*Set, error) {
	var s Set
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := s.compile(); err != nil {
		return nil, err
	}
	s.digest = strconv.FormatUint(xxhash.Sum64(b), 16)
	return &s, nil
}

// LoadFile reads a rule table from disk.
func LoadFile(path string) (*Set, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Load(b)
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the built-in rule table. It is compiled once and shared.
func Default() *Set {
	defaultOnce.Do(func() {
		s, err := Load(builtin)
		if err != nil {
			panic("rules: built-in table: " + err.Error())
		}
		defaultSet = s
	})
	return defaultSet
}

func (s *Set) compile() error {
	c := &s.Classifier
	if c.DefaultArea == "" {
		c.DefaultArea = types.BusinessControl
	}
	if c.MaxReasons <= 0 {
		c.MaxReasons = 5
	}
	seen := map[types.FocusArea]bool{}
	for i := range c.Areas {
		a := &c.Areas[i]
		if _, ok := types.ParseFocusArea(string(a.Area)); !ok {
			return fmt.Errorf("rules: unknown focus area %q", a.Area)
		}
		if seen[a.Area] {
			return fmt.Errorf("rules: focus area %s declared twice", a.Area)
		}
		seen[a.Area] = true
		for j := range a.Patterns {
			p := &a.Patterns[j]
			p.Match = strings.ToLower(p.Match)
			if p.Weight <= 0 {
				return fmt.Errorf("rules: %s pattern %q: weight must be positive", a.Area, p.Match)
			}
			if IsRegex(p.Match) {
				re, err := regexp.Compile(p.Match)
				if err != nil {
					return fmt.Errorf("rules: %s pattern %q: %w", a.Area, p.Match, err)
				}
				p.re = re
			}
		}
	}

	sv := &s.Severity
	sv.compiled = make(map[types.FocusArea][]compiledTier, len(sv.Tiers))
	for area, tiers := range sv.Tiers {
		var out []compiledTier
		for _, t := range tiers {
			if !t.Level.Valid() {
				return fmt.Errorf("rules: %s tier: invalid level %q", area, t.Level)
			}
			ct := compiledTier{level: t.Level}
			for _, p := range t.Patterns {
				re, err := regexp.Compile("(?i)" + p)
				if err != nil {
					return fmt.Errorf("rules: %s %s pattern %q: %w", area, t.Level, p, err)
				}
				ct.patterns = append(ct.patterns, re)
			}
			out = append(out, ct)
		}
		sv.compiled[area] = out
	}
	for i := range sv.Indicators {
		sv.Indicators[i].Keyword = strings.ToLower(sv.Indicators[i].Keyword)
	}
	if !sv.Fallback.Level.Valid() {
		sv.Fallback = Verdict{Level: types.SevMedium, Reason: "Default severity"}
	}
	return nil
}
