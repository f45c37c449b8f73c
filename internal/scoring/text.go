package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// numbers formats with thousands separators ("1,943", "$2,000,000.00").
var numbers = message.NewPrinter(language.English)

var (
	reMoneyClean  = regexp.MustCompile(`[$,€£]`)
	reMoneyNumber = regexp.MustCompile(`([\d.]+)\s*([KkMmBb])?`)

	countPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)([\d,]+)\s+(?:records?|items?|entries|rows?|vendors?|customers?|users?)`),
		regexp.MustCompile(`(?i)(?:total|count|found)\s*[:\-]?\s*([\d,]+)`),
	}

	currencyPatterns = []struct {
		re       *regexp.Regexp
		currency string
	}{
		{regexp.MustCompile(`\$\s*([\d,]+(?:\.\d{2})?)\s*([KkMmBb])?`), "USD"},
		{regexp.MustCompile(`USD\s*([\d,]+(?:\.\d{2})?)\s*([KkMmBb])?`), "USD"},
		{regexp.MustCompile(`EUR\s*([\d,]+(?:\.\d{2})?)\s*([KkMmBb])?`), "EUR"},
		{regexp.MustCompile(`([\d,]+(?:\.\d{2})?)\s*(?:dollars?|USD)`), "USD"},
	}

	rePercent = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
)

var suffixMultipliers = map[string]float64{"k": 1e3, "m": 1e6, "b": 1e9}

// ParseMonetaryValue reads an amount such as "$1,250.50", "€3.5M" or "12k".
// Unparseable input yields 0.
func ParseMonetaryValue(s string) float64 {
	if s == "" {
		return 0
	}
	clean := reMoneyClean.ReplaceAllString(s, "")
	if m := reMoneyNumber.FindStringSubmatch(clean); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0
		}
		if mult, ok := suffixMultipliers[strings.ToLower(m[2])]; ok {
			v *= mult
		}
		return v
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(clean), 64)
	if err != nil {
		return 0
	}
	return v
}

// MonetaryValue is an amount found in free text.
type MonetaryValue struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// TextMetrics are the quantities recognised in a free-text summary.
type TextMetrics struct {
	Counts         []int           `json:"counts"`
	MonetaryValues []MonetaryValue `json:"monetary_values"`
	Percentages    []float64       `json:"percentages"`
}

// MaxCount returns the largest count found, or 0.
func (m TextMetrics) MaxCount() int {
	best := 0
	for _, c := range m.Counts {
		best = max(best, c)
	}
	return best
}

// MaxAmount returns the largest monetary value found and its currency.
func (m TextMetrics) MaxAmount() (float64, string) {
	var best MonetaryValue
	for _, v := range m.MonetaryValues {
		if v.Amount > best.Amount {
			best = v
		}
	}
	return best.Amount, best.Currency
}

// ExtractMetricsFromText collects counts, currency amounts and percentages
// from raw summary text. Patterns are applied in a fixed order so the result
// is stable for a given input.
func ExtractMetricsFromText(text string) TextMetrics {
	out := TextMetrics{
		Counts:         []int{},
		MonetaryValues: []MonetaryValue{},
		Percentages:    []float64{},
	}
	for _, re := range countPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			digits := strings.ReplaceAll(m[1], ",", "")
			if digits == "" {
				continue
			}
			if n, err := strconv.Atoi(digits); err == nil {
				out.Counts = append(out.Counts, n)
			}
		}
	}
	for _, p := range currencyPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			raw := m[1]
			if len(m) > 2 {
				raw += m[2]
			}
			if v := ParseMonetaryValue(raw); v > 0 {
				out.MonetaryValues = append(out.MonetaryValues, MonetaryValue{Amount: v, Currency: p.currency})
			}
		}
	}
	for _, m := range rePercent.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			out.Percentages = append(out.Percentages, v)
		}
	}
	return out
}
