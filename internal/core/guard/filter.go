package guard

import (
	"log/slog"
	"time"
	"unicode"

	"github.com/dlclark/regexp2"
)

const (
	// MaxSpecialCharRatio is the share of disallowed symbols above which a query is blocked.
	MaxSpecialCharRatio = 0.3
	// matchTimeout bounds each pattern evaluation.
	matchTimeout = 100 * time.Millisecond
)

// Block reasons reported by Check.
const (
	ReasonPattern     = "pattern"
	ReasonSpecialChar = "special_characters"
	ReasonRepetition  = "repetition"
)

// injectionPatterns are matched case-insensitively anywhere in the query.
var injectionPatterns = []string{
	`(ignore|disregard)\s+(all\s+)?(the\s+)?(previous|above|all|prior)\s+(instructions|prompts|rules)`,
	`you\s+are\s+now`,
	`new\s+instructions`,
	`system\s+prompt`,
	`forget\s+(everything|all|previous)`,
	`<\|im_start\|>`,
	`<\|im_end\|>`,
	`\[INST\]`,
	`###\s*instruction`,
	`assistant:`,
	`human:`,
}

// repeatPattern matches one character repeated 21 or more times in a row.
const repeatPattern = `(.)\1{20,}`

type rule struct {
	source string
	re     *regexp2.Regexp
}

// Filter is a rule-based prompt-injection classifier. It is immutable after
// construction and safe for concurrent use.
type Filter struct {
	patterns []rule
	repeat   *regexp2.Regexp
	logger   *slog.Logger
}

// NewFilter compiles the built-in rules. extra patterns are appended as-is.
func NewFilter(extra ...string) (*Filter, error) {
	f := &Filter{logger: slog.Default().With("component", "injection_filter")}

	for _, p := range append(append([]string{}, injectionPatterns...), extra...) {
		re, err := regexp2.Compile(p, regexp2.IgnoreCase)
		if err != nil {
			return nil, err
		}
		re.MatchTimeout = matchTimeout
		f.patterns = append(f.patterns, rule{source: p, re: re})
	}

	repeat, err := regexp2.Compile(repeatPattern, regexp2.Singleline)
	if err != nil {
		return nil, err
	}
	repeat.MatchTimeout = matchTimeout
	f.repeat = repeat

	return f, nil
}

// MustNewFilter is NewFilter for the built-in rules, panicking on a compile error.
func MustNewFilter() *Filter {
	f, err := NewFilter()
	if err != nil {
		panic(err)
	}
	return f
}

// IsMalicious reports whether the query should be blocked.
func (f *Filter) IsMalicious(query string) bool {
	_, blocked := f.Check(query)
	return blocked
}

// Check classifies the query and returns which rule blocked it.
// A pattern that times out counts as a match.
func (f *Filter) Check(query string) (reason string, blocked bool) {
	if query == "" {
		return "", false
	}

	for _, r := range f.patterns {
		ok, err := r.re.MatchString(query)
		if err != nil {
			f.logger.Warn("pattern evaluation failed", "pattern", r.source, "err", err)
			return ReasonPattern, true
		}
		if ok {
			return ReasonPattern, true
		}
	}

	if SpecialCharRatio(query) > MaxSpecialCharRatio {
		return ReasonSpecialChar, true
	}

	ok, err := f.repeat.MatchString(query)
	if err != nil {
		f.logger.Warn("repetition check failed", "err", err)
		return ReasonRepetition, true
	}
	if ok {
		return ReasonRepetition, true
	}

	return "", false
}

// SpecialCharRatio is the fraction of characters outside ASCII letters,
// ASCII digits, whitespace, and the punctuation . , ! ? -
func SpecialCharRatio(s string) float64 {
	var total, special int
	for _, r := range s {
		total++
		if !allowed(r) {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}

func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case unicode.IsSpace(r):
		return true
	}
	switch r {
	case '.', ',', '!', '?', '-':
		return true
	}
	return false
}
