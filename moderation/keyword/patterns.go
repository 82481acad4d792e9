package keyword

import (
	"fmt"
	"regexp"
	"strings"
)

// Ordered set of compiled content rules. Read-only once constructed, and safe for concurrent use.
type PatternSet struct {
	patterns       []Pattern
	compiled       []*regexp.Regexp
	foldDiacritics bool
}

type Option func(*PatternSet)

// Folds both rules and message text with FoldText before matching. Raw regex rules are not folded.
func WithFoldDiacritics() Option {
	return func(ps *PatternSet) {
		ps.foldDiacritics = true
	}
}

func NewPatternSet(patterns []Pattern, opts ...Option) (*PatternSet, error) {
	ps := &PatternSet{
		patterns: make([]Pattern, len(patterns)),
		compiled: make([]*regexp.Regexp, 0, len(patterns)),
	}
	copy(ps.patterns, patterns)
	for _, opt := range opts {
		opt(ps)
	}
	for i, p := range ps.patterns {
		re, err := compilePattern(p, ps.foldDiacritics)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (%s): %w", i, p, err)
		}
		ps.compiled = append(ps.compiled, re)
	}
	return ps, nil
}

// Like NewPatternSet, but panics on error. Intended for static rule lists.
func MustNewPatternSet(patterns []Pattern, opts ...Option) *PatternSet {
	ps, err := NewPatternSet(patterns, opts...)
	if err != nil {
		panic(err)
	}
	return ps
}

func compilePattern(p Pattern, fold bool) (*regexp.Regexp, error) {
	if strings.TrimSpace(p.Text) == "" {
		return nil, fmt.Errorf("%w: empty %q rule", ErrInvalidPattern, p.Kind)
	}
	text := p.Text
	if fold && p.Kind != KindRegex {
		text = FoldText(text)
	}

	var expr string
	switch p.Kind {
	case KindWord:
		expr = `(?i)\b` + regexp.QuoteMeta(text) + `\b`
	case KindPhrase:
		expr = `(?i)` + regexp.QuoteMeta(text)
	case KindRegex:
		expr = `(?i)` + text
	default:
		return nil, fmt.Errorf("%w: unknown rule kind %q", ErrInvalidPattern, p.Kind)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}
	return re, nil
}

// Returns true if any rule matches the text.
func (ps *PatternSet) Matches(text string) bool {
	_, ok := ps.Match(text)
	return ok
}

// Returns the first rule (in configured order) which matches the text.
func (ps *PatternSet) Match(text string) (Pattern, bool) {
	if text == "" {
		return Pattern{}, false
	}
	if ps.foldDiacritics {
		text = FoldText(text)
	}
	for i, re := range ps.compiled {
		if re.MatchString(text) {
			return ps.patterns[i], true
		}
	}
	return Pattern{}, false
}

func (ps *PatternSet) Len() int {
	return len(ps.patterns)
}

// Returns a copy of the configured rules.
func (ps *PatternSet) Patterns() []Pattern {
	out := make([]Pattern, len(ps.patterns))
	copy(out, ps.patterns)
	return out
}
