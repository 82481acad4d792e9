package keyword

import (
	"errors"
	"fmt"
)

var ErrInvalidPattern = errors.New("invalid content pattern")

const (
	// whole-word match, bounded by `\b` on both sides
	KindWord = "word"
	// unanchored substring match
	KindPhrase = "phrase"
	// raw regular expression, compiled case-insensitive
	KindRegex = "regex"
)

// A single prohibited-content rule. Matching is always case-insensitive.
type Pattern struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

func Word(text string) Pattern {
	return Pattern{Kind: KindWord, Text: text}
}

func Phrase(text string) Pattern {
	return Pattern{Kind: KindPhrase, Text: text}
}

func Regex(expr string) Pattern {
	return Pattern{Kind: KindRegex, Text: expr}
}

func (p Pattern) String() string {
	return fmt.Sprintf("%s:%s", p.Kind, p.Text)
}

// Baseline rule list: spam phrases and profanity as whole words, threats as unanchored substrings.
func DefaultPatterns() []Pattern {
	return []Pattern{
		Word("buy now"),
		Word("free money"),
		Word("work from home"),
		Phrase("threaten"),
		Phrase("kill"),
		Phrase("bomb"),
		Word("fuck"),
		Word("cunt"),
		Word("slur"),
	}
}
