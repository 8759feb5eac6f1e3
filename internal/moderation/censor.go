// Package moderation masks configured words in chat text before it is
// broadcast to a room.
package moderation

import (
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"
)

// DefaultReplacement masks every rune of a censored word.
const DefaultReplacement = '*'

// Censor matches a fixed word list case-insensitively, ignoring punctuation
// inside words, and masks every match.
type Censor struct {
	matcher     *goahocorasick.Machine
	replacement rune
}

// textMapping keeps the input index of every normalized rune.
type textMapping struct {
	normalized []rune
	origIdx    []int
}

// NewCensor builds the automaton for words. Blank entries are skipped; with
// no usable word the returned Censor leaves text unchanged.
func NewCensor(words []string, replacement rune) (*Censor, error) {
	if replacement == 0 {
		replacement = DefaultReplacement
	}

	unique := lo.Uniq(lo.FilterMap(words, func(word string, _ int) (string, bool) {
		normalized := string(normalizeRunes([]rune(strings.TrimSpace(word))))
		return normalized, normalized != ""
	}))
	patterns := lo.Map(unique, func(word string, _ int) []rune { return []rune(word) })
	if len(patterns) == 0 {
		return &Censor{replacement: replacement}, nil
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Censor{matcher: m, replacement: replacement}, nil
}

// Censor returns text with every censored word masked. Spacing and
// punctuation outside a match are preserved.
func (c *Censor) Censor(text string) string {
	if c == nil || c.matcher == nil {
		return text
	}

	mapping := normalize(text)
	if len(mapping.normalized) == 0 {
		return text
	}

	terms := c.matcher.MultiPatternSearch(mapping.normalized, false)
	if len(terms) == 0 {
		return text
	}

	out := []rune(text)
	for _, term := range terms {
		start := term.Pos
		end := start + len(term.Word)
		if start < 0 || end > len(mapping.origIdx) {
			continue
		}
		for i := mapping.origIdx[start]; i <= mapping.origIdx[end-1]; i++ {
			out[i] = c.replacement
		}
	}
	return string(out)
}

func normalize(input string) textMapping {
	runes := []rune(input)
	mapping := textMapping{
		normalized: make([]rune, 0, len(runes)),
		origIdx:    make([]int, 0, len(runes)),
	}
	for i, r := range runes {
		if unicode.IsPunct(r) {
			continue
		}
		mapping.normalized = append(mapping.normalized, unicode.ToLower(r))
		mapping.origIdx = append(mapping.origIdx, i)
	}
	return mapping
}

func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if unicode.IsPunct(r) {
			continue
		}
		out = append(out, unicode.ToLower(r))
	}
	return out
}
