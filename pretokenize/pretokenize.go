// Package pretokenize splits raw text into the candidate sub-word strings that
// byte pair merges are learned over. Special tokens are kept whole; everything
// else is scanned with the GPT-2 pretokenizer pattern.
package pretokenize

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"
)

// Pattern is the GPT-2 byte-level pretokenizer: contractions, letter runs,
// digit runs and symbol runs each with an optional leading space, trailing
// whitespace, then any other whitespace. Earlier alternatives win.
const Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

// Segment is a piece of text that is either a special token or ordinary text.
type Segment struct {
	Special bool
	Text    string
}

type Pretokenizer struct {
	specials []string
	re       *regexp2.Regexp
}

// New returns a Pretokenizer that treats each of specials as an atom.
// Duplicates and empty strings are ignored.
func New(specials []string) (*Pretokenizer, error) {
	re, err := regexp2.Compile(Pattern, regexp2.None)
	if err != nil {
		return nil, err
	}

	var unique []string
	for _, s := range specials {
		if s != "" && !slices.Contains(unique, s) {
			unique = append(unique, s)
		}
	}

	// longest first so a special that prefixes another cannot match early
	slices.SortStableFunc(unique, func(a, b string) int {
		return cmp.Compare(len(b), len(a))
	})

	return &Pretokenizer{specials: unique, re: re}, nil
}

// Specials returns the special tokens in match priority order.
func (p *Pretokenizer) Specials() []string {
	return slices.Clone(p.specials)
}

// Split cuts text at every special token occurrence. Concatenating the
// returned segments reproduces text exactly.
func (p *Pretokenizer) Split(text string) []Segment {
	return slices.Collect(func(yield func(Segment) bool) {
		p.split(text, func(special bool, s string) bool {
			return yield(Segment{Special: special, Text: s})
		})
	})
}

func (p *Pretokenizer) split(text string, yield func(bool, string) bool) bool {
	if len(p.specials) == 0 {
		return text == "" || yield(false, text)
	}

	// next[i] caches where specials[i] next occurs at or after pos, or -1
	next := make([]int, len(p.specials))
	for i, s := range p.specials {
		next[i] = strings.Index(text, s)
	}

	var pos int
	for pos < len(text) {
		best := -1
		for i, s := range p.specials {
			if next[i] >= 0 && next[i] < pos {
				if n := strings.Index(text[pos:], s); n >= 0 {
					next[i] = pos + n
				} else {
					next[i] = -1
				}
			}

			if next[i] >= 0 && (best < 0 || next[i] < next[best]) {
				best = i
			}
		}

		if best < 0 {
			return yield(false, text[pos:])
		}

		at := next[best]
		if at > pos && !yield(false, text[pos:at]) {
			return false
		}

		end := at + len(p.specials[best])
		if !yield(true, text[at:end]) {
			return false
		}

		pos = end
	}

	return true
}

// Pieces scans an ordinary text segment with Pattern. Matches are leftmost
// and non-overlapping. Text the pattern does not match is yielded as is so
// the pieces always cover the whole input.
func (p *Pretokenizer) Pieces(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		p.pieces(text, yield)
	}
}

func (p *Pretokenizer) pieces(text string, yield func(string) bool) bool {
	if text == "" {
		return true
	}

	r := []rune(text)
	var offset int
	for m, _ := p.re.FindRunesMatch(r); m != nil; m, _ = p.re.FindNextMatch(m) {
		if m.Length == 0 {
			continue
		}

		if m.Index > offset {
			if !yield(string(r[offset:m.Index])) {
				return false
			}
		}

		if !yield(m.String()) {
			return false
		}

		offset = m.Index + m.Length
	}

	if offset < len(r) {
		return yield(string(r[offset:]))
	}

	return true
}

// All splits text on special tokens and scans the remaining segments,
// yielding each special token and each pretoken in order.
func (p *Pretokenizer) All(text string) iter.Seq2[bool, string] {
	return func(yield func(bool, string) bool) {
		p.split(text, func(special bool, s string) bool {
			if special {
				return yield(true, s)
			}

			return p.pieces(s, func(piece string) bool {
				return yield(false, piece)
			})
		})
	}
}
