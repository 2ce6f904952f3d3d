// Package segment splits transcripts into punctuation-terminated sentences,
// one per line.
package segment

import (
	"strings"
	"unicode/utf8"
)

// DefaultTerminator is appended to trailing text that has no terminator.
const DefaultTerminator = '。'

// Terminators is the fixed set of sentence-ending marks, ASCII and CJK.
const Terminators = ".!?。！？，；、"

// IsTerminator reports whether r ends a sentence.
func IsTerminator(r rune) bool {
	return strings.ContainsRune(Terminators, r)
}

// Segmenter splits text on runs of terminators.
// The zero value uses DefaultTerminator, and so does any Terminator that is
// not in Terminators: a foreign mark would not be recognized on the next pass.
type Segmenter struct {
	Terminator rune
}

func (s Segmenter) terminator() rune {
	if !IsTerminator(s.Terminator) {
		return DefaultTerminator
	}
	return s.Terminator
}

// Split returns the sentences of text in order. Each sentence is trimmed and
// ends in exactly one terminator: a run such as "..." or "?!" collapses to its
// last character. Text after the final run gets the default terminator.
// Segments that are empty after trimming are dropped.
func (s Segmenter) Split(text string) []string {
	var sentences []string
	start := 0 // byte offset of the current un-terminated text

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !IsTerminator(r) {
			i += size
			continue
		}

		// Consume the whole run; last is the representative mark.
		last := r
		j := i + size
		for j < len(text) {
			r2, size2 := utf8.DecodeRuneInString(text[j:])
			if !IsTerminator(r2) {
				break
			}
			last = r2
			j += size2
		}

		if body := strings.TrimSpace(text[start:i]); body != "" {
			sentences = append(sentences, body+string(last))
		}
		start = j
		i = j
	}

	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail+string(s.terminator()))
	}
	return sentences
}

// Format returns the sentences of text joined by newlines.
func (s Segmenter) Format(text string) string {
	return strings.Join(s.Split(text), "\n")
}

// FormatAll segments each part independently and joins every sentence by
// newlines. Engines that return several result chunks use this so a chunk
// without closing punctuation still ends its own sentence.
func (s Segmenter) FormatAll(parts []string) string {
	var all []string
	for _, p := range parts {
		all = append(all, s.Split(p)...)
	}
	return strings.Join(all, "\n")
}

// Split segments text with the default terminator.
func Split(text string) []string {
	return Segmenter{}.Split(text)
}

// Format segments text with the default terminator and joins the sentences by newlines.
func Format(text string) string {
	return Segmenter{}.Format(text)
}
