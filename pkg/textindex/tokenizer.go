// Package textindex turns free text into the tokens stored in the search
// index and used to query it.
package textindex

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize NFKC-normalizes each non-blank field, lowercases it with simple
// per-rune mapping (İ becomes i, never i plus a combining dot), splits it on
// every run of characters that are neither letters nor digits and returns
// the pieces in order. Tokens containing CJK characters are additionally split at every
// CJK/non-CJK boundary, and each CJK segment also yields its individual
// characters. The result is not deduplicated; see Distinct.
func Tokenize(fields ...string) []string {
	var tokens []string

	for _, field := range fields {
		if strings.TrimSpace(field) == "" {
			continue
		}
		text := strings.TrimSpace(strings.ToLower(norm.NFKC.String(field)))

		for _, word := range strings.FieldsFunc(text, isSeparator) {
			tokens = append(tokens, word)
			tokens = append(tokens, cjkVariants(word)...)
		}
	}

	return tokens
}

// Distinct removes case-insensitive duplicates, keeping first occurrences.
func Distinct(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		key := strings.ToLower(t)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TokenizeDistinct is Tokenize followed by Distinct.
func TokenizeDistinct(fields ...string) []string {
	return Distinct(Tokenize(fields...))
}

// IsCJK reports whether r belongs to a script written without word spacing:
// Han (including the extension blocks), Hiragana, Katakana or Hangul.
// The prolonged sound mark belongs to the Common script but only occurs in kana.
func IsCJK(r rune) bool {
	return r == prolongedSoundMark || unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

const prolongedSoundMark = '\u30fc'

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}

// cjkVariants returns the extra tokens for a word: its script segments when
// the word mixes CJK and other characters, then every CJK character alone.
func cjkVariants(word string) []string {
	segments := splitScripts(word)
	if segments == nil {
		return nil
	}

	var out []string
	if len(segments) > 1 {
		out = append(out, segments...)
	}
	for _, seg := range segments {
		runes := []rune(seg)
		if len(runes) < 2 || !IsCJK(runes[0]) {
			continue
		}
		for _, r := range runes {
			out = append(out, string(r))
		}
	}
	return out
}

// splitScripts cuts word at each change between CJK and non-CJK runes. It
// returns nil for words with no CJK runes at all.
func splitScripts(word string) []string {
	var (
		segments []string
		current  []rune
		inCJK    bool
		sawCJK   bool
	)

	for i, r := range []rune(word) {
		cjk := IsCJK(r)
		sawCJK = sawCJK || cjk
		if i > 0 && cjk != inCJK {
			segments = append(segments, string(current))
			current = current[:0]
		}
		current = append(current, r)
		inCJK = cjk
	}
	if len(current) > 0 {
		segments = append(segments, string(current))
	}

	if !sawCJK {
		return nil
	}
	return segments
}
