// Package furigana merges vocabulary words with their ruby readings into a
// single display string, e.g. 話し合う + "はな あ" -> 話(はな)し合(あ)う.
package furigana

import (
	"strings"
	"unicode"
)

// IsHiragana reports whether r is in the hiragana block (U+3040..U+309F).
func IsHiragana(r rune) bool {
	return r >= 0x3040 && r <= 0x309F
}

// HasHiragana reports whether s contains at least one hiragana character.
func HasHiragana(s string) bool {
	return strings.IndexFunc(s, IsHiragana) >= 0
}

// HasKanji reports whether s contains at least one Han character.
func HasKanji(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.Is(unicode.Han, r) }) >= 0
}

// ToHiragana converts Katakana to Hiragana.
func ToHiragana(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if r >= 0x30A1 && r <= 0x30F6 {
			runes[i] = r - 0x60
		}
	}
	return string(runes)
}

// Reconcile returns the annotated display form of surface.
//
// reading holds the ruby texts of the word joined by spaces. For words mixing
// kanji and hiragana, each reading token is attached to the non-hiragana
// character that precedes a hiragana character (or ends the word). When the
// tokens run out the remaining characters are left bare. Words without
// hiragana get the whole reading appended, or nothing when it is empty.
func Reconcile(surface, reading string) string {
	if !HasHiragana(surface) {
		if reading == "" {
			return surface
		}
		return surface + "(" + reading + ")"
	}

	tokens := strings.Fields(reading)
	runes := []rune(surface)

	var b strings.Builder
	for i, r := range runes {
		b.WriteRune(r)
		if IsHiragana(r) {
			continue
		}
		last := i == len(runes)-1
		if !last && !IsHiragana(runes[i+1]) {
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		b.WriteString("(" + tokens[0] + ")")
		tokens = tokens[1:]
	}
	return b.String()
}
