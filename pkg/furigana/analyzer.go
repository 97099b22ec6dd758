package furigana

import (
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// featureReading is the katakana reading column of IPA token features.
const featureReading = 7

// Analyzer infers readings for words the page did not annotate.
type Analyzer struct {
	tok *tokenizer.Tokenizer
}

// NewAnalyzer loads the IPA dictionary. It takes a moment and a fair amount
// of memory, so callers build one per process.
func NewAnalyzer() (*Analyzer, error) {
	tok, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Analyzer{tok: tok}, nil
}

// Reading returns the hiragana reading of text. Tokens the dictionary has no
// reading for contribute their surface unchanged.
func (a *Analyzer) Reading(text string) string {
	var b strings.Builder
	for _, t := range a.tok.Tokenize(text) {
		if t.Class == tokenizer.DUMMY {
			continue
		}
		if r := feature(t, featureReading); r != "" {
			b.WriteString(ToHiragana(r))
		} else {
			b.WriteString(t.Surface)
		}
	}
	return b.String()
}

func feature(t tokenizer.Token, i int) string {
	fs := t.Features()
	if i >= len(fs) || fs[i] == "*" {
		return ""
	}
	return fs[i]
}
