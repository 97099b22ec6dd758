package dictionary

import (
	"slices"
	"strings"

	"github.com/japaniel/easyquiz/pkg/article"
	"github.com/japaniel/easyquiz/pkg/furigana"
)

// maxGlosses bounds the glosses quoted in a fallback definition.
const maxGlosses = 3

// Index looks entries up by kanji or kana spelling.
type Index struct {
	index map[string][]Entry
}

// NewIndex indexes entries by every spelling.
func NewIndex(entries []Entry) *Index {
	idx := make(map[string][]Entry)
	for _, e := range entries {
		for _, k := range e.Kanji {
			idx[k.Text] = append(idx[k.Text], e)
		}
		for _, k := range e.Kana {
			idx[k.Text] = append(idx[k.Text], e)
		}
	}
	return &Index{index: idx}
}

// Open loads the dictionary at path and indexes it.
func Open(path string) (*Index, error) {
	entries, err := Load(path)
	if err != nil {
		return nil, err
	}
	return NewIndex(entries), nil
}

// Lookup returns the entries spelled surface, ordered by id. When reading is
// given and an entry's kana matches it exactly, only those entries are
// returned; ruby readings of mixed words only cover the kanji, so a miss
// falls back to all spellings.
func (ix *Index) Lookup(surface, reading string) []Entry {
	matches := slices.Clone(ix.index[surface])
	slices.SortFunc(matches, func(a, b Entry) int { return strings.Compare(a.ID, b.ID) })
	matches = slices.CompactFunc(matches, func(a, b Entry) bool { return a.ID == b.ID })

	reading = furigana.ToHiragana(strings.Join(strings.Fields(reading), ""))
	if reading == "" {
		return matches
	}
	var exact []Entry
	for _, e := range matches {
		if hasReading(e, reading) {
			exact = append(exact, e)
		}
	}
	if len(exact) > 0 {
		return exact
	}
	return matches
}

func hasReading(e Entry, reading string) bool {
	for _, k := range e.Kana {
		if furigana.ToHiragana(k.Text) == reading {
			return true
		}
	}
	return false
}

// Definition returns a "word：gloss; gloss" record for surface built from the
// first matching entry's English glosses.
func (ix *Index) Definition(surface, reading string) (string, bool) {
	for _, e := range ix.Lookup(surface, reading) {
		var glosses []string
		for _, s := range e.Sense {
			for _, g := range s.Gloss {
				if g.Lang != "" && g.Lang != "eng" {
					continue
				}
				if !slices.Contains(glosses, g.Text) {
					glosses = append(glosses, g.Text)
				}
			}
		}
		if len(glosses) == 0 {
			continue
		}
		if len(glosses) > maxGlosses {
			glosses = glosses[:maxGlosses]
		}
		return surface + article.DefinitionSeparator + strings.Join(glosses, "; "), true
	}
	return "", false
}
