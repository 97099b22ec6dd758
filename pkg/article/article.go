// Package article holds the in-memory data of one pipeline run: the scraped
// article and its annotated vocabulary.
package article

import (
	"strings"

	"github.com/japaniel/easyquiz/pkg/furigana"
)

// DefinitionSeparator splits a "word：definition" record.
const DefinitionSeparator = "："

// Article is a scraped news article.
type Article struct {
	URL           string
	PublishedDate string
	Title         string
	Body          []string
}

// Paragraphs returns date, title and body paragraphs, skipping empty ones.
func (a *Article) Paragraphs() []string {
	var out []string
	for _, p := range append([]string{a.PublishedDate, a.Title}, a.Body...) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Entry is one annotated vocabulary word.
type Entry struct {
	Surface    string
	Reading    string
	Definition string
}

// Annotated returns the reconciled display form of the entry.
func (e Entry) Annotated() string {
	return furigana.Reconcile(e.Surface, e.Reading)
}

// Vocabulary is an insertion-ordered set of entries keyed by surface form.
type Vocabulary struct {
	entries []Entry
	index   map[string]int
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// Add inserts surface with reading. A surface that is already present keeps
// its position and takes the new reading.
func (v *Vocabulary) Add(surface, reading string) {
	if i, ok := v.index[surface]; ok {
		v.entries[i].Reading = reading
		return
	}
	v.index[surface] = len(v.entries)
	v.entries = append(v.entries, Entry{Surface: surface, Reading: reading})
}

// SetDefinition records the definition text for surface. It reports false
// when surface is unknown.
func (v *Vocabulary) SetDefinition(surface, definition string) bool {
	i, ok := v.index[surface]
	if !ok {
		return false
	}
	v.entries[i].Definition = definition
	return true
}

// Get returns the entry for surface.
func (v *Vocabulary) Get(surface string) (Entry, bool) {
	i, ok := v.index[surface]
	if !ok {
		return Entry{}, false
	}
	return v.entries[i], true
}

// Len returns the number of entries.
func (v *Vocabulary) Len() int { return len(v.entries) }

// Keys returns the surface forms in order.
func (v *Vocabulary) Keys() []string {
	keys := make([]string, len(v.entries))
	for i, e := range v.entries {
		keys[i] = e.Surface
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (v *Vocabulary) Entries() []Entry {
	return append([]Entry(nil), v.entries...)
}

// Annotated returns the display form of every entry in order.
func (v *Vocabulary) Annotated() []string {
	out := make([]string, len(v.entries))
	for i, e := range v.entries {
		out[i] = e.Annotated()
	}
	return out
}

// SplitDefinition splits a "word：definition" record at the first separator.
func SplitDefinition(record string) (word, definition string, ok bool) {
	return strings.Cut(record, DefinitionSeparator)
}
