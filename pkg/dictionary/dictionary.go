// Package dictionary supplies fallback definitions from a local
// jmdict-simplified file for words whose tooltip could not be read.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry matches the structure of jmdict-simplified entries.
type Entry struct {
	ID    string    `json:"id"`
	Kanji []Element `json:"kanji"`
	Kana  []Element `json:"kana"`
	Sense []Sense   `json:"sense"`
}

type Element struct {
	Text   string   `json:"text"`
	Common bool     `json:"common"`
	Tags   []string `json:"tags"`
}

type Sense struct {
	PartOfSpeech []string `json:"partOfSpeech"`
	Gloss        []Gloss  `json:"gloss"`
}

type Gloss struct {
	Text string `json:"text"`
	Lang string `json:"lang"` // defaults to 'eng' if missing
}

// Load reads a jmdict-simplified JSON file. Both the release format (an
// object with a "words" array) and a bare array of entries are accepted.
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var release struct {
		Words []Entry `json:"words"`
	}
	dec := json.NewDecoder(f)
	if err := dec.Decode(&release); err == nil && len(release.Words) > 0 {
		return release.Words, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("parse dictionary %s as object or array: %w", path, err)
	}
	return entries, nil
}
