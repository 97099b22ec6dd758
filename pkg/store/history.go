package store

import (
	"fmt"
	"os"
	"strings"
)

// HistoryFile is the append-only store of quizzes that were sent.
type HistoryFile struct {
	Path string
}

// Append adds one record. stamp is the human-readable send time.
func (f HistoryFile) Append(stamp, url, vocabulary, definitions string) error {
	record := fmt.Sprintf("%s\n%s\n%s\n\n%s\n\n%s\n\n", stamp, url, vocabulary, definitions, Delimiter)
	return appendFile(f.Path, record)
}

// HistoryEntry is one sent quiz.
type HistoryEntry struct {
	Stamp string
	URL   string
	Lines []string
}

// Entries parses the history file. A missing file yields no entries.
func (f HistoryFile) Entries() ([]HistoryEntry, error) {
	raw, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}

	var out []HistoryEntry
	for _, rec := range strings.Split(string(raw), "\n"+Delimiter+"\n") {
		lines := nonEmptyLines(rec)
		if len(lines) < 2 {
			continue
		}
		out = append(out, HistoryEntry{Stamp: lines[0], URL: lines[1], Lines: lines[2:]})
	}
	return out, nil
}
