package store

import (
	"fmt"
	"os"
)

// QuizFile holds one generated quiz text.
type QuizFile struct {
	Path string
}

// Write replaces the quiz text.
func (f QuizFile) Write(text string) error {
	return writeFile(f.Path, text)
}

// Read returns the stored quiz text.
func (f QuizFile) Read() (string, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return string(raw), nil
}
