package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

const (
	// TimestampLayout is the first line of every run log.
	TimestampLayout = "2006-01-02 15:04:05"
	// AnswerKeyLabel prefixes the definition quiz answer key.
	AnswerKeyLabel = "単語意味クイズ解答："
	// SentMarker is appended once the quiz has been pushed.
	SentMarker = "送信済み"
)

// Score is one sentiment label and its formatted value, e.g. "肯定的", "71.3%".
type Score struct {
	Label string
	Value string
}

// RunLog is the record of the latest pipeline run. A failed run has Failure
// set and no URL or key.
type RunLog struct {
	Time      time.Time
	URL       string
	AnswerKey string
	Sentiment []Score
	Sent      bool
	Failure   string
}

// RunLogFile is overwritten at the start of every run.
type RunLogFile struct {
	Path string
	// Location is used to format and parse timestamps. Nil means time.Local.
	Location *time.Location
}

func (f RunLogFile) location() *time.Location {
	if f.Location != nil {
		return f.Location
	}
	return time.Local
}

func (f RunLogFile) stamp(t time.Time) string {
	return t.In(f.location()).Format(TimestampLayout)
}

// Write overwrites the log with r.
func (f RunLogFile) Write(r RunLog) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s%s\n", f.stamp(r.Time), r.URL, AnswerKeyLabel, r.AnswerKey)
	for _, s := range r.Sentiment {
		fmt.Fprintf(&b, "%s: %s\n", s.Label, s.Value)
	}
	if r.Sent {
		b.WriteString(SentMarker + "\n")
	}
	return writeFile(f.Path, b.String())
}

// AppendSent marks the logged run as pushed.
func (f RunLogFile) AppendSent() error {
	return appendFile(f.Path, SentMarker+"\n")
}

// WriteFailure overwrites the log with a diagnostic for a failed run.
func (f RunLogFile) WriteFailure(t time.Time, msg string) error {
	return writeFile(f.Path, f.stamp(t)+"\n"+msg+"\n")
}

// Read parses the log.
func (f RunLogFile) Read() (*RunLog, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Path, err)
	}
	defer file.Close()

	var lines []string
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Path, err)
	}
	if len(lines) < 2 {
		return nil, fmt.Errorf("%s: run log too short: %w", f.Path, apperr.ErrInvalidValue)
	}

	ts, err := time.ParseInLocation(TimestampLayout, lines[0], f.location())
	if err != nil {
		return nil, fmt.Errorf("%s: bad timestamp %q: %w: %w", f.Path, lines[0], apperr.ErrInvalidValue, err)
	}

	r := &RunLog{Time: ts}
	if len(lines) < 3 || !strings.HasPrefix(lines[2], AnswerKeyLabel) {
		r.Failure = strings.Join(lines[1:], "\n")
		return r, nil
	}
	r.URL = lines[1]
	r.AnswerKey = strings.TrimPrefix(lines[2], AnswerKeyLabel)
	for _, line := range lines[3:] {
		if line == SentMarker {
			r.Sent = true
			continue
		}
		if label, value, ok := strings.Cut(line, ": "); ok {
			r.Sentiment = append(r.Sentiment, Score{Label: label, Value: value})
		}
	}
	return r, nil
}
