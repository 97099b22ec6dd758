package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

// ArticleFile is the per-run article text file:
//
//	<url>
//
//	<paragraph>
//
//	---
//
//	<annotated word>
//	...
//
//	---
//
//	<word：definition>
//	...
type ArticleFile struct {
	Path string
}

// WriteArticle truncates the file and writes the URL and paragraphs.
func (f ArticleFile) WriteArticle(url string, paragraphs []string) error {
	var b strings.Builder
	b.WriteString(url + "\n\n")
	for _, p := range paragraphs {
		b.WriteString(p + "\n\n")
	}
	return writeFile(f.Path, b.String())
}

// AppendWords appends the annotated vocabulary section.
func (f ArticleFile) AppendWords(words []string) error {
	var b strings.Builder
	b.WriteString(Delimiter + "\n")
	for _, w := range words {
		b.WriteString("\n" + w)
	}
	return appendFile(f.Path, b.String())
}

// AppendDefinitions appends the definition section.
func (f ArticleFile) AppendDefinitions(defs []string) error {
	var b strings.Builder
	b.WriteString("\n\n" + Delimiter + "\n\n")
	for _, d := range defs {
		b.WriteString(d + "\n")
	}
	return appendFile(f.Path, b.String())
}

// Record is the parsed content of an article file.
type Record struct {
	URL         string
	Paragraphs  []string
	Words       []string
	Definitions []string
}

// VocabularyBlock returns the annotated words one per line.
func (r *Record) VocabularyBlock() string {
	return strings.Join(r.Words, "\n")
}

// DefinitionBlock returns the definitions one per line.
func (r *Record) DefinitionBlock() string {
	return strings.Join(r.Definitions, "\n")
}

// Text returns the article paragraphs separated by blank lines.
func (r *Record) Text() string {
	return strings.Join(r.Paragraphs, "\n\n")
}

// ReadArticleFile parses a complete article file.
func ReadArticleFile(path string) (*Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseArticle(string(raw))
}

// ParseArticle parses article file content. It must hold exactly three
// sections.
func ParseArticle(content string) (*Record, error) {
	parts := strings.Split(content, Delimiter)
	if len(parts) != 3 {
		return nil, fmt.Errorf("article file has %d sections, want 3: %w", len(parts), apperr.ErrInvalidValue)
	}
	head := nonEmptyLines(parts[0])
	if len(head) == 0 {
		return nil, fmt.Errorf("article file has no url: %w", apperr.ErrInvalidValue)
	}
	return &Record{
		URL:         head[0],
		Paragraphs:  head[1:],
		Words:       nonEmptyLines(parts[1]),
		Definitions: nonEmptyLines(parts[2]),
	}, nil
}
