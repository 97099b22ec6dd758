package nhkeasy

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses (<rp>...</rp>)
// from HTML content. Readability extracts all text including furigana, which
// otherwise duplicates every annotated word (e.g. "漢字" becomes "漢字かんじ").
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, []byte{})
	cleaned = reRP.ReplaceAll(cleaned, []byte{})
	return cleaned
}

// baseText returns the text of sel without ruby readings.
func baseText(sel *goquery.Selection) string {
	c := sel.Clone()
	c.Find("rt, rp").Remove()
	return c.Text()
}

// rubyReading joins the <rt> texts under sel with single spaces.
func rubyReading(sel *goquery.Selection) string {
	var parts []string
	sel.Find("rt").Each(func(_ int, rt *goquery.Selection) {
		if t := strings.TrimSpace(rt.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, " ")
}

// lines splits text on line breaks, trims each line and drops blank ones.
func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// singleLine collapses whitespace runs into one space.
func singleLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
