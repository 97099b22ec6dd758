// Package quiz builds the pronunciation and definition quiz texts.
package quiz

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/article"
	"github.com/japaniel/easyquiz/pkg/config"
)

// Separator divides the instructions from the questions of a quiz text.
const Separator = "---"

// AnswerKey holds, for every prompt in order, the letter of its choice.
type AnswerKey string

// Letter returns the answer letter for a 0-based position.
func Letter(i int) string {
	return string(rune('A' + i))
}

// Generator renders quiz texts. Rand and Now are injectable for tests.
type Generator struct {
	Rand     *rand.Rand
	Now      func() time.Time
	Locale   string
	Location *time.Location
}

// NewGenerator returns a Generator configured from cfg.
func NewGenerator(cfg *config.Config, rng *rand.Rand) (*Generator, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Generator{Rand: rng, Now: time.Now, Locale: cfg.Locale, Location: loc}, nil
}

func (g *Generator) rng() *rand.Rand {
	if g.Rand == nil {
		g.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return g.Rand
}

// Today formats the current time for quiz headers.
func (g *Generator) Today() string {
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}
	if g.Location != nil {
		now = now.In(g.Location)
	}
	return FormatDate(now, g.Locale)
}

// Sample returns n items drawn without replacement, keeping their relative
// order. items is not modified. All items are returned when n >= len(items).
func Sample[T any](items []T, n int, rng *rand.Rand) []T {
	work := append([]T(nil), items...)
	for len(work) > max(n, 0) {
		i := rng.IntN(len(work))
		work = append(work[:i], work[i+1:]...)
	}
	return work
}

// Pronunciation renders the reading quiz for url with min(count, len(words))
// randomly kept words and returns the text with the words it kept.
func (g *Generator) Pronunciation(url string, words []string, count int) (string, []string, error) {
	if err := config.ValidateQuestions(count); err != nil {
		return "", nil, err
	}
	selected := Sample(words, count, g.rng())

	var b strings.Builder
	fmt.Fprintf(&b, "【語彙力クイズ】%s\n\n", g.Today())
	b.WriteString("今日読んだNHK EASYニュース📰を復習して、辞書を見ずにスマホで単語・漢字の読み方を書いてください。\n")
	fmt.Fprintf(&b, "カタカナの場合は日本語もしくは英語で意味を書いてください。(%dポイント)\n\n", len(selected))
	fmt.Fprintf(&b, "%s\n\n", url)
	b.WriteString(Separator + "\n\n")
	b.WriteString("学生番号: \n\n")
	for i, w := range selected {
		fmt.Fprintf(&b, "%s. %s: \n", Letter(i), w)
	}
	return b.String(), selected, nil
}

// Definition renders the multiple-choice definition quiz. Words are matched
// to "word：definition" records by the text before the first separator;
// words without a record are left out. The definitions are shuffled and the
// returned key gives, for each prompt in order, the letter of its definition.
func (g *Generator) Definition(a *article.Article, words, definitions []string) (string, AnswerKey, error) {
	var headers, bodies []string
	for _, w := range words {
		for _, d := range definitions {
			if word, def, ok := article.SplitDefinition(d); ok && word == w {
				headers = append(headers, word)
				bodies = append(bodies, def)
			}
		}
	}
	if len(headers) > config.MaxQuestions {
		return "", "", fmt.Errorf("%d definitions exceed the %d answer letters: %w", len(headers), config.MaxQuestions, apperr.ErrInvalidValue)
	}

	// choice j shows bodies[perm[j]].
	perm := g.rng().Perm(len(bodies))
	key := make([]byte, len(headers))
	for j, i := range perm {
		key[i] = byte('A' + j)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "【単語意味クイズ】%s\n\n", g.Today())
	fmt.Fprintf(&b, "今日のNHK EASYニュース📰です。(1) から正しい単語の意味を順番に並べてください。(%dポイント)\n\n", len(headers))
	if a != nil {
		for _, p := range a.Body {
			b.WriteString(strings.TrimSpace(p) + "\n\n")
		}
	}
	b.WriteString(Separator + "\n\n")
	for i, h := range headers {
		fmt.Fprintf(&b, "(%d) %s ", i+1, h)
	}
	b.WriteString("\n\n")
	for j, i := range perm {
		fmt.Fprintf(&b, "%s. %s\n\n", Letter(j), bodies[i])
	}
	b.WriteString("【返信フォーマット】(英語アルファベットと数字のみ):\n")
	b.WriteString("学生番号: A10001\n")
	b.WriteString("解答: ABCDE")

	return b.String(), AnswerKey(key), nil
}

var weekdaysJA = [...]string{"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日"}

// FormatDate renders t as "2006年01月02日 <weekday> 15時04分". Japanese
// locales get Japanese weekday names.
func FormatDate(t time.Time, locale string) string {
	day := t.Weekday().String()
	if strings.HasPrefix(strings.ToLower(locale), "ja") {
		day = weekdaysJA[t.Weekday()]
	}
	return fmt.Sprintf("%s %s %s", t.Format("2006年01月02日"), day, t.Format("15時04分"))
}
