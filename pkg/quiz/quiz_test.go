package quiz

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/article"
)

// 2024-10-14 is a Monday.
var fixedNow = time.Date(2024, 10, 14, 9, 5, 0, 0, time.UTC)

func newGenerator(seed uint64) *Generator {
	return &Generator{
		Rand:     rand.New(rand.NewPCG(seed, seed+1)),
		Now:      func() time.Time { return fixedNow },
		Locale:   "ja_JP",
		Location: time.UTC,
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2024年10月14日 月曜日 09時05分", FormatDate(fixedNow, "ja_JP"))
	assert.Equal(t, "2024年10月20日 日曜日 09時05分", FormatDate(fixedNow.AddDate(0, 0, 6), "ja"))
	assert.Equal(t, "2024年10月14日 Monday 09時05分", FormatDate(fixedNow, "en_US"))
}

func TestSample(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f"}
	rng := rand.New(rand.NewPCG(7, 8))
	for n := 0; n <= 8; n++ {
		got := Sample(items, n, rng)
		assert.Len(t, got, min(n, len(items)))
		// Relative order survives.
		assert.True(t, slices.IsSortedFunc(got, strings.Compare), "%v", got)
		assert.Len(t, uniq(got), len(got))
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, items)
}

func uniq(s []string) map[string]bool {
	m := map[string]bool{}
	for _, v := range s {
		m[v] = true
	}
	return m
}

func TestPronunciation(t *testing.T) {
	g := newGenerator(1)
	words := []string{"走る", "ビル", "話し合う", "雨", "階段"}

	text, selected, err := g.Pronunciation("https://example.com/a.html", words, 3)
	require.NoError(t, err)
	require.Len(t, selected, 3)

	assert.True(t, strings.HasPrefix(text, "【語彙力クイズ】2024年10月14日 月曜日 09時05分\n\n"))
	assert.Contains(t, text, "(3ポイント)\n\nhttps://example.com/a.html\n\n---\n\n学生番号: \n\n")
	for i, w := range selected {
		assert.Contains(t, text, fmt.Sprintf("%s. %s: \n", Letter(i), w))
	}
}

func TestPronunciationSizeBound(t *testing.T) {
	words := []string{"一", "二", "三", "四"}
	for count := 1; count <= 6; count++ {
		text, selected, err := newGenerator(uint64(count)).Pronunciation("u", words, count)
		require.NoError(t, err)
		want := min(count, len(words))
		assert.Len(t, selected, want)

		lines := 0
		for _, line := range strings.Split(text, "\n") {
			if len(line) > 2 && line[1] == '.' && line[0] >= 'A' && line[0] <= 'Z' {
				lines++
			}
		}
		assert.Equal(t, want, lines, "count %d", count)
	}
}

func TestPronunciationInvalidCount(t *testing.T) {
	for _, n := range []int{0, -1, 27} {
		_, _, err := newGenerator(1).Pronunciation("u", []string{"a"}, n)
		assert.ErrorIs(t, err, apperr.ErrInvalidValue, "count %d", n)
	}
}

func TestDefinitionScenario(t *testing.T) {
	a := &article.Article{Body: []string{"走ることが好きです。", "ビルがあります。"}}
	words := []string{"走る", "ビル"}
	defs := []string{"走る：1 to run", "ビル：1 building"}

	text, key, err := newGenerator(3).Definition(a, words, defs)
	require.NoError(t, err)
	require.Len(t, key, 2)
	assert.ElementsMatch(t, []rune{'A', 'B'}, []rune(string(key)))

	instructions, questions, ok := strings.Cut(text, "---")
	require.True(t, ok)
	assert.Contains(t, instructions, "【単語意味クイズ】2024年10月14日 月曜日 09時05分\n\n")
	assert.Contains(t, instructions, "(2ポイント)\n\n走ることが好きです。\n\nビルがあります。\n\n")
	assert.Contains(t, questions, "(1) 走る (2) ビル \n\n")
	assert.True(t, strings.HasSuffix(text, "【返信フォーマット】(英語アルファベットと数字のみ):\n学生番号: A10001\n解答: ABCDE"))

	// The key letter of each prompt points at that prompt's definition.
	assert.Contains(t, questions, string(key[0])+". 1 to run\n\n")
	assert.Contains(t, questions, string(key[1])+". 1 building\n\n")
}

func TestDefinitionAnswerKeyBijection(t *testing.T) {
	for k := 1; k <= 26; k++ {
		var words, defs []string
		for i := range k {
			w := fmt.Sprintf("語%02d", i)
			words = append(words, w)
			defs = append(defs, w+"：意味"+w)
		}
		for seed := range uint64(5) {
			text, key, err := newGenerator(seed).Definition(nil, words, defs)
			require.NoError(t, err)
			require.Len(t, key, k)

			letters := []byte(key)
			slices.Sort(letters)
			for i, c := range letters {
				assert.Equal(t, byte('A'+i), c)
			}
			for i, w := range words {
				assert.Contains(t, text, string(key[i])+". 意味"+w+"\n")
			}
		}
	}
}

func TestDefinitionSkipsUnmatched(t *testing.T) {
	words := []string{"走る", "ビル", "雨"}
	defs := []string{"ビル：1 building", "走る：1 to run", "関係ない：x", "壊れた記録"}

	text, key, err := newGenerator(1).Definition(nil, words, defs)
	require.NoError(t, err)
	assert.Len(t, key, 2)
	assert.Contains(t, text, "(1) 走る (2) ビル \n\n")
	assert.NotContains(t, text, "(3)")
	assert.Contains(t, text, "(2ポイント)")
}

func TestDefinitionShufflesChoices(t *testing.T) {
	words := []string{"a", "b", "c", "d", "e", "f"}
	var defs []string
	for _, w := range words {
		defs = append(defs, w+"："+w)
	}
	keys := map[AnswerKey]bool{}
	for seed := range uint64(20) {
		_, key, err := newGenerator(seed).Definition(nil, words, defs)
		require.NoError(t, err)
		keys[key] = true
	}
	assert.Greater(t, len(keys), 1)
}

func TestDefinitionTooMany(t *testing.T) {
	var words, defs []string
	for i := range 27 {
		w := fmt.Sprint(i)
		words = append(words, w)
		defs = append(defs, w+"：x")
	}
	_, _, err := newGenerator(1).Definition(nil, words, defs)
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
}
