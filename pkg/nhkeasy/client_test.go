package nhkeasy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/config"
	"github.com/japaniel/easyquiz/pkg/fetch"
)

func fixtureServer(t *testing.T, name string) *httptest.Server {
	t.Helper()
	body, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newClient() *Client {
	return &Client{
		Fetcher: fetch.New(config.HTTP{Timeout: 5 * time.Second}),
		Site:    config.Default().Site,
	}
}

type stubReader map[string]string

func (s stubReader) Reading(text string) string { return s[text] }

func TestCountVocabulary(t *testing.T) {
	srv := fixtureServer(t, "article.html")

	n, ids, doc, err := newClient().CountVocabulary(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"RSHOK-K-001", "RSHOK-K-002", "RSHOK-K-003"}, ids)
	assert.NotNil(t, doc)
}

func TestCountVocabularyConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, _, _, err := newClient().CountVocabulary(context.Background(), srv.URL)
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
}

func TestScrape(t *testing.T) {
	srv := fixtureServer(t, "article.html")

	page, err := newClient().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	a := page.Article
	assert.Equal(t, srv.URL, a.URL)
	assert.Equal(t, "[10月14日 16時30分]", a.PublishedDate)
	assert.Equal(t, "男の人が走った", a.Title)
	assert.Equal(t, []string{
		"走ることが好きな男の人がいます。",
		"この人はビルの階段を走る。",
		"あしたも話し合うつもりです。",
	}, a.Body)

	v := page.Vocabulary
	assert.Equal(t, []string{"走る", "ビル", "話し合う"}, v.Keys())
	e, ok := v.Get("走る")
	require.True(t, ok)
	assert.Equal(t, "はし", e.Reading)
	e, _ = v.Get("ビル")
	assert.Equal(t, "", e.Reading)
	e, _ = v.Get("話し合う")
	assert.Equal(t, "はな あ", e.Reading)
	assert.Equal(t, []string{"走(はし)る", "ビル", "話(はな)し合(あ)う"}, v.Annotated())

	assert.Equal(t, []string{"RSHOK-K-001", "RSHOK-K-002", "RSHOK-K-003"}, page.IDs)
	assert.Equal(t, map[string]string{
		"RSHOK-K-001": "走る",
		"RSHOK-K-002": "ビル",
		"RSHOK-K-003": "話し合う",
	}, page.Words)
}

func TestParseIDOnDescendant(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div class="article-main__body article-body">
<p><a class="dicWin"><span id="RSHOK-9"><ruby>雨<rt>あめ</rt></ruby></span></a>と<a class="dicWin" id="other">風</a></p></div>`))
	require.NoError(t, err)

	page := newClient().Parse("https://example.com/a.html", doc)
	assert.Equal(t, []string{"RSHOK-9"}, page.IDs)
	assert.Equal(t, map[string]string{"RSHOK-9": "雨"}, page.Words)
	assert.Equal(t, []string{"雨", "風"}, page.Vocabulary.Keys())
}

func TestScrapeInfersMissingReadings(t *testing.T) {
	html := `<html><body><div class="article-main__body article-body"><p>
<a class="dicWin" id="RSHOK-1">銀行</a><a class="dicWin" id="RSHOK-2">走る</a><a class="dicWin" id="RSHOK-3">不明</a>
</p></div></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	c := newClient()
	c.Analyzer = stubReader{"銀行": "ぎんこう", "走る": "はしる", "不明": "不明"}
	page, err := c.Scrape(context.Background(), srv.URL)
	require.NoError(t, err)

	e, _ := page.Vocabulary.Get("銀行")
	assert.Equal(t, "ぎんこう", e.Reading)
	// Mixed kanji and kana words are left alone.
	e, _ = page.Vocabulary.Get("走る")
	assert.Equal(t, "", e.Reading)
	// Unknown words keep an empty reading.
	e, _ = page.Vocabulary.Get("不明")
	assert.Equal(t, "", e.Reading)
}

func TestScrapeReadabilityFallback(t *testing.T) {
	para := strings.Repeat("<ruby>雨<rt>あめ</rt></ruby>が<ruby>降<rt>ふ</rt></ruby>っています。", 40)
	html := `<html><head><title>天気</title></head><body><main><article><h2>天気</h2><p>` +
		para + `</p><p>` + para + `</p></article></main></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	page, err := newClient().Scrape(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotEmpty(t, page.Article.Body)
	joined := strings.Join(page.Article.Body, "")
	assert.Contains(t, joined, "雨が降っています。")
	assert.NotContains(t, joined, "あめ")
}

func TestSanitizeRuby(t *testing.T) {
	in := []byte(`<ruby>漢字<rp>(</rp><RT class="x">かんじ</RT><rp>)</rp></ruby>`)
	assert.Equal(t, `<ruby>漢字</ruby>`, string(SanitizeRuby(in)))
}
