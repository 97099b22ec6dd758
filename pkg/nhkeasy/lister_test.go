package nhkeasy

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/browser/browsertest"
	"github.com/japaniel/easyquiz/pkg/config"
)

const indexURL = "https://www3.nhk.or.jp/news/easy/"

func articleURL(n string) string {
	return "https://www3.nhk.or.jp/news/easy/k1001000000000" + n + "/k1001000000000" + n + ".html"
}

type countStub struct {
	counts map[string]int
	errs   map[string]error
	calls  int
}

func (c *countStub) CountVocabulary(_ context.Context, u string) (int, []string, *goquery.Document, error) {
	c.calls++
	if err := c.errs[u]; err != nil {
		return 0, nil, nil, err
	}
	return c.counts[u], nil, nil, nil
}

type failureLog struct {
	at  time.Time
	msg string
}

func (f *failureLog) WriteFailure(t time.Time, msg string) error {
	f.at, f.msg = t, msg
	return nil
}

func newLister(t *testing.T, counter VocabularyCounter) (*Lister, *browsertest.Session, *failureLog) {
	t.Helper()
	html, err := os.ReadFile("testdata/index.html")
	require.NoError(t, err)

	s := browsertest.New()
	s.Pages[indexURL] = string(html)

	cfg := config.Default()
	cfg.Listing.RetryDelay = 0
	log := &failureLog{}
	return &Lister{
		Session: s,
		Counter: counter,
		Site:    cfg.Site,
		Listing: cfg.Listing,
		Rand:    rand.New(rand.NewPCG(1, 2)),
		RunLog:  log,
		Now:     func() time.Time { return time.Date(2024, 10, 14, 9, 0, 0, 0, time.UTC) },
	}, s, log
}

func TestArticleLinks(t *testing.T) {
	html, err := os.ReadFile("testdata/index.html")
	require.NoError(t, err)

	links, err := ArticleLinks(string(html), indexURL, "k1001")
	require.NoError(t, err)
	assert.Equal(t, []string{articleURL("0"), articleURL("1"), articleURL("2"), articleURL("1"), articleURL("3")}, links)
}

func TestFindArticleURLFiltersByVocabulary(t *testing.T) {
	counter := &countStub{counts: map[string]int{
		articleURL("0"): 50, // pinned, outside the window
		articleURL("1"): 2,
		articleURL("2"): 3,
		articleURL("3"): 1,
	}}
	l, s, log := newLister(t, counter)

	for range 20 {
		got, err := l.FindArticleURL(context.Background(), 3, 3)
		require.NoError(t, err)
		assert.Equal(t, articleURL("2"), got)
	}
	assert.Empty(t, log.msg)
	assert.Equal(t, indexURL, s.Visited[0])
}

func TestFindArticleURLRandomChoice(t *testing.T) {
	counter := &countStub{counts: map[string]int{articleURL("1"): 5, articleURL("2"): 5, articleURL("3"): 5}}
	l, _, _ := newLister(t, counter)

	seen := map[string]bool{}
	for range 50 {
		got, err := l.FindArticleURL(context.Background(), 1, 3)
		require.NoError(t, err)
		seen[got] = true
	}
	assert.Len(t, seen, 3)
	assert.NotContains(t, seen, articleURL("0"))
}

func TestFindArticleURLExhausted(t *testing.T) {
	counter := &countStub{counts: map[string]int{articleURL("1"): 2, articleURL("2"): 0, articleURL("3"): 1}}
	l, s, log := newLister(t, counter)

	_, err := l.FindArticleURL(context.Background(), 4, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrContentUnavailable)
	assert.Len(t, s.Visited, 4)
	assert.Contains(t, log.msg, "4回の試行後")
	assert.Equal(t, 2024, log.at.Year())
}

func TestFindArticleURLCountErrorSkipsCandidate(t *testing.T) {
	counter := &countStub{
		counts: map[string]int{articleURL("1"): 9, articleURL("2"): 9},
		errs:   map[string]error{articleURL("1"): apperr.ErrConnectivity},
	}
	l, _, _ := newLister(t, counter)

	for range 10 {
		got, err := l.FindArticleURL(context.Background(), 1, 3)
		require.NoError(t, err)
		assert.Equal(t, articleURL("2"), got)
	}
}

func TestFindArticleURLAllCountsOffline(t *testing.T) {
	offline := errors.Join(apperr.ErrConnectivity, errors.New("dial tcp: connection refused"))
	counter := &countStub{errs: map[string]error{
		articleURL("1"): offline,
		articleURL("2"): offline,
		articleURL("3"): offline,
	}}
	l, s, log := newLister(t, counter)

	_, err := l.FindArticleURL(context.Background(), 5, 3)
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
	assert.NotErrorIs(t, err, apperr.ErrContentUnavailable)
	assert.Len(t, s.Visited, 1)
	assert.Equal(t, 3, counter.calls)
	assert.Empty(t, log.msg)
}

func TestFindArticleURLNavigationIsPermanent(t *testing.T) {
	l, s, log := newLister(t, &countStub{})
	s.NavigateErr = errors.Join(apperr.ErrConnectivity, errors.New("net::ERR_NAME_NOT_RESOLVED"))

	_, err := l.FindArticleURL(context.Background(), 5, 3)
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
	assert.NotErrorIs(t, err, apperr.ErrContentUnavailable)
	assert.Len(t, s.Visited, 1)
	assert.Empty(t, log.msg)
}

func TestFindArticleURLInvalidAttempts(t *testing.T) {
	l, _, _ := newLister(t, &countStub{})
	_, err := l.FindArticleURL(context.Background(), 0, 3)
	assert.ErrorIs(t, err, apperr.ErrInvalidValue)
}
