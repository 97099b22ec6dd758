package nhkeasy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/cenkalti/backoff/v4"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/browser"
	"github.com/japaniel/easyquiz/pkg/config"
)

// VocabularyCounter counts the annotated words of an article page.
type VocabularyCounter interface {
	CountVocabulary(ctx context.Context, pageURL string) (int, []string, *goquery.Document, error)
}

// FailureRecorder receives a diagnostic when no article qualifies.
type FailureRecorder interface {
	WriteFailure(t time.Time, msg string) error
}

var errNoCandidates = errors.New("no candidate met the vocabulary minimum")

// Lister picks an article from the index page.
type Lister struct {
	Session browser.Session
	Counter VocabularyCounter
	Site    config.Site
	Listing config.Listing
	Rand    *rand.Rand
	// RunLog is optional.
	RunLog FailureRecorder
	Now    func() time.Time
	Logger *slog.Logger
}

func (l *Lister) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// FindArticleURL loads the index up to maxAttempts times and returns a random
// candidate with at least minVocab vocabulary ids. Index navigation failures,
// and attempts where every candidate fails to load, end the search
// immediately.
func (l *Lister) FindArticleURL(ctx context.Context, maxAttempts, minVocab int) (string, error) {
	if maxAttempts < 1 {
		return "", fmt.Errorf("max attempts must be positive, got %d: %w", maxAttempts, apperr.ErrInvalidValue)
	}

	var (
		chosen  string
		attempt int
	)
	op := func() error {
		attempt++
		candidates, err := l.candidates(ctx, minVocab)
		if err != nil {
			if errors.Is(err, apperr.ErrConnectivity) {
				return backoff.Permanent(err)
			}
			l.logger().Warn("index attempt failed", "attempt", attempt, "error", err)
			return err
		}
		if len(candidates) == 0 {
			l.logger().Debug("no qualifying article", "attempt", attempt, "min_vocabulary", minVocab)
			return errNoCandidates
		}
		chosen = candidates[l.intN(len(candidates))]
		l.logger().Info("article selected", "url", chosen, "attempt", attempt, "candidates", len(candidates))
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(l.Listing.RetryDelay), uint64(maxAttempts-1)),
		ctx,
	)
	err := backoff.Retry(op, b)
	if err == nil {
		return chosen, nil
	}
	if errors.Is(err, apperr.ErrConnectivity) || ctx.Err() != nil {
		return "", err
	}

	msg := fmt.Sprintf("%d回の試行後、%d語以上のリンクが見つかりませんでした。", maxAttempts, minVocab)
	if l.RunLog != nil {
		if werr := l.RunLog.WriteFailure(l.now(), msg); werr != nil {
			l.logger().Error("write run log", "error", werr)
		}
	}
	return "", fmt.Errorf("%s: %w: %w", msg, apperr.ErrContentUnavailable, err)
}

// candidates returns the qualifying article URLs of one index load, sorted.
func (l *Lister) candidates(ctx context.Context, minVocab int) ([]string, error) {
	if err := l.Session.Navigate(l.Site.IndexURL); err != nil {
		return nil, err
	}
	html, err := l.Session.HTML()
	if err != nil {
		return nil, err
	}
	links, err := ArticleLinks(html, l.Site.IndexURL, l.Site.ArticleMarker)
	if err != nil {
		return nil, err
	}

	lo := min(l.Listing.SkipFirst, len(links))
	hi := min(l.Listing.SkipFirst+l.Listing.Window, len(links))
	window := mapset.NewThreadUnsafeSet(links[lo:hi]...).ToSlice()
	slices.Sort(window)

	var (
		out     []string
		offline error
		failed  int
	)
	for _, u := range window {
		n, _, _, err := l.Counter.CountVocabulary(ctx, u)
		if err != nil {
			l.logger().Warn("count vocabulary", "url", u, "error", err)
			if errors.Is(err, apperr.ErrConnectivity) {
				failed++
				offline = err
			}
			continue
		}
		if n >= minVocab {
			out = append(out, u)
		}
	}
	if len(window) > 0 && failed == len(window) {
		return nil, fmt.Errorf("count vocabulary of %d candidates: %w", failed, offline)
	}
	return out, nil
}

// ArticleLinks returns every href in html containing marker, resolved
// against base, in document order with duplicates kept.
func ArticleLinks(html, base, marker string) ([]string, error) {
	doc, err := htmlquery.Parse(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	nodes, err := htmlquery.QueryAll(doc, "//a[@href]")
	if err != nil {
		return nil, fmt.Errorf("query index links: %w", err)
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse index url: %w", err)
	}

	var links []string
	for _, n := range nodes {
		ref, err := url.Parse(strings.TrimSpace(htmlquery.SelectAttr(n, "href")))
		if err != nil {
			continue
		}
		abs := baseURL.ResolveReference(ref).String()
		if strings.Contains(abs, marker) {
			links = append(links, abs)
		}
	}
	return links, nil
}

func (l *Lister) intN(n int) int {
	if l.Rand != nil {
		return l.Rand.IntN(n)
	}
	return rand.IntN(n)
}

func (l *Lister) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
