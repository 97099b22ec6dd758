// Package nhkeasy reads the News Web Easy site: the article index, article
// pages and their annotated vocabulary.
package nhkeasy

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-shiori/go-readability"

	"github.com/japaniel/easyquiz/pkg/article"
	"github.com/japaniel/easyquiz/pkg/config"
	"github.com/japaniel/easyquiz/pkg/fetch"
	"github.com/japaniel/easyquiz/pkg/furigana"
)

// ReadingInferer guesses a hiragana reading for words the page left
// unannotated. furigana.Analyzer implements it.
type ReadingInferer interface {
	Reading(text string) string
}

// Client fetches and parses article pages over plain HTTP.
type Client struct {
	Fetcher fetch.Getter
	Site    config.Site
	// Analyzer is optional.
	Analyzer ReadingInferer
	Logger   *slog.Logger
}

// Page is everything one article fetch yields.
type Page struct {
	Article    *article.Article
	Vocabulary *article.Vocabulary
	// IDs are the tooltip element ids in document order.
	IDs []string
	// Words maps each tooltip id to the surface of the anchor carrying it.
	Words map[string]string
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Client) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := c.Fetcher.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// CountVocabulary fetches pageURL and returns the number of distinct
// vocabulary ids on it, the ids in document order and the parsed page.
func (c *Client) CountVocabulary(ctx context.Context, pageURL string) (int, []string, *goquery.Document, error) {
	doc, err := c.document(ctx, pageURL)
	if err != nil {
		return 0, nil, nil, err
	}
	ids := c.vocabularyIDs(doc)
	return len(ids), ids, doc, nil
}

func (c *Client) vocabularyIDs(doc *goquery.Document) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var ids []string
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if strings.HasPrefix(id, c.Site.VocabularyIDPrefix) && seen.Add(id) {
			ids = append(ids, id)
		}
	})
	return ids
}

// Scrape fetches pageURL and extracts the article and its vocabulary.
func (c *Client) Scrape(ctx context.Context, pageURL string) (*Page, error) {
	doc, err := c.document(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return c.Parse(pageURL, doc), nil
}

// Parse extracts the article, vocabulary and tooltip ids from doc.
func (c *Client) Parse(pageURL string, doc *goquery.Document) *Page {
	a := &article.Article{
		URL:           pageURL,
		PublishedDate: singleLine(baseText(doc.Find(c.Site.DateSelector).First())),
		Title:         singleLine(baseText(doc.Find(c.Site.TitleSelector).First())),
	}
	doc.Find(c.Site.BodySelector).Each(func(_ int, body *goquery.Selection) {
		body.Find("p").Each(func(_ int, p *goquery.Selection) {
			a.Body = append(a.Body, lines(baseText(p))...)
		})
	})
	if len(a.Body) == 0 {
		c.readabilityFallback(pageURL, doc, a)
	}

	vocab, words := c.vocabulary(doc)
	return &Page{
		Article:    a,
		Vocabulary: vocab,
		IDs:        c.vocabularyIDs(doc),
		Words:      words,
	}
}

// readabilityFallback fills the body from go-readability when the site's
// own containers are missing.
func (c *Client) readabilityFallback(pageURL string, doc *goquery.Document, a *article.Article) {
	html, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		c.logger().Warn("render page for readability", "url", pageURL, "error", err)
		return
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		c.logger().Warn("parse page url", "url", pageURL, "error", err)
		return
	}
	r, err := readability.FromReader(bytes.NewReader(SanitizeRuby([]byte(html))), u)
	if err != nil {
		c.logger().Warn("readability extraction failed", "url", pageURL, "error", err)
		return
	}
	c.logger().Info("article body containers missing, using readability", "url", pageURL)
	a.Body = lines(r.TextContent)
	if a.Title == "" {
		a.Title = singleLine(r.Title)
	}
}

// vocabulary collects the anchors in document order and maps each tooltip
// id to its anchor's surface. The first anchor carrying an id wins.
func (c *Client) vocabulary(doc *goquery.Document) (*article.Vocabulary, map[string]string) {
	vocab := article.NewVocabulary()
	words := make(map[string]string)
	doc.Find(c.Site.VocabularyAnchor).Each(func(_ int, a *goquery.Selection) {
		surface := strings.Join(strings.Fields(baseText(a)), "")
		if surface == "" {
			return
		}
		if id := c.anchorID(a); id != "" {
			if _, ok := words[id]; !ok {
				words[id] = surface
			}
		}
		reading := rubyReading(a)
		if reading == "" && c.Analyzer != nil && furigana.HasKanji(surface) && !furigana.HasHiragana(surface) {
			if r := c.Analyzer.Reading(surface); !furigana.HasKanji(r) {
				reading = r
				c.logger().Debug("inferred reading", "word", surface, "reading", reading)
			}
		}
		vocab.Add(surface, reading)
	})
	return vocab, words
}

// anchorID returns the tooltip id on the anchor itself or, failing that, on
// its first descendant with one.
func (c *Client) anchorID(a *goquery.Selection) string {
	if id, ok := a.Attr("id"); ok && strings.HasPrefix(id, c.Site.VocabularyIDPrefix) {
		return id
	}
	var id string
	a.Find("[id]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		if strings.HasPrefix(v, c.Site.VocabularyIDPrefix) {
			id = v
			return false
		}
		return true
	})
	return id
}
