// Package pipeline runs one article-to-quiz pass end to end.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/article"
	"github.com/japaniel/easyquiz/pkg/browser"
	"github.com/japaniel/easyquiz/pkg/config"
	"github.com/japaniel/easyquiz/pkg/definition"
	"github.com/japaniel/easyquiz/pkg/nhkeasy"
	"github.com/japaniel/easyquiz/pkg/push"
	"github.com/japaniel/easyquiz/pkg/quiz"
	"github.com/japaniel/easyquiz/pkg/store"
)

// ArticleReader fetches article pages over HTTP. *nhkeasy.Client implements it.
type ArticleReader interface {
	nhkeasy.VocabularyCounter
	Scrape(ctx context.Context, pageURL string) (*nhkeasy.Page, error)
}

// SentimentScorer rates the article text. Its scores are logged with the run.
type SentimentScorer interface {
	Score(ctx context.Context, text string) ([]store.Score, error)
}

// DefinitionSource supplies a "word：definition" record for words whose
// tooltip was not read. *dictionary.Index implements it.
type DefinitionSource interface {
	Definition(surface, reading string) (string, bool)
}

// Pipeline holds the collaborators of a run. Config, OpenSession and Pages
// are required; the rest are optional. A Pipeline must not run concurrently
// with another one sharing the same files.
type Pipeline struct {
	Config      *config.Config
	OpenSession func(ctx context.Context) (browser.Session, error)
	Pages       ArticleReader
	Sender      push.Sender
	Sentiment   SentimentScorer
	Dictionary  DefinitionSource
	Rand        *rand.Rand
	Now         func() time.Time
	Logger      *slog.Logger
}

// Options select what a run produces.
type Options struct {
	// QuizType is config.QuizDefinition or config.QuizPronunciation. Empty
	// means the configured type.
	QuizType string
	// Questions is the quiz size. Zero means the configured size.
	Questions int
	Push      bool
	Broadcast bool
	Progress  definition.ProgressFunc
}

// Result is what a successful run produced.
type Result struct {
	URL               string
	Article           *article.Article
	Vocabulary        *article.Vocabulary
	Definitions       []string
	Selected          []string
	PronunciationQuiz string
	DefinitionQuiz    string
	AnswerKey         quiz.AnswerKey
	Sent              bool
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) rng() *rand.Rand {
	if p.Rand == nil {
		p.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return p.Rand
}

func (p *Pipeline) location() *time.Location {
	loc, err := p.Config.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

func (p *Pipeline) generator() *quiz.Generator {
	return &quiz.Generator{Rand: p.rng(), Now: p.now, Locale: p.Config.Locale, Location: p.location()}
}

func (p *Pipeline) runLog() store.RunLogFile {
	return store.RunLogFile{Path: p.Config.Paths.RunLog, Location: p.location()}
}

func (p *Pipeline) quizFile(kind string) (store.QuizFile, error) {
	switch kind {
	case config.QuizDefinition:
		return store.QuizFile{Path: p.Config.Paths.DefinitionQuiz}, nil
	case config.QuizPronunciation:
		return store.QuizFile{Path: p.Config.Paths.PronunciationQuiz}, nil
	default:
		return store.QuizFile{}, fmt.Errorf("unknown quiz type %q: %w", kind, apperr.ErrInvalidValue)
	}
}

func (p *Pipeline) resolve(opts Options) (Options, error) {
	if opts.QuizType == "" {
		opts.QuizType = p.Config.QuizType
	}
	if opts.Questions == 0 {
		opts.Questions = p.Config.Questions
	}
	if err := config.ValidateQuestions(opts.Questions); err != nil {
		return opts, err
	}
	if _, err := p.quizFile(opts.QuizType); err != nil {
		return opts, err
	}
	if opts.Push && p.Sender == nil {
		return opts, fmt.Errorf("push requested without a sender: %w", apperr.ErrInvalidValue)
	}
	return opts, nil
}

// Run finds an article, scrapes it with its definitions, writes the article
// file, both quizzes and the run log, and optionally pushes the selected
// quiz. The browser session is closed before Run returns.
func (p *Pipeline) Run(ctx context.Context, opts Options) (res *Result, err error) {
	opts, err = p.resolve(opts)
	if err != nil {
		return nil, err
	}
	cfg := p.Config
	log := p.logger()

	// Any failure from here on replaces the previous run's log, unless the
	// lister already recorded its own diagnostic or this run's log is written.
	logged := false
	defer func() {
		if err == nil || logged || errors.Is(err, apperr.ErrContentUnavailable) {
			return
		}
		msg := strings.ReplaceAll(err.Error(), "\n", " ")
		if werr := p.runLog().WriteFailure(p.now(), msg); werr != nil {
			log.Error("write run log", "error", werr)
		}
	}()

	session, err := p.OpenSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Warn("close browser", "error", cerr)
		}
	}()

	lister := &nhkeasy.Lister{
		Session: session,
		Counter: p.Pages,
		Site:    cfg.Site,
		Listing: cfg.Listing,
		Rand:    p.rng(),
		RunLog:  p.runLog(),
		Now:     p.now,
		Logger:  log,
	}
	url, err := lister.FindArticleURL(ctx, cfg.Listing.MaxAttempts, cfg.Listing.MinVocabulary)
	if err != nil {
		return nil, err
	}

	page, err := p.Pages.Scrape(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("scrape article: %w", err)
	}
	res = &Result{URL: url, Article: page.Article, Vocabulary: page.Vocabulary}
	log.Info("article scraped", "url", url, "title", page.Article.Title, "words", page.Vocabulary.Len())

	af := store.ArticleFile{Path: cfg.Paths.Article}
	if err := af.WriteArticle(url, page.Article.Paragraphs()); err != nil {
		return nil, err
	}
	if err := af.AppendWords(page.Vocabulary.Annotated()); err != nil {
		return nil, err
	}

	scraper := &definition.Scraper{Session: session, Site: cfg.Site, Browser: cfg.Browser, Logger: log}
	scraped, err := scraper.Scrape(url, page.IDs, opts.Progress)
	if err != nil {
		return nil, fmt.Errorf("scrape definitions: %w", err)
	}
	res.Definitions = p.pair(page, scraped)
	if err := af.AppendDefinitions(res.Definitions); err != nil {
		return nil, err
	}

	gen := p.generator()
	res.PronunciationQuiz, res.Selected, err = gen.Pronunciation(url, page.Vocabulary.Keys(), opts.Questions)
	if err != nil {
		return nil, err
	}
	res.DefinitionQuiz, res.AnswerKey, err = gen.Definition(page.Article, res.Selected, res.Definitions)
	if err != nil {
		return nil, err
	}
	if err := (store.QuizFile{Path: cfg.Paths.PronunciationQuiz}).Write(res.PronunciationQuiz); err != nil {
		return nil, err
	}
	if err := (store.QuizFile{Path: cfg.Paths.DefinitionQuiz}).Write(res.DefinitionQuiz); err != nil {
		return nil, err
	}
	log.Info("quizzes generated", "questions", len(res.Selected), "answer_key", string(res.AnswerKey))

	entry := store.RunLog{Time: p.now(), URL: url, AnswerKey: string(res.AnswerKey)}
	if p.Sentiment != nil {
		scores, err := p.Sentiment.Score(ctx, strings.Join(page.Article.Paragraphs(), "\n"))
		if err != nil {
			log.Warn("sentiment analysis failed, skipping", "error", err)
		} else {
			entry.Sentiment = scores
		}
	}
	if err := p.runLog().Write(entry); err != nil {
		return nil, err
	}
	logged = true

	if opts.Push {
		if err := p.Push(ctx, opts.QuizType, opts.Broadcast); err != nil {
			return res, err
		}
		res.Sent = true
	}
	return res, nil
}

// pair matches vocabulary words to scraped tooltips through the tooltip ids
// and returns the "word：definition" records in vocabulary order. scraped is
// aligned with page.IDs. Words without a usable tooltip are skipped with a
// warning unless the dictionary can fill them in.
func (p *Pipeline) pair(page *nhkeasy.Page, scraped []string) []string {
	log := p.logger()
	tooltips := make(map[string]string, len(scraped))
	for i, id := range page.IDs {
		if i >= len(scraped) || scraped[i] == "" {
			continue
		}
		surface, ok := page.Words[id]
		if !ok {
			log.Warn("tooltip has no vocabulary anchor, skipping", "id", id)
			continue
		}
		if _, seen := tooltips[surface]; !seen {
			tooltips[surface] = scraped[i]
		}
	}

	vocab := page.Vocabulary
	var records []string
	for i, e := range vocab.Entries() {
		var (
			record string
			ok     bool
		)
		if text, found := tooltips[e.Surface]; found {
			if _, meaning, sep := article.SplitDefinition(text); sep {
				record, ok = e.Surface+article.DefinitionSeparator+meaning, true
			} else {
				log.Warn("definition has no separator, skipping", "word", e.Surface, "index", i, "text", text)
			}
		} else {
			log.Warn("definition missing for word, skipping", "word", e.Surface, "index", i)
		}
		if !ok && p.Dictionary != nil {
			if record, ok = p.Dictionary.Definition(e.Surface, e.Reading); ok {
				log.Info("definition taken from dictionary", "word", e.Surface)
			}
		}
		if !ok {
			continue
		}
		_, meaning, _ := article.SplitDefinition(record)
		vocab.SetDefinition(e.Surface, meaning)
		records = append(records, record)
	}
	return records
}

// Push sends the stored quiz of the given kind, records it in the history
// and marks the run log as sent.
func (p *Pipeline) Push(ctx context.Context, kind string, broadcast bool) error {
	if p.Sender == nil {
		return fmt.Errorf("push requested without a sender: %w", apperr.ErrInvalidValue)
	}
	qf, err := p.quizFile(kind)
	if err != nil {
		return err
	}
	text, err := qf.Read()
	if err != nil {
		return err
	}
	rec, err := store.ReadArticleFile(p.Config.Paths.Article)
	if err != nil {
		return err
	}

	if err := push.PushQuiz(ctx, p.Sender, text, broadcast); err != nil {
		return fmt.Errorf("push %s quiz: %w", kind, err)
	}
	p.logger().Info("quiz pushed", "type", kind, "broadcast", broadcast, "url", rec.URL)

	history := store.HistoryFile{Path: p.Config.Paths.History}
	stamp := p.generator().Today()
	if err := history.Append(stamp, rec.URL, rec.VocabularyBlock(), rec.DefinitionBlock()); err != nil {
		return err
	}
	return p.runLog().AppendSent()
}

// Announce sends the exam-day greeting and sticker, followed by the last
// run's vocabulary when withVocabulary is set.
func (p *Pipeline) Announce(ctx context.Context, withVocabulary, broadcast bool) error {
	if p.Sender == nil {
		return fmt.Errorf("announce requested without a sender: %w", apperr.ErrInvalidValue)
	}
	msgs := []push.Message{
		push.TextMessage(push.Announcement(p.now().In(p.location()))),
		push.DefaultSticker,
	}
	if withVocabulary {
		rec, err := store.ReadArticleFile(p.Config.Paths.Article)
		if err != nil {
			return err
		}
		msgs = append(msgs, push.TextMessage(push.VocabularyReview(rec.VocabularyBlock())))
	}
	for _, m := range msgs {
		if err := p.Sender.Send(ctx, m, broadcast); err != nil {
			return fmt.Errorf("send %s message: %w", m.Kind, err)
		}
	}
	return nil
}
