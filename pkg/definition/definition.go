// Package definition reads the dictionary tooltip of every annotated word
// on an article page.
package definition

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/japaniel/easyquiz/pkg/apperr"
	"github.com/japaniel/easyquiz/pkg/browser"
	"github.com/japaniel/easyquiz/pkg/config"
)

// ProgressFunc is called after every tooltip with the fraction done and the
// 1-based position. It runs on the scraping goroutine and must not block.
type ProgressFunc func(fraction float64, current, total int)

// Result is one tooltip read.
type Result struct {
	Index int // 1-based
	Total int
	ID    string
	Text  string
	Err   error
}

// Scraper drives a browser session over an article's tooltips.
type Scraper struct {
	Session browser.Session
	Site    config.Site
	Browser config.Browser
	Logger  *slog.Logger
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

func (s *Scraper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Definitions navigates to url, hides the furigana and yields one Result per
// id in order. A navigation failure is yielded once as a connectivity error
// and ends the sequence.
func (s *Scraper) Definitions(url string, ids []string) iter.Seq[Result] {
	return func(yield func(Result) bool) {
		if err := s.prepare(url); err != nil {
			yield(Result{Total: len(ids), Err: err})
			return
		}
		for i, id := range ids {
			r := Result{Index: i + 1, Total: len(ids), ID: id}
			r.Text, r.Err = s.read(id)
			if !yield(r) {
				return
			}
		}
	}
}

// Scrape collects the normalized tooltip texts for ids. The result has one
// slot per id; a missing element or tooltip is logged and leaves its slot
// empty.
func (s *Scraper) Scrape(url string, ids []string, progress ProgressFunc) ([]string, error) {
	out := make([]string, len(ids))
	for r := range s.Definitions(url, ids) {
		if r.Index == 0 {
			return nil, r.Err
		}
		if r.Err != nil {
			s.logger().Warn("definition skipped", "id", r.ID, "index", r.Index, "error", r.Err)
		} else {
			out[r.Index-1] = Normalize(r.Text)
		}
		if progress != nil {
			progress(float64(r.Index)/float64(r.Total), r.Index, r.Total)
		}
	}
	return out, nil
}

func (s *Scraper) prepare(url string) error {
	if err := s.Session.Navigate(url); err != nil {
		if !errors.Is(err, apperr.ErrConnectivity) {
			err = fmt.Errorf("%w: %w", apperr.ErrConnectivity, err)
		}
		return err
	}
	class := s.Site.RubyToggleClass
	script := fmt.Sprintf(`() => {
		const el = document.querySelector(%s);
		if (el) el.setAttribute('class', %s);
	}`, strconv.Quote("."+class), strconv.Quote(class+" is-no-ruby"))
	if err := s.Session.Exec(script); err != nil {
		s.logger().Warn("disable furigana", "error", err)
	}
	if scale := s.Browser.PageScale; scale > 0 && scale != 1 {
		script := fmt.Sprintf(`() => { document.body.style.transform = 'scale(%s)' }`,
			strconv.FormatFloat(scale, 'f', -1, 64))
		if err := s.Session.Exec(script); err != nil {
			s.logger().Warn("rescale page", "error", err)
		}
	}
	if d := s.Browser.SettleDelay; d > 0 {
		s.sleep(d)
	}
	return nil
}

func (s *Scraper) read(id string) (string, error) {
	if err := s.Session.Hover(id); err != nil {
		return "", err
	}
	text, err := s.Session.Text(s.Site.TooltipSelector)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("tooltip for %s is empty: %w", id, apperr.ErrElementNotFound)
	}
	return text, nil
}

func (s *Scraper) sleep(d time.Duration) {
	if s.Sleep != nil {
		s.Sleep(d)
		return
	}
	time.Sleep(d)
}

// Normalize strips all whitespace from a tooltip and puts a full-width colon
// before the first sense number, so "はしる【走る】 1 to run" becomes
// "はしる【走る】： 1torun".
func Normalize(text string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	return strings.Replace(compact, "1", "： 1", 1)
}
