// Package browsertest provides an in-memory browser.Session for tests.
package browsertest

import (
	"fmt"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

// Session is a scripted fake. Pages maps URLs to HTML; Tooltips maps element
// ids to the text shown after hovering them.
type Session struct {
	Pages    map[string]string
	Tooltips map[string]string
	// NavigateErr, when set, is returned by every Navigate call.
	NavigateErr error

	Visited []string
	Scripts []string
	Hovered []string
	Closed  int

	current string
	tooltip string
	shown   bool
}

// New returns an empty fake.
func New() *Session {
	return &Session{Pages: map[string]string{}, Tooltips: map[string]string{}}
}

func (s *Session) Navigate(url string) error {
	s.Visited = append(s.Visited, url)
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	if _, ok := s.Pages[url]; !ok {
		return fmt.Errorf("navigate %s: %w", url, apperr.ErrConnectivity)
	}
	s.current = url
	s.shown = false
	return nil
}

func (s *Session) HTML() (string, error) {
	return s.Pages[s.current], nil
}

func (s *Session) Exec(script string) error {
	s.Scripts = append(s.Scripts, script)
	return nil
}

func (s *Session) Hover(id string) error {
	s.Hovered = append(s.Hovered, id)
	text, ok := s.Tooltips[id]
	if !ok {
		s.shown = false
		return fmt.Errorf("#%s: %w", id, apperr.ErrElementNotFound)
	}
	s.tooltip, s.shown = text, true
	return nil
}

// Text returns the tooltip of the last hovered element regardless of
// selector. An empty tooltip behaves like one that never appeared.
func (s *Session) Text(selector string) (string, error) {
	if !s.shown || s.tooltip == "" {
		return "", fmt.Errorf("%s: %w", selector, apperr.ErrElementNotFound)
	}
	return s.tooltip, nil
}

func (s *Session) Close() error {
	s.Closed++
	return nil
}
