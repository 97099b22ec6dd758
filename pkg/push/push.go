// Package push delivers finished quizzes to students through a chat bot.
package push

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/easyquiz/pkg/apperr"
)

// Kind is the message type.
type Kind int

const (
	Text Kind = iota
	Sticker
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Sticker:
		return "sticker"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Message is a single chat message.
type Message struct {
	Kind      Kind
	Text      string
	PackageID string
	StickerID string
}

// TextMessage returns a text message.
func TextMessage(s string) Message {
	return Message{Kind: Text, Text: s}
}

// DefaultSticker is sent after the exam-day announcement.
var DefaultSticker = Message{Kind: Sticker, PackageID: "6359", StickerID: "11069859"}

// Sender sends one message, to the configured user or to every follower
// when broadcast is set. Authentication failures are apperr.ErrPermission.
type Sender interface {
	Send(ctx context.Context, m Message, broadcast bool) error
}

// SplitQuiz splits quiz text at the first "---" into the instructions and
// the questions, both trimmed.
func SplitQuiz(text string) (instructions, questions string, err error) {
	before, after, ok := strings.Cut(text, "---")
	if !ok {
		return "", "", fmt.Errorf("quiz text has no --- separator: %w", apperr.ErrInvalidValue)
	}
	return strings.TrimSpace(before), strings.TrimSpace(after), nil
}

// PushQuiz sends the instructions and the questions of text as two messages.
func PushQuiz(ctx context.Context, s Sender, text string, broadcast bool) error {
	instructions, questions, err := SplitQuiz(text)
	if err != nil {
		return err
	}
	for _, part := range []string{instructions, questions} {
		if err := s.Send(ctx, TextMessage(part), broadcast); err != nil {
			return err
		}
	}
	return nil
}

var weekdayShortJA = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Announcement is the exam-day greeting for t.
func Announcement(t time.Time) string {
	day := fmt.Sprintf("%s (%s)", t.Format("2006年01月02日"), weekdayShortJA[t.Weekday()])
	return fmt.Sprintf("【重要】%s\n\nおはようございます！今日は試験の日です✍️\n頑張ってください！", day)
}

// VocabularyReview presents the previous run's annotated words.
func VocabularyReview(vocabulary string) string {
	return "お疲れ様です。昨日のニュース📰の単語です。\n\n" + vocabulary
}
