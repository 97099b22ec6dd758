package quiz

import (
	"strings"
	"unicode"
)

// Score counts the positions where answer matches the key. Case and
// whitespace in answer are ignored.
func (k AnswerKey) Score(answer string) int {
	answer = strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, answer))

	n := 0
	for i := 0; i < len(k) && i < len(answer); i++ {
		if k[i] == answer[i] {
			n++
		}
	}
	return n
}

// ParseReply extracts the student number and the answer from a reply in the
// format the definition quiz asks for. Full-width colons are accepted.
func ParseReply(text string) (student, answer string, ok bool) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.ReplaceAll(strings.TrimSpace(line), "：", ":")
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(label) {
		case "学生番号":
			student = value
		case "解答":
			answer = value
		}
	}
	return student, answer, answer != ""
}
