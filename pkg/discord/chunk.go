package discord

import (
	"strings"
	"unicode/utf8"
)

// MessageLimit is the largest chunk sent as a single chat message.
const MessageLimit = 450

// SplitMessage breaks text into chunks of at most limit characters,
// preferring line boundaries. Lines longer than limit are cut.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		for utf8.RuneCountInString(line) > limit {
			flush()
			head, rest := cutRunes(line, limit)
			chunks = append(chunks, head)
			line = rest
		}

		n := utf8.RuneCountInString(line)
		sep := 0
		if currentLen > 0 {
			sep = 1
		}
		if currentLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
		currentLen += sep + n
	}
	flush()
	return chunks
}

func cutRunes(s string, n int) (string, string) {
	i := 0
	for idx := range s {
		if i == n {
			return s[:idx], s[idx:]
		}
		i++
	}
	return s, ""
}
