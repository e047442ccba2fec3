package speech

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxChunkLength is the longest text sent in one synthesis request.
const MaxChunkLength = 4500

var sentenceRegex = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)

// SplitChunks cuts text into pieces of at most limit runes, breaking between
// sentences. A sentence longer than limit is broken between words, and a word
// longer than limit is broken wherever the limit falls.
func SplitChunks(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxChunkLength
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
	add := func(piece string) {
		n := utf8.RuneCountInString(piece)
		if currentLen > 0 && currentLen+1+n > limit {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(piece)
		currentLen += n
	}

	for _, sentence := range sentenceRegex.FindAllString(text, -1) {
		sentence = strings.Join(strings.Fields(sentence), " ")
		if sentence == "" {
			continue
		}
		if utf8.RuneCountInString(sentence) <= limit {
			add(sentence)
			continue
		}

		flush()
		for _, word := range strings.Fields(sentence) {
			for _, piece := range splitWord(word, limit) {
				add(piece)
			}
		}
		flush()
	}
	flush()

	return chunks
}

func splitWord(word string, limit int) []string {
	if utf8.RuneCountInString(word) <= limit {
		return []string{word}
	}
	var pieces []string
	runes := []rune(word)
	for len(runes) > limit {
		pieces = append(pieces, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}
