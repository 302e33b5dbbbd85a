// Package speak turns an LLM response into speech: the chunker slices the
// text into sentence-sized pieces that sound natural on their own, and the
// player synthesises and plays them with a one-chunk look-ahead.
package speak

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minChunkLen drops fragments too short to be worth synthesising, measured
// after whitespace collapse.
const minChunkLen = 3

var (
	codeSpanRe = regexp.MustCompile("`[^`]*`")
	urlRe      = regexp.MustCompile(`https?://\S+`)
	headingRe  = regexp.MustCompile(`^#+\s+`)
	bulletRe   = regexp.MustCompile(`^[-•*]\s+`)
	numberedRe = regexp.MustCompile(`^\d+[.)]\s+`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Chunk splits a response into ordered speakable chunks. Markdown emphasis
// markers, inline code ticks, and URLs are stripped first; headings, bullet
// items, and numbered items each become their own chunk; paragraphs are split
// into sentences. Chunks shorter than three characters are dropped.
func Chunk(response string) []string {
	text := stripMarkup(response)

	var chunks []string
	emit := func(s string) {
		s = strings.ReplaceAll(s, "*", "")
		s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
		if utf8.RuneCountInString(s) >= minChunkLen {
			chunks = append(chunks, s)
		}
	}
	var para strings.Builder
	flushPara := func() {
		if para.Len() == 0 {
			return
		}
		for _, sentence := range splitSentences(para.String()) {
			emit(sentence)
		}
		para.Reset()
	}

	for line := range strings.Lines(text) {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			flushPara()
		case headingRe.MatchString(line):
			flushPara()
			emit(headingRe.ReplaceAllString(line, ""))
		case bulletRe.MatchString(line):
			flushPara()
			emit(bulletRe.ReplaceAllString(line, ""))
		case numberedRe.MatchString(line):
			flushPara()
			emit(numberedRe.ReplaceAllString(line, ""))
		default:
			if para.Len() > 0 {
				para.WriteByte(' ')
			}
			para.WriteString(line)
		}
	}
	flushPara()
	return chunks
}

// stripMarkup removes markdown decoration that would be read aloud
// literally: bold markers, inline code (content and ticks), and URLs.
// Single asterisks are removed later, per chunk, so that bullet markers
// survive until line classification.
func stripMarkup(s string) string {
	s = codeSpanRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "`", "")
	s = urlRe.ReplaceAllString(s, "")
	return s
}

// splitSentences cuts text at sentence-ending punctuation followed by
// whitespace and an upper-case letter. The capital-letter requirement keeps
// abbreviations ("Dr. Smith") and decimals ("3.14") intact when followed by
// lower-case continuations, at the cost of missing sentences that open with
// a digit.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !unicode.IsUpper(runes[j]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}
