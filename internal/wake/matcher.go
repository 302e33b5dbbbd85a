// Package wake gates transcribed utterances on a configured wake phrase.
//
// Matching is deliberately forgiving about what STT engines emit: transcripts
// are normalised (lowercased, punctuation collapsed to spaces) before the
// token-level prefix comparison, so "Hey, Pal!" and "hey pal" both match the
// phrase "hey pal". Stripping, on the other hand, works on the original
// transcript so that the remainder keeps its capitalisation and punctuation.
package wake

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// punctRun matches the punctuation characters treated as token separators.
var punctRun = regexp.MustCompile(`[,.:;!?\-]+`)

// leadToken matches one leading token with any separator characters before it.
var leadToken = regexp.MustCompile(`^[\s,.:;!?\-]*\S+`)

// strippable is the cutset removed from the front of the remainder after the
// wake tokens are dropped.
const strippable = " ,.:;!?-"

// Matcher recognises and strips wake phrases at the start of an utterance.
// It is immutable after construction and safe for concurrent use.
type Matcher struct {
	phrases []phrase
}

type phrase struct {
	raw    string
	tokens []string
}

// New builds a Matcher for the given phrases. Phrases that normalise to
// nothing are rejected; at least one usable phrase is required. Longer
// phrases win over shorter ones, so "hey pal" is tried before "pal".
func New(phrases []string) (*Matcher, error) {
	m := &Matcher{}
	for _, p := range phrases {
		tokens := tokenize(p)
		if len(tokens) == 0 {
			return nil, fmt.Errorf("wake: phrase %q normalises to nothing", p)
		}
		m.phrases = append(m.phrases, phrase{raw: p, tokens: tokens})
	}
	if len(m.phrases) == 0 {
		return nil, errors.New("wake: at least one phrase is required")
	}
	sort.SliceStable(m.phrases, func(i, j int) bool {
		if len(m.phrases[i].tokens) != len(m.phrases[j].tokens) {
			return len(m.phrases[i].tokens) > len(m.phrases[j].tokens)
		}
		return len(m.phrases[i].raw) > len(m.phrases[j].raw)
	})
	return m, nil
}

// normalize lowercases the text and collapses punctuation and whitespace runs
// into single spaces. Applying it twice yields the same result as once.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = punctRun.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

func tokenize(s string) []string {
	return strings.Fields(normalize(s))
}

// Match reports whether the transcript begins with any configured wake
// phrase.
func (m *Matcher) Match(transcript string) bool {
	_, ok := m.longestMatch(transcript)
	return ok
}

// longestMatch returns the first (longest) phrase whose tokens prefix the
// normalised transcript.
func (m *Matcher) longestMatch(transcript string) (phrase, bool) {
	tokens := tokenize(transcript)
	for _, p := range m.phrases {
		if len(tokens) < len(p.tokens) {
			continue
		}
		match := true
		for i, want := range p.tokens {
			if tokens[i] != want {
				match = false
				break
			}
		}
		if match {
			return p, true
		}
	}
	return phrase{}, false
}

// Strip removes the matched wake phrase from the front of the ORIGINAL
// transcript, preserving the remainder's casing and punctuation, then trims
// residual leading separators. Three outcomes:
//
//   - no wake phrase: the transcript is returned unchanged;
//   - wake phrase plus a query: the query alone;
//   - wake phrase and nothing else: the full original transcript, so the
//     caller still has something to act on.
func (m *Matcher) Strip(transcript string) string {
	p, ok := m.longestMatch(transcript)
	if !ok {
		return transcript
	}
	remaining := transcript
	for range p.tokens {
		remaining = leadToken.ReplaceAllString(remaining, "")
	}
	remaining = strings.TrimLeft(remaining, strippable)
	if remaining == "" {
		return transcript
	}
	return remaining
}
