package wake

import "testing"

func mustMatcher(t *testing.T, phrases ...string) *Matcher {
	t.Helper()
	m, err := New(phrases)
	if err != nil {
		t.Fatalf("New(%q): %v", phrases, err)
	}
	return m
}

func TestNewRejectsEmptyInput(t *testing.T) {
	t.Parallel()

	if _, err := New(nil); err == nil {
		t.Error("expected error for no phrases")
	}
	if _, err := New([]string{"..."}); err == nil {
		t.Error("expected error for phrase that normalises to nothing")
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal")

	tests := []struct {
		name       string
		transcript string
		want       bool
	}{
		{"exact", "hey pal what's the weather", true},
		{"punctuated and capitalised", "Hey, Pal! What's the weather?", true},
		{"wake phrase only", "Hey Pal", true},
		{"missing wake phrase", "what's the weather", false},
		{"wake phrase not at start", "I said hey pal earlier", false},
		{"partial phrase", "hey what's up", false},
		{"empty transcript", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := m.Match(tt.transcript); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.transcript, got, tt.want)
			}
		})
	}
}

func TestStripRemovesWakeTokensFromOriginal(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal")

	got := m.Strip("Hey Pal, what's the weather")
	if got != "what's the weather" {
		t.Errorf("got %q, want %q", got, "what's the weather")
	}
}

func TestStripPreservesRemainderVerbatim(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal")

	got := m.Strip("hey pal Remind me about Dave's party, OK?")
	if got != "Remind me about Dave's party, OK?" {
		t.Errorf("got %q", got)
	}
}

func TestStripNoMatchReturnsUnchanged(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal")

	in := "Tell me a joke."
	if got := m.Strip(in); got != in {
		t.Errorf("got %q, want unchanged %q", got, in)
	}
}

func TestStripWakeOnlyReturnsOriginal(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal")

	in := "Hey, Pal!"
	if got := m.Strip(in); got != in {
		t.Errorf("got %q, want original %q", got, in)
	}
}

func TestLongestPhraseWins(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "pal", "hey pal")

	// The two-token phrase must be tried first; otherwise only "pal"
	// would... not match at all here, but for "pal hey pal" ordering shows.
	got := m.Strip("hey pal open the door")
	if got != "open the door" {
		t.Errorf("got %q, want %q", got, "open the door")
	}

	got = m.Strip("pal open the door")
	if got != "open the door" {
		t.Errorf("got %q, want %q", got, "open the door")
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Hey, Pal! What's  up?",
		"already normal text",
		"--- punctuation --- runs ---",
		"",
	}
	for _, in := range inputs {
		once := normalize(in)
		twice := normalize(once)
		if once != twice {
			t.Errorf("normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestMatchStripConsistency(t *testing.T) {
	t.Parallel()

	m := mustMatcher(t, "hey pal", "computer")

	transcripts := []string{
		"hey pal do the thing",
		"Computer, engage.",
		"no wake word here",
		"hey pal",
	}
	for _, tr := range transcripts {
		matched := m.Match(tr)
		stripped := m.Strip(tr)
		if !matched && stripped != tr {
			t.Errorf("Strip modified unmatched transcript %q -> %q", tr, stripped)
		}
		if matched && stripped == "" {
			t.Errorf("Strip(%q) returned empty string", tr)
		}
	}
}
