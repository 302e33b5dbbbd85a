package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// WakePhrasesChanged is true when the wake phrase list differs; the
	// listening loop rebuilds its matcher on the next iteration.
	WakePhrasesChanged bool
	NewWakePhrases     []string

	// StopWordsChanged is true when the barge-in stop words differ.
	StopWordsChanged bool
	NewStopWords     []string

	// TypingChanged is true when typing sounds were toggled or repointed at
	// a different recording.
	TypingChanged bool
	NewTyping     TypingConfig
}

// Any reports whether the diff contains any change at all.
func (d ConfigDiff) Any() bool {
	return d.LogLevelChanged || d.WakePhrasesChanged || d.StopWordsChanged || d.TypingChanged
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; device,
// segmenter, and provider changes need a restart and are ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Wake.Phrases, new.Wake.Phrases) {
		d.WakePhrasesChanged = true
		d.NewWakePhrases = new.Wake.Phrases
	}

	if !slices.Equal(old.BargeIn.StopWords, new.BargeIn.StopWords) {
		d.StopWordsChanged = true
		d.NewStopWords = new.BargeIn.StopWords
	}

	if old.Typing != new.Typing {
		d.TypingChanged = true
		d.NewTyping = new.Typing
	}

	return d
}
