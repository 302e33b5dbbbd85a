// Package typing plays keyboard clatter while the assistant is thinking.
//
// A single recording of someone typing is sliced into individual keystroke
// sounds once at load time; during a response the player replays random
// keystrokes with a human cadence (bursts of keys, short pauses between
// words, longer pauses as if composing a sentence) until stopped.
package typing

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/wakepal/wakepal/pkg/audio"
)

// Keystroke extraction parameters.
const (
	envelopeWindow = 5 * time.Millisecond
	onsetRatio     = 0.15
	minOnsetGap    = 80 * time.Millisecond
	maxKeyLength   = 150 * time.Millisecond
	fadeLength     = 5 * time.Millisecond
)

// Sounds holds the individual keystroke clips sliced from one recording.
type Sounds struct {
	Keys       [][]float32
	SampleRate int
}

// Load reads a WAV recording of typing and slices it into keystrokes.
func Load(path string) (*Sounds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("typing: read %s: %w", path, err)
	}
	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("typing: decode %s: %w", path, err)
	}
	keys := ExtractKeystrokes(samples, rate)
	if len(keys) == 0 {
		return nil, fmt.Errorf("typing: no keystrokes found in %s", path)
	}
	return &Sounds{Keys: keys, SampleRate: rate}, nil
}

// ExtractKeystrokes finds keystroke onsets in a typing recording and returns
// each keystroke as its own clip. Onsets are peaks in a 5 ms max-amplitude
// envelope that exceed 15% of the recording's loudest sample; onsets closer
// than 80 ms are treated as one keystroke. Each clip runs to the next onset
// or at most 150 ms, with a 5 ms fade at the end to avoid clicks.
func ExtractKeystrokes(samples []float32, sampleRate int) [][]float32 {
	if len(samples) == 0 || sampleRate <= 0 {
		return nil
	}
	window := int(envelopeWindow.Seconds() * float64(sampleRate))
	if window < 1 {
		window = 1
	}

	envelope := make([]float32, 0, len(samples)/window+1)
	for start := 0; start < len(samples); start += window {
		end := min(start+window, len(samples))
		var peak float32
		for _, s := range samples[start:end] {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
		envelope = append(envelope, peak)
	}

	var loudest float32
	for _, e := range envelope {
		if e > loudest {
			loudest = e
		}
	}
	if loudest == 0 {
		return nil
	}
	threshold := loudest * onsetRatio

	gapWindows := int(minOnsetGap / envelopeWindow)
	var onsets []int
	lastOnset := -gapWindows
	for i, e := range envelope {
		if e >= threshold && i-lastOnset >= gapWindows {
			onsets = append(onsets, i*window)
			lastOnset = i
		}
	}

	maxLen := int(maxKeyLength.Seconds() * float64(sampleRate))
	fadeLen := int(fadeLength.Seconds() * float64(sampleRate))
	keys := make([][]float32, 0, len(onsets))
	for i, start := range onsets {
		end := min(start+maxLen, len(samples))
		if i+1 < len(onsets) && onsets[i+1] < end {
			end = onsets[i+1]
		}
		clip := append([]float32(nil), samples[start:end]...)
		for j := range min(fadeLen, len(clip)) {
			clip[len(clip)-1-j] *= float32(j) / float32(fadeLen)
		}
		keys = append(keys, clip)
	}
	return keys
}

// Cadence parameters: how the player spaces keystrokes out.
const (
	burstKeysMin  = 3
	burstKeysMax  = 8
	keyGapMin     = 30 * time.Millisecond
	keyGapMax     = 70 * time.Millisecond
	wordPauseMin  = 80 * time.Millisecond
	wordPauseMax  = 150 * time.Millisecond
	thinkEveryMin = 4
	thinkEveryMax = 9
	thinkPauseMin = 250 * time.Millisecond
	thinkPauseMax = 500 * time.Millisecond
)

// Player replays keystrokes in the background until stopped.
type Player struct {
	sounds   *Sounds
	platform audio.Platform

	stop chan struct{}
	done chan struct{}
}

// NewPlayer builds a Player for the given sounds.
func NewPlayer(sounds *Sounds, platform audio.Platform) *Player {
	return &Player{sounds: sounds, platform: platform}
}

// Start begins playing typing sounds in a background goroutine. It returns
// an error only if the playback device cannot be opened. Calling Start while
// already playing is a no-op.
func (p *Player) Start() error {
	if p.stop != nil {
		return nil
	}
	stream, err := p.platform.OpenPlayback(p.sounds.SampleRate)
	if err != nil {
		return fmt.Errorf("typing: open playback: %w", err)
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(stream)
	return nil
}

// Stop halts the typing sounds and waits for the background goroutine to
// finish. Safe to call when not playing.
func (p *Player) Stop() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop = nil
	p.done = nil
}

func (p *Player) run(stream audio.PlaybackStream) {
	defer close(p.done)
	defer stream.Close()

	wordsUntilThink := randBetween(thinkEveryMin, thinkEveryMax)
	for {
		// One "word": a burst of keystrokes.
		for range randBetween(burstKeysMin, burstKeysMax) {
			key := p.sounds.Keys[rand.IntN(len(p.sounds.Keys))]
			stream.Play(audio.Clip{Samples: key, SampleRate: p.sounds.SampleRate})
			if !p.sleep(randDuration(keyGapMin, keyGapMax)) {
				return
			}
		}

		pause := randDuration(wordPauseMin, wordPauseMax)
		wordsUntilThink--
		if wordsUntilThink <= 0 {
			pause = randDuration(thinkPauseMin, thinkPauseMax)
			wordsUntilThink = randBetween(thinkEveryMin, thinkEveryMax)
		}
		if !p.sleep(pause) {
			return
		}
	}
}

// sleep waits for d or until Stop is called; it reports whether playback
// should continue.
func (p *Player) sleep(d time.Duration) bool {
	select {
	case <-p.stop:
		return false
	case <-time.After(d):
		return true
	}
}

func randBetween(lo, hi int) int {
	return lo + rand.IntN(hi-lo+1)
}

func randDuration(lo, hi time.Duration) time.Duration {
	return lo + rand.N(hi-lo)
}
