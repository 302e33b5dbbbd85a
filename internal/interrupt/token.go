// Package interrupt lets a spoken response be cut short. A response session
// arms one or more interrupt sources (a barge-in listener on the microphone,
// an Esc keypress listener); each source fires a set-once Token, and the
// Controller ORs the tokens into the single stop signal the playback loop
// polls.
package interrupt

import "sync/atomic"

// Token is a set-once cancellation flag. The zero value is ready to use and
// safe for concurrent use.
type Token struct {
	fired atomic.Bool
}

// Cancel fires the token. Further calls are no-ops.
func (t *Token) Cancel() {
	t.fired.Store(true)
}

// Triggered reports whether the token has fired.
func (t *Token) Triggered() bool {
	return t.fired.Load()
}
