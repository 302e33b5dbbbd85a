package app

// State is the coordinator's mode. The assistant is always in exactly one:
// capturing a query, or speaking (and watching for interruptions). There is
// no shared busy flag; the transition points in Run are the only writers.
type State int

const (
	// StateListening means the microphone is feeding the primary segmenter
	// and the assistant is waiting for a wake phrase.
	StateListening State = iota

	// StateResponding means a response is being generated or played and the
	// interrupt sources are armed.
	StateResponding
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateResponding:
		return "responding"
	}
	return "unknown"
}
