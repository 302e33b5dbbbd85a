package interrupt

import (
	"context"
	"log/slog"

	"github.com/eiannone/keyboard"
)

// Keypress fires its Token when Esc is pressed during a response. On headless
// hosts with no controlling terminal the keyboard cannot be opened; that is
// logged at debug level and Run returns nil, leaving voice interruption as
// the only stop channel.
type Keypress struct {
	token *Token
	log   *slog.Logger
}

// NewKeypress builds a Keypress listener firing token.
func NewKeypress(token *Token, log *slog.Logger) *Keypress {
	if log == nil {
		log = slog.Default()
	}
	return &Keypress{token: token, log: log}
}

// Run listens for Esc until the context is cancelled or the key is seen.
func (k *Keypress) Run(ctx context.Context) error {
	if err := keyboard.Open(); err != nil {
		k.log.Debug("keyboard unavailable, keypress interruption disabled", "error", err)
		return nil
	}

	// GetKey has no cancellation; closing the keyboard from the select below
	// makes it return an error and unblocks the goroutine.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			if key == keyboard.KeyEsc {
				k.log.Info("escape pressed, interrupting response")
				k.token.Cancel()
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	keyboard.Close()
	<-done
	return nil
}
