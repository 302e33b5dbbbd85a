package interrupt

import (
	"sync"
	"testing"
)

func TestTokenSetOnce(t *testing.T) {
	t.Parallel()

	token := &Token{}
	if token.Triggered() {
		t.Fatal("fresh token already triggered")
	}
	token.Cancel()
	token.Cancel()
	if !token.Triggered() {
		t.Fatal("cancelled token not triggered")
	}
}

func TestTokenConcurrentCancel(t *testing.T) {
	t.Parallel()

	token := &Token{}
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token.Cancel()
		}()
	}
	wg.Wait()
	if !token.Triggered() {
		t.Fatal("token not triggered after concurrent cancels")
	}
}

func TestControllerORsSources(t *testing.T) {
	t.Parallel()

	a, b := &Token{}, &Token{}
	c := NewController(a, b, nil)

	if c.ShouldStop() {
		t.Fatal("controller triggered with no fired source")
	}
	b.Cancel()
	if !c.ShouldStop() {
		t.Fatal("controller missed a fired source")
	}
}

func TestControllerNoSources(t *testing.T) {
	t.Parallel()

	if NewController().ShouldStop() {
		t.Fatal("empty controller must never stop a response")
	}
}
