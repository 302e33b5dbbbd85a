package interrupt

// Source is anything that can request the current response be stopped.
type Source interface {
	// Triggered reports whether this source has requested a stop. Must be
	// cheap and safe to call concurrently; it is polled every 50 ms during
	// playback.
	Triggered() bool
}

// Controller combines interrupt sources. A response stops as soon as any
// source triggers.
type Controller struct {
	sources []Source
}

// NewController builds a Controller over the given sources. Nil sources are
// ignored.
func NewController(sources ...Source) *Controller {
	c := &Controller{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// ShouldStop reports whether any source has triggered.
func (c *Controller) ShouldStop() bool {
	for _, s := range c.sources {
		if s.Triggered() {
			return true
		}
	}
	return false
}

var _ Source = (*Token)(nil)
