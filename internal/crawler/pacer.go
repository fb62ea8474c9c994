package crawler

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a pause of at least delay between the end of one fetch and
// the start of the next.
type Pacer struct {
	limiter *rate.Limiter
	delay   time.Duration
}

// NewPacer creates a pacer. A zero delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	p := &Pacer{delay: delay}
	p.limiter = p.newLimiter()
	return p
}

// Wait blocks until delay has elapsed since the last Mark, or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Mark records that a fetch has just finished. The next Wait lasts until a
// full delay has passed from now, however long the fetch itself took.
func (p *Pacer) Mark() {
	p.limiter = p.newLimiter()
	p.limiter.Allow()
}

// Delay returns the configured pause.
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

func (p *Pacer) newLimiter() *rate.Limiter {
	if p.delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.delay), 1)
}
