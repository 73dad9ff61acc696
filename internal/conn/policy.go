package conn

import (
	"time"

	"github.com/FarhanAli04/multi-sub000/pkg/config"
	"github.com/cenkalti/backoff/v4"
)

// Policy governs the delay and attempt limit between reconnect attempts
// after an unexpected close. The delay curve is a policy parameter: a fixed
// interval by default, exponential when configured.
type Policy struct {
	MaxAttempts int
	source      backoff.BackOff
}

func NewPolicy(cfg config.ReconnectConfig) *Policy {
	if cfg.Exponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.Delay
		b.MaxInterval = cfg.MaxDelay
		b.MaxElapsedTime = 0 // attempts are capped, elapsed time is not
		b.Reset()
		return &Policy{MaxAttempts: cfg.MaxAttempts, source: b}
	}
	return &Policy{MaxAttempts: cfg.MaxAttempts, source: backoff.NewConstantBackOff(cfg.Delay)}
}

// NextDelay returns the wait before the next reconnect attempt.
func (p *Policy) NextDelay() time.Duration {
	d := p.source.NextBackOff()
	if d == backoff.Stop {
		return 0
	}
	return d
}

// Reset rewinds the delay curve. Called after a successful open.
func (p *Policy) Reset() {
	p.source.Reset()
}
