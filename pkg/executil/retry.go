package executil

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds retries of failed attempts. The delay before attempt n+1
// is min(BaseDelay * 2^(n-1), MaxDelay).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// Delay returns the sleep that follows the given 1-indexed failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 || p.BaseDelay == 0 {
		return 0
	}

	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if float64(d) >= float64(p.MaxDelay)/2 {
			return p.MaxDelay
		}
		d *= 2
	}
	return min(d, p.MaxDelay)
}

// normalized clamps the policy so BaseDelay never exceeds the ceiling.
func (p RetryPolicy) normalized() RetryPolicy {
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxDelay < p.BaseDelay {
		if p.MaxDelay <= 0 {
			p.MaxDelay = p.BaseDelay
		} else {
			p.BaseDelay = p.MaxDelay
		}
	}
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	return p
}

// backOff returns a jitter-free exponential backoff whose NextBackOff sequence
// matches Delay(1), Delay(2), ...
func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	p = p.normalized()
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.MaxDelay,
	}
	b.Reset()
	return b
}
