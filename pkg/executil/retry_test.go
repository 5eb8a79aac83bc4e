package executil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: time.Second, MaxDelay: 10 * time.Second}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{50, 10 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Delay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_BackOffMatchesDelay(t *testing.T) {
	policies := []RetryPolicy{
		{BaseDelay: time.Second, MaxDelay: 30 * time.Second},
		{BaseDelay: 20 * time.Millisecond, MaxDelay: 30 * time.Millisecond},
		{BaseDelay: 5 * time.Second, MaxDelay: 5 * time.Second},
		{BaseDelay: 0, MaxDelay: time.Second},
	}

	for _, p := range policies {
		bo := p.backOff()
		for attempt := 1; attempt <= 8; attempt++ {
			assert.Equal(t, p.Delay(attempt), bo.NextBackOff(), "policy %+v attempt %d", p, attempt)
		}
	}
}

func TestRetryPolicy_Normalized(t *testing.T) {
	t.Run("missing ceiling uses base", func(t *testing.T) {
		p := RetryPolicy{BaseDelay: time.Second}
		assert.Equal(t, time.Second, p.Delay(4))
	})

	t.Run("ceiling below base caps base", func(t *testing.T) {
		p := RetryPolicy{BaseDelay: 10 * time.Second, MaxDelay: time.Second}
		assert.Equal(t, time.Second, p.Delay(1))
		assert.Equal(t, time.Second, p.Delay(3))
	})

	t.Run("negative retries clamp to zero", func(t *testing.T) {
		assert.Equal(t, 0, RetryPolicy{MaxRetries: -3}.normalized().MaxRetries)
	})
}
