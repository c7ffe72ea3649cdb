package pipeline

import (
	"math/rand/v2"
	"time"
)

// MaxRetries bounds attempts per pathstore write.
const MaxRetries = 3

const maxBackoff = 30 * time.Second

// Backoff returns a duration for attempt n (0-indexed) with up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(min(attempt, 5))) * time.Second
	if base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}
