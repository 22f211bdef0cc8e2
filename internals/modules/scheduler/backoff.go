package scheduler

import "time"

// nextInterval returns the delay before the next probe. After k
// consecutive failures it is retry*2^(k-1), capped by maxBackoff and base.
func nextInterval(base, retry, maxBackoff time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return base
	}

	limit := min(maxBackoff, base)
	d := retry
	for i := 1; i < failures && d < limit; i++ {
		d *= 2
	}
	return min(d, limit)
}
