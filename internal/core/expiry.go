package core

import "time"

const (
	// DefaultTTL is applied when a shorten request carries no expiration.
	DefaultTTL = 30 * 24 * time.Hour
	// DefaultExpiringSoonWindow is the lookahead used by IsExpiringSoon
	// when the caller does not pick one.
	DefaultExpiringSoonWindow = 24 * time.Hour
)

// ComputeExpiry resolves the effective expiry for a new link. Precedence:
// an explicit timestamp wins, then a day count, then DefaultTTL. Explicit
// timestamps must be strictly after now; day counts must be positive.
func ComputeExpiry(now time.Time, explicit *time.Time, days *int) (time.Time, error) {
	if explicit != nil {
		if !explicit.After(now) {
			return time.Time{}, ErrInvalidExpiration
		}
		return *explicit, nil
	}
	if days != nil {
		if *days <= 0 {
			return time.Time{}, ErrInvalidExpiration
		}
		return now.Add(time.Duration(*days) * 24 * time.Hour), nil
	}
	return now.Add(DefaultTTL), nil
}

// IsExpired reports whether the link's expiry has passed. Expired records
// still occupying storage resolve as gone, never as live.
func IsExpired(l Link, now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// IsExpiringSoon reports whether the link is live but will expire within
// the window. A zero window means DefaultExpiringSoonWindow.
func IsExpiringSoon(l Link, now time.Time, window time.Duration) bool {
	if window <= 0 {
		window = DefaultExpiringSoonWindow
	}
	return !IsExpired(l, now) && l.ExpiresAt.Before(now.Add(window))
}
