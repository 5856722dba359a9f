package auth

import "time"

// LockoutPolicy decides when repeated failures lock an account.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockout locks for 30 minutes after 5 consecutive failures.
var DefaultLockout = LockoutPolicy{Threshold: 5, Duration: 30 * time.Minute}

// OnFailure takes the failure count after incrementing and reports whether
// the account must be locked, and until when.
func (p LockoutPolicy) OnFailure(attempts int, now time.Time) (bool, time.Time) {
	if attempts < p.Threshold {
		return false, time.Time{}
	}
	return true, now.Add(p.Duration)
}

// Remaining is how many failures are left before a lock, never negative.
func (p LockoutPolicy) Remaining(attempts int) int {
	if r := p.Threshold - attempts; r > 0 {
		return r
	}
	return 0
}
