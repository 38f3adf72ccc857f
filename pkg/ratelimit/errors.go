package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// LimitExceededError reports a rejected call and how long the client
// must wait until the window resets.
type LimitExceededError struct {
	Scope      string
	Client     string
	Limit      int64
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit %d): retry after %s",
		e.Scope, e.Limit, e.RetryAfter.Round(time.Millisecond))
}

// IsLimitExceeded checks whether err is a rate-limit rejection.
func IsLimitExceeded(err error) bool {
	var limitErr *LimitExceededError
	return errors.As(err, &limitErr)
}

// RetryAfter extracts the wait carried by a rate-limit rejection, or 0
// for any other error.
func RetryAfter(err error) time.Duration {
	var limitErr *LimitExceededError
	if errors.As(err, &limitErr) {
		return limitErr.RetryAfter
	}
	return 0
}
