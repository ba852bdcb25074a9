// Package retry decides whether a failed upstream call is attempted again and
// after what delay. The policy is a pure function of the outcome class and the
// attempt count, independent of the HTTP transport.
package retry

import "time"

// Class buckets an upstream HTTP outcome for retry purposes.
type Class int

const (
	// ClassSuccess is any 2xx response.
	ClassSuccess Class = iota
	// ClassPermanent is 400/404/422 and other 4xx: the request itself is
	// invalid or refers to a nonexistent resource. Never retried.
	ClassPermanent
	// ClassAuth is 401/403: a credential problem, not a per-job problem.
	// Never retried, and the caller should stop dispatching for the session.
	ClassAuth
	// ClassRateLimited is 429.
	ClassRateLimited
	// ClassServerError is 5xx.
	ClassServerError
)

// Classify maps an HTTP status code to its retry class.
func Classify(statusCode int) Class {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ClassSuccess
	case statusCode == 401 || statusCode == 403:
		return ClassAuth
	case statusCode == 429:
		return ClassRateLimited
	case statusCode >= 500:
		return ClassServerError
	default:
		return ClassPermanent
	}
}

// Policy holds the retry budgets. The exponential backoff sequence is
// 1s, 2s, 4s, 8s, 16s regardless of class; only the attempt cap differs.
type Policy struct {
	RateLimitMaxAttempts   int
	ServerErrorMaxAttempts int
	BaseDelay              time.Duration
}

// Default matches the documented upstream behavior: up to 5 attempts on 429,
// up to 3 on 5xx.
func Default() Policy {
	return Policy{
		RateLimitMaxAttempts:   5,
		ServerErrorMaxAttempts: 3,
		BaseDelay:              time.Second,
	}
}

// Decide returns whether attempt+1 should happen and after what delay.
// attempt is 1-based (the attempt that just failed). minWait is an
// upstream-provided minimum-wait hint (e.g. Retry-After); it is honored when
// larger than the computed backoff.
func (p Policy) Decide(class Class, attempt int, minWait time.Duration) (bool, time.Duration) {
	var max int
	switch class {
	case ClassRateLimited:
		max = p.RateLimitMaxAttempts
	case ClassServerError:
		max = p.ServerErrorMaxAttempts
	default:
		return false, 0
	}
	if attempt >= max {
		return false, 0
	}
	delay := p.BaseDelay << (attempt - 1) // 1s, 2s, 4s, 8s, 16s
	if minWait > delay {
		delay = minWait
	}
	return true, delay
}
