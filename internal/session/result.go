package session

import (
	"time"

	ncerr "telnetload/internal/errors"
)

// Result is the outcome of one client.  Err is nil on success.
type Result struct {
	ID         int
	Err        error
	Iterations int
	Started    time.Time
	Finished   time.Time
}

// OK reports whether the client completed its script.
func (r Result) OK() bool { return r.Err == nil }

// Duration is the wall time between launch and completion.
func (r Result) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Op names the step that failed ("dial", "write", "read"), or "" when
// the failure carries no network operation.
func (r Result) Op() string { return ncerr.OpOf(r.Err) }
