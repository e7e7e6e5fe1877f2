// Package report turns per-client results into output: one console
// line per failed client, a run summary, and an optional JSON report
// file.
package report

import (
	"fmt"
	"io"
	"sync"

	"telnetload/internal/session"
)

// Console prints one line per failed client as results arrive.
// Successful clients print nothing.  Safe for concurrent use.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes failure lines to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Record prints res if it failed.
func (c *Console) Record(res session.Result) {
	if res.OK() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "Client %d failed: %v\n", res.ID, res.Err)
}
