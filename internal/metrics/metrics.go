// Package metrics provides lightweight, lock-free counters for tracking
// the progress of a load run, plus a bounded sample of prompt
// round-trip latencies.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultMaxSamples bounds the latency reservoir.
const DefaultMaxSamples = 10000

// Collector tracks runtime metrics for a load run.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsStarted   atomic.Int64
	sessionsActive    atomic.Int64
	sessionsSucceeded atomic.Int64
	sessionsFailed    atomic.Int64
	commandsSent      atomic.Int64
	promptsReceived   atomic.Int64
	bytesIn           atomic.Int64
	bytesOut          atomic.Int64
	rttTotalNs        atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
	samples      []time.Duration
	seen         int64 // round trips offered to the reservoir
	maxSamples   int
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		startTime:  time.Now(),
		samples:    make([]time.Duration, 0, 1024),
		maxSamples: DefaultMaxSamples,
	}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionStarted increments both the active and started counters.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsStarted.Add(1)
}

// SessionFinished decrements the active counter and records the
// outcome.  A non-nil err also updates the last-error fields.
func (c *Collector) SessionFinished(err error) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
	if err == nil {
		c.sessionsSucceeded.Add(1)
		return
	}
	c.sessionsFailed.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = err.Error()
	c.mu.Unlock()
}

// ActiveSessions returns the number of sessions currently running.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// StartedSessions returns the number of sessions launched so far.
func (c *Collector) StartedSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsStarted.Load()
}

// SucceededSessions returns the number of sessions that completed.
func (c *Collector) SucceededSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsSucceeded.Load()
}

// FailedSessions returns the number of sessions that ended in error.
func (c *Collector) FailedSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsFailed.Load()
}

// ── Exchange metrics ─────────────────────────────────────────────────

// BytesSent records n bytes written to a target.
func (c *Collector) BytesSent(n int) {
	if c == nil {
		return
	}
	c.bytesOut.Add(int64(n))
}

// CommandSent records one command line of n bytes.
func (c *Collector) CommandSent(n int) {
	if c == nil {
		return
	}
	c.commandsSent.Add(1)
	c.bytesOut.Add(int64(n))
}

// PromptReceived records a prompt that arrived n bytes and rtt after
// the command that triggered it.
func (c *Collector) PromptReceived(n int, rtt time.Duration) {
	if c == nil {
		return
	}
	c.promptsReceived.Add(1)
	c.bytesIn.Add(int64(n))
	c.rttTotalNs.Add(rtt.Nanoseconds())

	c.mu.Lock()
	c.seen++
	if len(c.samples) < c.maxSamples {
		c.samples = append(c.samples, rtt)
	} else if j := rand.Int63n(c.seen); j < int64(c.maxSamples) {
		c.samples[j] = rtt
	}
	c.mu.Unlock()
}

// CommandsSent returns the total number of command lines written.
func (c *Collector) CommandsSent() int64 {
	if c == nil {
		return 0
	}
	return c.commandsSent.Load()
}

// PromptsReceived returns the total number of prompts read.
func (c *Collector) PromptsReceived() int64 {
	if c == nil {
		return 0
	}
	return c.promptsReceived.Load()
}

// TotalBytesIn returns total bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// AverageRTT returns the mean command-to-prompt latency.
func (c *Collector) AverageRTT() time.Duration {
	if c == nil {
		return 0
	}
	n := c.promptsReceived.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(c.rttTotalNs.Load() / n)
}

// P99RTT returns the 99th percentile command-to-prompt latency over
// the sampled round trips.
func (c *Collector) P99RTT() time.Duration {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	sorted := make([]time.Duration, len(c.samples))
	copy(sorted, c.samples)
	c.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(float64(len(sorted)) * 0.99)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	SessionsStarted   int64  `json:"sessions_started"`
	SessionsActive    int64  `json:"sessions_active"`
	SessionsSucceeded int64  `json:"sessions_succeeded"`
	SessionsFailed    int64  `json:"sessions_failed"`
	CommandsSent      int64  `json:"commands_sent"`
	PromptsReceived   int64  `json:"prompts_received"`
	BytesIn           int64  `json:"bytes_in"`
	BytesOut          int64  `json:"bytes_out"`
	AverageRTT        string `json:"average_rtt"`
	P99RTT            string `json:"p99_rtt"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	s := Snapshot{
		SessionsStarted:   c.sessionsStarted.Load(),
		SessionsActive:    c.sessionsActive.Load(),
		SessionsSucceeded: c.sessionsSucceeded.Load(),
		SessionsFailed:    c.sessionsFailed.Load(),
		CommandsSent:      c.commandsSent.Load(),
		PromptsReceived:   c.promptsReceived.Load(),
		BytesIn:           c.bytesIn.Load(),
		BytesOut:          c.bytesOut.Load(),
		AverageRTT:        c.AverageRTT().String(),
		P99RTT:            c.P99RTT().String(),
	}

	c.mu.RLock()
	s.Uptime = time.Since(c.startTime).Truncate(time.Second).String()
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	c.mu.RUnlock()
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
