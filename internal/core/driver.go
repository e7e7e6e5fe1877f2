package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"telnetload/internal/capability"
	ncerr "telnetload/internal/errors"
	"telnetload/internal/metrics"
	"telnetload/internal/retry"
	"telnetload/internal/session"
	"telnetload/internal/transport"
	"telnetload/util"
)

// Driver launches Clients independent sessions against Address, one
// every Stagger, and waits for all of them to finish.
//
// A session failure is recorded in that session's Result and never
// reaches its siblings or the caller.
type Driver struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Address    string
	Clients    int
	Stagger    time.Duration

	// Backoff governs dial retries; nil dials exactly once.
	Backoff *retry.Backoff

	Metrics *metrics.Collector
	Logger  *util.Logger

	// OnResult, if set, is called from each session's goroutine as soon
	// as it finishes.  It must be safe for concurrent use.
	OnResult func(session.Result)
}

// Run launches the sessions and returns their results indexed by
// client ID.  When ctx is cancelled no further sessions are launched,
// in-flight ones are unblocked, and only the launched prefix is
// returned.  A negative Clients is treated as zero.
func (d *Driver) Run(ctx context.Context) []session.Result {
	clients := max(d.Clients, 0)
	results := make([]session.Result, clients)
	var wg sync.WaitGroup

	launched := 0
	for ; launched < clients; launched++ {
		if launched > 0 && d.Stagger > 0 {
			if !sleep(ctx, d.Stagger) {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(id int, started time.Time) {
			defer wg.Done()
			results[id] = d.runClient(ctx, id, started)
		}(launched, time.Now())
	}

	if launched < clients {
		d.Logger.Warn("interrupted: launched %d of %d clients", launched, clients)
	}
	wg.Wait()
	return results[:launched]
}

// runClient executes one session end to end and records its outcome.
func (d *Driver) runClient(ctx context.Context, id int, started time.Time) (res session.Result) {
	res = session.Result{ID: id, Started: started}
	d.Metrics.SessionStarted()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Finished = time.Now()
		d.Metrics.SessionFinished(res.Err)
		if res.Err != nil {
			d.Logger.Verbose("client %d: %v", id, res.Err)
		}
		if d.OnResult != nil {
			d.OnResult(res)
		}
	}()

	conn, err := d.dial(ctx, id)
	if err != nil {
		res.Err = err
		return res
	}

	sess, err := session.New(id, d.Address, conn, d.Logger, d.Metrics)
	if err != nil {
		conn.Close()
		res.Err = err
		return res
	}
	defer sess.Close()

	stop := util.CloseOnDone(ctx, conn)
	defer stop()

	err = d.Capability.Handle(ctx, sess)
	res.Iterations = sess.Iterations

	// A cancelled run closes the connection under a pending read or
	// write; report the cancellation rather than the closed socket.
	if err != nil && ctx.Err() != nil && util.IsClosed(err) {
		op := ncerr.OpOf(err)
		if op == "" {
			op = ncerr.OpRead
		}
		err = ncerr.Wrap(op, d.Address, ctx.Err())
	}
	res.Err = err
	return res
}

// dial connects one client, retrying per Backoff.
func (d *Driver) dial(ctx context.Context, id int) (net.Conn, error) {
	var conn net.Conn
	err := d.Backoff.Do(ctx, func(attempt int) error {
		c, err := d.Dialer.Dial(ctx, "tcp", d.Address)
		if err != nil {
			// Every dial error is retried, refusals included.
			werr := ncerr.Wrap(ncerr.OpDial, d.Address, err)
			if ctx.Err() != nil {
				return retry.Permanent(werr)
			}
			return werr
		}
		conn = c
		return nil
	})
	if err != nil {
		if ncerr.OpOf(err) == "" {
			err = ncerr.Wrap(ncerr.OpDial, d.Address, err)
		}
		return nil, err
	}
	d.Logger.Debug("client %d connected to %s", id, d.Address)
	return conn, nil
}

// sleep pauses for d and reports false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
