// Package session represents one simulated telnet client: an integer
// identity bound to exactly one telnet connection for its lifetime.
//
// Capabilities drive a Session rather than a raw net.Conn, which keeps
// them testable and lets every read and write be accounted for in one
// place.
package session

import (
	"net"
	"time"

	"github.com/ziutek/telnet"

	ncerr "telnetload/internal/errors"
	"telnetload/internal/metrics"
	"telnetload/util"
)

// LineEnding terminates every line written to a target.
const LineEnding = "\r\n"

// Session encapsulates the runtime context for a single client.
type Session struct {
	ID      int
	Addr    string
	Conn    *telnet.Conn
	Logger  *util.Logger
	Metrics *metrics.Collector

	// Iterations counts completed command/prompt round trips.
	Iterations int
}

// New wraps conn in a telnet connection and binds it to client id.
// metrics may be nil.
func New(id int, addr string, conn net.Conn, logger *util.Logger, m *metrics.Collector) (*Session, error) {
	tc, err := telnet.NewConn(conn)
	if err != nil {
		return nil, ncerr.Wrap(ncerr.OpDial, addr, err)
	}
	return &Session{
		ID:      id,
		Addr:    addr,
		Conn:    tc,
		Logger:  logger.WithField("client", id),
		Metrics: m,
	}, nil
}

// WriteLine sends line followed by CRLF.
func (s *Session) WriteLine(line string) error {
	n, err := s.Conn.Write([]byte(line + LineEnding))
	if err != nil {
		return ncerr.Wrap(ncerr.OpWrite, s.Addr, err)
	}
	s.Metrics.BytesSent(n)
	s.Logger.Debug("sent %q", line)
	return nil
}

// SendCommand writes a command line and returns the time it was sent,
// for round-trip measurement.
func (s *Session) SendCommand(cmd string) (time.Time, error) {
	sent := time.Now()
	n, err := s.Conn.Write([]byte(cmd + LineEnding))
	if err != nil {
		return sent, ncerr.Wrap(ncerr.OpWrite, s.Addr, err)
	}
	s.Metrics.CommandSent(n)
	return sent, nil
}

// AwaitPrompt reads until delim appears in the input stream.  With a
// zero timeout it waits indefinitely.
func (s *Session) AwaitPrompt(delim string, timeout time.Duration, sent time.Time) error {
	if timeout > 0 {
		if err := s.Conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return ncerr.Wrap(ncerr.OpRead, s.Addr, err)
		}
	}
	data, err := s.Conn.ReadUntil(delim)
	if err != nil {
		return ncerr.Wrap(ncerr.OpRead, s.Addr, err)
	}
	s.Metrics.PromptReceived(len(data), time.Since(sent))
	s.Iterations++
	return nil
}

// Close closes the underlying connection.
func (s *Session) Close() error { return s.Conn.Close() }
