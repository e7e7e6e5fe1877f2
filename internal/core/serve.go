package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"

	"github.com/reiver/go-telnet"

	"telnetload/util"
)

// ServeMode is a mock telnet target.  It greets each client with a
// banner, then answers every line with a one-line output followed by
// Hostname+Prompt.  The first two lines are taken as the login and
// get no prompt, so each prompt a client reads belongs to the command
// it just sent.
type ServeMode struct {
	Address  string // ":port"
	Hostname string
	Prompt   string
	Logger   *util.Logger
}

// Run listens on Address and serves until ctx is cancelled.
func (m *ServeMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	return m.Serve(ctx, ln)
}

// Serve accepts telnet connections on ln until ctx is cancelled.
func (m *ServeMode) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	stop := util.CloseOnDone(ctx, ln)
	defer stop()

	m.Logger.Info("mock target listening on %s", ln.Addr())

	srv := &telnet.Server{Handler: &promptHandler{
		prompt: m.Hostname + m.Prompt,
		logger: m.Logger,
	}}
	err := srv.Serve(ln)
	if ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("accept: %w", err)
}

// loginLines is how many lines a client sends before its first command.
const loginLines = 2

type promptHandler struct {
	prompt string
	logger *util.Logger
}

func (h *promptHandler) ServeTELNET(_ telnet.Context, w telnet.Writer, r telnet.Reader) {
	if _, err := fmt.Fprint(w, "telnetload mock target\r\nUsername: "); err != nil {
		return
	}

	lines := bufio.NewScanner(byteReader{r})
	for n := 0; lines.Scan(); n++ {
		var err error
		switch {
		case n == 0:
			_, err = fmt.Fprint(w, "Password: ")
		case n < loginLines:
			_, err = fmt.Fprint(w, "\r\n")
		default:
			_, err = fmt.Fprintf(w, "%s: ok\r\n%s", lines.Text(), h.prompt)
		}
		if err != nil {
			h.logger.Debug("mock target write: %v", err)
			return
		}
	}
}

// byteReader returns at most one byte per Read.  telnet.Reader only
// returns once the whole buffer is full, which would hold a short line
// back until 4 KB had arrived.
type byteReader struct{ r io.Reader }

func (b byteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.r.Read(p[:1])
}
