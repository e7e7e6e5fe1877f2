package capability

import (
	"context"
	"time"

	"telnetload/internal/session"
)

// Exchange is the login-then-poll script: send the username, wait,
// send the password, then repeatedly send a command and wait for the
// prompt delimiter.  Login success is never verified.
type Exchange struct {
	Username   string
	Password   string
	LoginDelay time.Duration

	Command    string
	Prompt     string
	Iterations int
	Interval   time.Duration

	// ReadTimeout bounds each prompt wait.  Zero waits forever, so a
	// target that never prints the prompt stalls only this session.
	ReadTimeout time.Duration
}

// Handle runs the script.  sess.Iterations reports how far it got.
func (e *Exchange) Handle(ctx context.Context, sess *session.Session) error {
	if err := sess.WriteLine(e.Username); err != nil {
		return err
	}
	if err := pause(ctx, e.LoginDelay); err != nil {
		return err
	}
	if err := sess.WriteLine(e.Password); err != nil {
		return err
	}
	sess.Logger.Verbose("login sent")

	for i := 0; i < e.Iterations; i++ {
		sent, err := sess.SendCommand(e.Command)
		if err != nil {
			return err
		}
		if err := sess.AwaitPrompt(e.Prompt, e.ReadTimeout, sent); err != nil {
			return err
		}
		if err := pause(ctx, e.Interval); err != nil {
			return err
		}
	}
	return nil
}
