package devicesession

import (
	"context"
	"fmt"
	"time"

	"firestige.xyz/netbackup/internal/errs"
	"firestige.xyz/netbackup/internal/models"
)

// Timeouts holds the per-phase timeouts from spec.md §4.2.
type Timeouts struct {
	Connect time.Duration
	Auth    time.Duration
	Banner  time.Duration
	Session time.Duration
}

// DefaultTimeouts matches spec.md §4.2 exactly.
var DefaultTimeouts = Timeouts{
	Connect: 60 * time.Second,
	Auth:    60 * time.Second,
	Banner:  30 * time.Second,
	Session: 120 * time.Second,
}

// Credentials are the already-decrypted secrets for one Open call.
// The Vault decrypts Device.PasswordCipher/EnablePasswordCipher before
// handing them to Open; Session never sees ciphertext.
type Credentials struct {
	Password       string
	EnablePassword string // empty if the device has none configured
}

// Session is a single authenticated CLI session to one device. It is
// NOT safe for concurrent Execute calls — the Connection Pool
// serializes access per device (spec.md §4.2, §4.3).
type Session struct {
	device         models.Device
	transport      shellTransport
	handler        Handler
	timeouts       Timeouts
	enablePassword string
	privileged     bool // true once enable mode has been entered this session
}

// Open establishes the transport, authenticates, and runs the
// device_type's pager-disable hint. It does not enter privileged mode;
// Execute does that lazily the first time a "show" command needs it.
func Open(ctx context.Context, device models.Device, creds Credentials, timeouts Timeouts) (*Session, error) {
	handler, err := Get(device.DeviceType)
	if err != nil {
		handler = generic{}
	}

	openCtx, cancel := context.WithTimeout(ctx, timeouts.Connect+timeouts.Auth)
	defer cancel()

	var transport shellTransport
	switch device.Protocol {
	case models.ProtocolSSH:
		t, err := dialSSH(device.IPAddress, device.EffectivePort(), device.Username, creds.Password, timeouts)
		if err != nil {
			return nil, err
		}
		transport = t
	case models.ProtocolTelnet:
		t, err := dialTelnet(device.IPAddress, device.EffectivePort(), timeouts)
		if err != nil {
			return nil, err
		}
		if err := telnetLogin(t, device.Username, creds.Password, timeouts); err != nil {
			t.Close()
			return nil, err
		}
		transport = t
	default:
		return nil, fmt.Errorf("%w: unsupported protocol %q", errs.ErrTransport, device.Protocol)
	}

	sess := &Session{
		device:         device,
		transport:      transport,
		handler:        handler,
		timeouts:       timeouts,
		enablePassword: creds.EnablePassword,
	}

	if cmd := handler.PagerDisableCommand(); cmd != "" {
		// Best-effort: spec.md §4.2 does not require this to succeed.
		_, _ = sess.rawExecute(openCtx, cmd, false)
	}

	return sess, nil
}

// Execute issues a single command and returns its captured output.
// If cmd begins with "show" and an enable password is configured, the
// session escalates to privileged mode first (idempotent per session).
func (s *Session) Execute(ctx context.Context, cmd string) (string, error) {
	execCtx, cancel := context.WithTimeout(ctx, s.timeouts.Session)
	defer cancel()

	if isShowCommand(cmd) && s.device.EnablePasswordCipher != "" && !s.privileged {
		if err := s.enable(execCtx); err != nil {
			return "", err
		}
	}

	extended := isRunningConfigCommand(cmd)
	return s.rawExecute(execCtx, cmd, extended)
}

// enable sends "enable" followed by the enable password on the next
// line; real devices prompt "Password:" in between, but since the
// shell is a single continuous stream we simply queue both lines.
func (s *Session) enable(ctx context.Context) error {
	if _, err := s.rawExecute(ctx, "enable", false); err != nil {
		return err
	}
	if _, err := s.rawExecute(ctx, s.enablePassword, false); err != nil {
		return err
	}
	s.privileged = true
	return nil
}

func (s *Session) rawExecute(ctx context.Context, cmd string, extended bool) (string, error) {
	if _, err := s.transport.Write([]byte(cmd + "\r\n")); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	out, err := readUntilQuiet(ctx, s.transport, extended)
	if err != nil {
		if err == context.DeadlineExceeded {
			return out, errs.ErrTimeout
		}
		return out, err
	}
	return out, nil
}

// Close releases transport resources. Idempotent.
func (s *Session) Close() error {
	if s.transport == nil {
		return nil
	}
	err := s.transport.Close()
	s.transport = nil
	return err
}
