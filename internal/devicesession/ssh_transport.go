package devicesession

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"firestige.xyz/netbackup/internal/errs"
)

// sshTransport wraps an interactive SSH shell as a shellTransport.
type sshTransport struct {
	client *ssh.Client
	sess   *ssh.Session
	stdin  io.WriteCloser
	stdout io.Reader
}

func dialSSH(host string, port int, username, password string, timeouts Timeouts) (*sshTransport, error) {
	config := &ssh.ClientConfig{
		User:            username,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // spec.md has no device-key trust model
		Timeout:         timeouts.Auth,
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := net.DialTimeout("tcp", addr, timeouts.Connect)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUnreachable, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: %v", errs.ErrAuth, err)
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrTransport, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	sess, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: new session: %v", errs.ErrTransport, err)
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty("vt100", 200, 4000, modes); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("%w: request pty: %v", errs.ErrTransport, err)
	}

	stdin, err := sess.StdinPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("%w: stdin pipe: %v", errs.ErrTransport, err)
	}
	stdout, err := sess.StdoutPipe()
	if err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("%w: stdout pipe: %v", errs.ErrTransport, err)
	}

	if err := sess.Shell(); err != nil {
		sess.Close()
		client.Close()
		return nil, fmt.Errorf("%w: start shell: %v", errs.ErrTransport, err)
	}

	return &sshTransport{client: client, sess: sess, stdin: stdin, stdout: stdout}, nil
}

func (t *sshTransport) Write(p []byte) (int, error) {
	return t.stdin.Write(p)
}

// ReadAvailable makes one read of up to 32 KiB from stdout, bounded by
// deadline; SSH channels don't expose a native read deadline the way
// net.Conn does, so this runs the read on a goroutine and races it
// against a timer.
func (t *sshTransport) ReadAvailable(deadline time.Time) ([]byte, error) {
	type result struct {
		buf []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, 32*1024)
		n, err := t.stdout.Read(buf)
		ch <- result{buf: buf[:n], err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && r.err != io.EOF {
			return r.buf, fmt.Errorf("%w: %v", errs.ErrTransport, r.err)
		}
		return r.buf, nil
	case <-time.After(time.Until(deadline)):
		return nil, nil
	}
}

func (t *sshTransport) Close() error {
	t.sess.Close()
	return t.client.Close()
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "handshake failed")
}
