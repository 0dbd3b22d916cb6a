package devicesession

import "time"

// fakeTransport is an in-memory shellTransport used to build test
// doubles for Session without dialing real network connections.
type fakeTransport struct {
	output string
	closed bool
}

func (f *fakeTransport) Write(p []byte) (int, error) { return len(p), nil }

func (f *fakeTransport) ReadAvailable(deadline time.Time) ([]byte, error) {
	if f.output == "" {
		return nil, nil
	}
	out := f.output
	f.output = ""
	return []byte(out), nil
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

// NewFakeSession builds a Session backed by an in-memory transport
// that always answers execute with canned output. It exists so
// higher-level components (Connection Pool, Worker Pool) can be
// tested without a real SSH/Telnet endpoint.
func NewFakeSession(handlerName, output string) *Session {
	handler, err := Get(handlerName)
	if err != nil {
		handler = generic{}
	}
	return &Session{
		transport: &fakeTransport{output: output},
		handler:   handler,
		timeouts:  DefaultTimeouts,
	}
}
