package testing

import (
	"context"
	"errors"
	"regexp"
	"sync"

	"github.com/rileyhilliard/tbwatch/pkg/sshutil"
)

// CommandResponse defines a canned response for a specific command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error

	// Hang blocks the command until its context ends, like a wedged
	// remote process.
	Hang bool
}

// MockClient simulates an SSH connection for testing.
// Commands are answered from registered responses; anything unmatched
// succeeds with empty output.
type MockClient struct {
	mu       sync.Mutex
	host     string
	address  string
	closed   bool
	dead     bool
	patterns []string
	commands map[string]CommandResponse // pattern -> response
	calls    []string
}

var _ sshutil.SSHClient = (*MockClient)(nil)

// NewMockClient creates a new mock SSH client.
func NewMockClient(host string) *MockClient {
	return &MockClient{
		host:     host,
		address:  host + ":22",
		commands: make(map[string]CommandResponse),
	}
}

// ExecContext answers cmd from the registered responses.
func (m *MockClient) ExecContext(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, -1, errors.New("connection closed")
	}
	m.calls = append(m.calls, cmd)
	resp, ok := m.match(cmd)
	m.mu.Unlock()

	if !ok {
		return nil, nil, 0, nil
	}
	if resp.Hang {
		<-ctx.Done()
		return nil, nil, -1, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
}

// match must be called with mu held. Exact matches win, then patterns in
// registration order.
func (m *MockClient) match(cmd string) (CommandResponse, bool) {
	if resp, ok := m.commands[cmd]; ok {
		return resp, true
	}
	for _, pattern := range m.patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			return m.commands[pattern], true
		}
	}
	return CommandResponse{}, false
}

// Alive reports false once the client is closed or marked dead.
func (m *MockClient) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && !m.dead
}

// Kill makes Alive report false without closing, like a dropped TCP connection.
func (m *MockClient) Kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = true
}

// Close marks the connection as closed.
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockClient) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// GetHost returns the host name.
func (m *MockClient) GetHost() string {
	return m.host
}

// GetAddress returns the host:port address.
func (m *MockClient) GetAddress() string {
	return m.address
}

// SetCommandResponse registers a canned response for a command pattern.
// The pattern can be an exact string or a regex pattern.
func (m *MockClient) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[pattern]; !exists {
		m.patterns = append(m.patterns, pattern)
	}
	m.commands[pattern] = resp
}

// Calls returns every command received, in order.
func (m *MockClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}
