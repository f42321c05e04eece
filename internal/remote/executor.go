package remote

import (
	"context"
	"sync"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/pkg/sshutil"
)

// DefaultTimeout bounds a command when the executor is built without one.
const DefaultTimeout = 60 * time.Second

// Runner runs a single shell command on the remote host.
type Runner interface {
	Run(ctx context.Context, command string) Result
}

// DialFunc opens a new connection to the remote host.
type DialFunc func(ctx context.Context) (sshutil.SSHClient, error)

// Executor is a Runner over one reused SSH connection.
//
// The connection is dialed on first use. Before every command it is checked
// with a keepalive; a dead connection is closed and dialed again.
// Commands run concurrently on the shared connection, each in its own session.
type Executor struct {
	mu      sync.Mutex
	client  sshutil.SSHClient
	dial    DialFunc
	timeout time.Duration
	log     logger.Logger
}

// NewExecutor returns an Executor that dials target with sshutil.Dial.
func NewExecutor(target sshutil.Target, timeout time.Duration) *Executor {
	dial := func(ctx context.Context) (sshutil.SSHClient, error) {
		client, err := sshutil.Dial(ctx, target, timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return NewExecutorWithDialer(dial, timeout)
}

// NewExecutorWithDialer returns an Executor that opens connections with dial.
func NewExecutorWithDialer(dial DialFunc, timeout time.Duration) *Executor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		dial:    dial,
		timeout: timeout,
		log:     logger.New("[remote]"),
	}
}

// SetLogger replaces the executor's logger.
func (e *Executor) SetLogger(l logger.Logger) {
	e.log = l
}

// Run executes command and returns its Result. A non-zero exit is reported
// in ExitCode. Dial, session and timeout failures give ExitCode 1 with the
// reason in Stderr.
func (e *Executor) Run(ctx context.Context, command string) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	client, err := e.conn(ctx)
	if err != nil {
		e.log.Warn("connect failed for %q: %s", command, errors.Summarize(err))
		return Failed(command, err)
	}

	start := time.Now()
	stdout, stderr, exitCode, err := client.ExecContext(ctx, command)
	if err != nil {
		e.log.Warn("%q failed after %s: %s", command, time.Since(start).Round(time.Millisecond), errors.Summarize(err))
		if !client.Alive() {
			e.discard(client)
		}
		return Result{
			Command:          command,
			Stdout:           string(stdout),
			Stderr:           joinStderr(string(stderr), errorText(err)),
			ExitCode:         1,
			TransportFailure: true,
		}
	}

	e.log.Debug("%q exited %d in %s", command, exitCode, time.Since(start).Round(time.Millisecond))
	return Result{
		Command:  command,
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		ExitCode: exitCode,
	}
}

// Close closes the current connection, if any. A later Run dials again.
func (e *Executor) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}

// conn returns a live connection, dialing when there is none or the
// current one stopped answering.
func (e *Executor) conn(ctx context.Context) (sshutil.SSHClient, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client != nil {
		if e.client.Alive() {
			return e.client, nil
		}
		e.log.Info("connection to %s went away, reconnecting", e.client.GetAddress())
		_ = e.client.Close()
		e.client = nil
	}

	client, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	e.log.Debug("connected to %s", client.GetAddress())
	e.client = client
	return client, nil
}

// discard drops client if it is still the current connection.
func (e *Executor) discard(client sshutil.SSHClient) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.client == client {
		_ = e.client.Close()
		e.client = nil
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return errors.Summarize(err)
}

func joinStderr(stderr, reason string) string {
	if stderr == "" {
		return reason
	}
	if reason == "" {
		return stderr
	}
	return stderr + "\n" + reason
}
