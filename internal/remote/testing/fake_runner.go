// Package testing provides a scripted remote.Runner for tests.
package testing

import (
	"context"
	"strings"
	"sync"

	"github.com/rileyhilliard/tbwatch/internal/remote"
)

// Response is one scripted reply.
type Response struct {
	Stdout   string
	Stderr   string
	ExitCode int

	// Gate, when set, holds the command until the channel is closed or the
	// context ends. A context end yields ExitCode 1 like a real timeout.
	Gate <-chan struct{}
}

type rule struct {
	substr    string
	responses []Response
	next      int
}

// FakeRunner answers commands from rules matched by substring.
// Each rule replays its responses in order and then repeats the last one.
// Unmatched commands succeed with empty output.
type FakeRunner struct {
	mu    sync.Mutex
	rules []*rule
	calls []string
}

var _ remote.Runner = (*FakeRunner)(nil)

// NewFakeRunner creates a runner with no rules.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers responses for commands containing substr. Rules are checked
// in registration order. Registering the same substr again replaces it.
func (f *FakeRunner) On(substr string, responses ...Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(responses) == 0 {
		responses = []Response{{}}
	}
	for _, r := range f.rules {
		if r.substr == substr {
			r.responses = responses
			r.next = 0
			return f
		}
	}
	f.rules = append(f.rules, &rule{substr: substr, responses: responses})
	return f
}

// Run records command and replays the matching response.
func (f *FakeRunner) Run(ctx context.Context, command string) remote.Result {
	f.mu.Lock()
	f.calls = append(f.calls, command)
	resp := f.pick(command)
	f.mu.Unlock()

	if resp.Gate != nil {
		select {
		case <-resp.Gate:
		case <-ctx.Done():
			return remote.Failed(command, ctx.Err())
		}
	}

	return remote.Result{
		Command:  command,
		Stdout:   resp.Stdout,
		Stderr:   resp.Stderr,
		ExitCode: resp.ExitCode,
	}
}

// pick must be called with mu held.
func (f *FakeRunner) pick(command string) Response {
	for _, r := range f.rules {
		if !strings.Contains(command, r.substr) {
			continue
		}
		resp := r.responses[r.next]
		if r.next < len(r.responses)-1 {
			r.next++
		}
		return resp
	}
	return Response{}
}

// Calls returns every command received, in order.
func (f *FakeRunner) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many received commands contain substr.
func (f *FakeRunner) CallCount(substr string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}
