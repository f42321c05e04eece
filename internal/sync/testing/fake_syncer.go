// Package testing provides test doubles for the sync package.
package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	gosync "sync"

	"github.com/rileyhilliard/tbwatch/internal/sync"
)

// SyncCall records a call to the syncer.
type SyncCall struct {
	Src       string
	Dst       string
	Direction sync.Direction
}

// FakeSyncer simulates rsync for tests. It records calls, optionally
// writes files into the local destination of pulls, and returns a
// configured exit code.
type FakeSyncer struct {
	mu gosync.Mutex

	exitCode int
	stderr   string
	stdout   string

	// files are written under dst (a directory) on pulls; file is written
	// to dst itself.
	files map[string]string
	file  *string

	calls []SyncCall
}

var _ sync.Syncer = (*FakeSyncer)(nil)

// NewFakeSyncer creates a new fake syncer that succeeds by default.
func NewFakeSyncer() *FakeSyncer {
	return &FakeSyncer{stdout: "sending incremental file list\n"}
}

// Sync records the call and materializes the configured content.
func (f *FakeSyncer) Sync(ctx context.Context, src, dst string, dir sync.Direction) sync.Result {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, SyncCall{Src: src, Dst: dst, Direction: dir})
	res := sync.Result{
		Command:  fmt.Sprintf("rsync -av %s %s", src, dst),
		Stdout:   f.stdout,
		Stderr:   f.stderr,
		ExitCode: f.exitCode,
	}
	if f.exitCode != 0 || dir != sync.RemoteToLocal {
		return res
	}

	if err := f.materialize(dst); err != nil {
		res.ExitCode = 11
		res.Stderr = err.Error()
	}
	return res
}

func (f *FakeSyncer) materialize(dst string) error {
	for rel, content := range f.files {
		path := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	if f.file != nil {
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return os.WriteFile(dst, []byte(*f.file), 0644)
	}
	return nil
}

// SetFail makes every following call exit with code and stderr.
func (f *FakeSyncer) SetFail(code int, stderr string) *FakeSyncer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitCode = code
	f.stderr = stderr
	return f
}

// SetSucceed clears a previous SetFail.
func (f *FakeSyncer) SetSucceed() *FakeSyncer {
	return f.SetFail(0, "")
}

// WithFiles makes pulls write files (relative path -> content) under dst.
func (f *FakeSyncer) WithFiles(files map[string]string) *FakeSyncer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = files
	return f
}

// WithFile makes pulls write content to dst itself.
func (f *FakeSyncer) WithFile(content string) *FakeSyncer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.file = &content
	return f
}

// Calls returns the recorded calls.
func (f *FakeSyncer) Calls() []SyncCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]SyncCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// LastCall returns the most recent sync call, or nil if none.
func (f *FakeSyncer) LastCall() *SyncCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	call := f.calls[len(f.calls)-1]
	return &call
}
