package sync

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/util"
)

// Options describes the remote end of every transfer.
type Options struct {
	Host          string
	Port          int
	User          string
	KeyPath       string
	StrictHostKey bool

	// RsyncPath is the local rsync binary. Empty means look it up on PATH
	// at each call.
	RsyncPath string

	// Flags are appended after the default -av.
	Flags []string

	// Timeout bounds one transfer. Zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// Rsync is the Syncer backed by the local rsync binary.
type Rsync struct {
	opts Options
	log  logger.Logger
}

var _ Syncer = (*Rsync)(nil)

// NewRsync returns a Syncer for the host described by opts.
func NewRsync(opts Options) *Rsync {
	return &Rsync{opts: opts, log: logger.New("[sync]")}
}

// SetLogger replaces the syncer's logger.
func (r *Rsync) SetLogger(l logger.Logger) {
	r.log = l
}

// Sync runs rsync and reports what happened. For pulls the local parent
// directory of dst is created first.
func (r *Rsync) Sync(ctx context.Context, src, dst string, dir Direction) Result {
	argv := append([]string{"rsync"}, r.BuildArgs(src, dst, dir)...)
	command := util.JoinCommand(argv)

	rsyncPath := r.opts.RsyncPath
	if rsyncPath == "" {
		path, err := FindRsync()
		if err != nil {
			r.log.Error("%s", errors.Summarize(err))
			return failed(command, err)
		}
		rsyncPath = path
	}

	if dir == RemoteToLocal {
		if err := ensureLocalParent(dst); err != nil {
			r.log.Error("%s", errors.Summarize(err))
			return failed(command, err)
		}
	}

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, rsyncPath, argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Command: command, Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r.log.Debug("%s %s -> %s in %s", dir, src, dst, time.Since(start).Round(time.Millisecond))
	case ctx.Err() != nil:
		res.ExitCode = 1
		res.TransportFailure = true
		res.Stderr = joinLines(res.Stderr, fmt.Sprintf("rsync stopped: %v", ctx.Err()))
		r.log.Warn("%s %s stopped: %v", dir, src, ctx.Err())
	case stderrors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		msg, _ := Describe(res.ExitCode, res.Stderr)
		r.log.Warn("%s %s failed (exit %d): %s", dir, src, res.ExitCode, msg)
	default:
		res.ExitCode = 1
		res.TransportFailure = true
		res.Stderr = joinLines(res.Stderr, err.Error())
		r.log.Error("couldn't start rsync: %v", err)
	}
	return res
}

// BuildArgs constructs the rsync arguments (without the program name).
// Exported for testing command construction without running rsync.
func (r *Rsync) BuildArgs(src, dst string, dir Direction) []string {
	args := []string{"-av", "-e", r.sshCommand()}
	args = append(args, r.opts.Flags...)

	if dir == LocalToRemote {
		return append(args, src, r.remoteSpec(dst))
	}
	return append(args, r.remoteSpec(src), dst)
}

// sshCommand is the remote shell rsync runs. BatchMode keeps ssh from
// prompting, since there is no terminal to answer.
func (r *Rsync) sshCommand() string {
	parts := []string{"ssh"}
	if r.opts.KeyPath != "" {
		parts = append(parts, "-i", util.QuoteIfNeeded(r.opts.KeyPath))
	}
	if r.opts.Port != 0 {
		parts = append(parts, "-p", strconv.Itoa(r.opts.Port))
	}
	strict := "no"
	if r.opts.StrictHostKey {
		strict = "yes"
	}
	parts = append(parts, "-o", "BatchMode=yes", "-o", "StrictHostKeyChecking="+strict)
	return strings.Join(parts, " ")
}

func (r *Rsync) remoteSpec(path string) string {
	host := r.opts.Host
	if r.opts.User != "" {
		host = r.opts.User + "@" + host
	}
	return host + ":" + path
}

// ensureLocalParent creates the directory that will receive a pull.
// A dst ending in "/" is itself a directory.
func ensureLocalParent(dst string) error {
	dir := filepath.Dir(dst)
	if strings.HasSuffix(dst, "/") {
		dir = filepath.Clean(dst)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrSync,
			fmt.Sprintf("Couldn't create destination directory %s", dir),
			"Check file permissions on DATA_DIR.")
	}
	return nil
}

// FindRsync locates the rsync binary on the local system.
// Returns the full path to rsync or an error if not found.
func FindRsync() (string, error) {
	path, err := exec.LookPath("rsync")
	if err != nil {
		return "", errors.New(errors.ErrSync,
			"rsync isn't installed locally",
			"Grab it with: brew install rsync (macOS) or apt install rsync (Linux)")
	}
	return path, nil
}

// Version returns the first line of `rsync --version`.
func Version() (string, error) {
	rsyncPath, err := FindRsync()
	if err != nil {
		return "", err
	}

	out, err := exec.Command(rsyncPath, "--version").Output()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSync,
			"Couldn't get rsync version",
			"Make sure rsync is installed correctly.")
	}

	// "rsync  version 3.2.7  protocol version 31"
	line, _, _ := strings.Cut(string(out), "\n")
	if line = strings.TrimSpace(line); line != "" {
		return line, nil
	}

	return "", errors.New(errors.ErrSync,
		"Couldn't parse the rsync version output",
		"Try running 'rsync --version' to check your installation.")
}

func failed(command string, err error) Result {
	return Result{Command: command, Stderr: errors.Summarize(err), ExitCode: 1, TransportFailure: true}
}

func joinLines(a, b string) string {
	if a == "" {
		return b
	}
	if !strings.HasSuffix(a, "\n") {
		a += "\n"
	}
	return a + b
}
