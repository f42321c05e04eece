// Package sync mirrors files between this machine and the training host
// with rsync over ssh.
package sync

import (
	"context"

	"github.com/rileyhilliard/tbwatch/internal/remote"
)

// Direction says which side of a sync is the source.
type Direction int

const (
	// RemoteToLocal pulls src from the remote host into a local dst.
	RemoteToLocal Direction = iota
	// LocalToRemote pushes a local src to dst on the remote host.
	LocalToRemote
)

func (d Direction) String() string {
	if d == LocalToRemote {
		return "push"
	}
	return "pull"
}

// Result is the outcome of one rsync run. Command holds the printable
// command line.
type Result = remote.Result

// Syncer copies one path tree in one direction. Implementations never
// return errors: a failed transfer is a Result with a non-zero ExitCode.
type Syncer interface {
	Sync(ctx context.Context, src, dst string, dir Direction) Result
}
