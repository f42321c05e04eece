package testing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rileyhilliard/tbwatch/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeSyncer_Success(t *testing.T) {
	f := NewFakeSyncer()

	res := f.Sync(context.Background(), "helper.py", ".tbwatch/helper.py", sync.LocalToRemote)

	assert.True(t, res.OK())
	require.NotNil(t, f.LastCall())
	assert.Equal(t, SyncCall{Src: "helper.py", Dst: ".tbwatch/helper.py", Direction: sync.LocalToRemote}, *f.LastCall())
}

func TestFakeSyncer_Failure(t *testing.T) {
	f := NewFakeSyncer().SetFail(255, "ssh: connect to host gpu-box port 22: Connection refused")

	res := f.Sync(context.Background(), "/remote/", "/local", sync.RemoteToLocal)

	assert.Equal(t, 255, res.ExitCode)
	assert.Contains(t, res.Stderr, "Connection refused")

	f.SetSucceed()
	assert.True(t, f.Sync(context.Background(), "/remote/", "/local", sync.RemoteToLocal).OK())
	assert.Len(t, f.Calls(), 2)
}

func TestFakeSyncer_WritesFiles(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "images")
	f := NewFakeSyncer().WithFiles(map[string]string{"epoch1/a.png": "png"})

	res := f.Sync(context.Background(), "/remote/samples/", dst, sync.RemoteToLocal)
	require.True(t, res.OK())

	data, err := os.ReadFile(filepath.Join(dst, "epoch1", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestFakeSyncer_WritesFile(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "static", "output.txt")
	f := NewFakeSyncer().WithFile("step 10 loss 0.5\n")

	require.True(t, f.Sync(context.Background(), "/remote/train.log", dst, sync.RemoteToLocal).OK())

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "step 10 loss 0.5\n", string(data))
}
