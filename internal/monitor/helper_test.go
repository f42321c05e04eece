package monitor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperScript_Embedded(t *testing.T) {
	require.NotEmpty(t, HelperScript)
	assert.Contains(t, string(HelperScript), "#!/usr/bin/env python3")
	assert.Contains(t, string(HelperScript), `"error"`)
}

func TestMaterializeHelper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "helper", "extract_scalars.py")

	require.NoError(t, MaterializeHelper(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, HelperScript, got)
}

func TestMaterializeHelper_LeavesIdenticalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract_scalars.py")
	require.NoError(t, MaterializeHelper(path))
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, MaterializeHelper(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old))
}

func TestMaterializeHelper_RewritesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extract_scalars.py")
	require.NoError(t, os.WriteFile(path, []byte("print('old')\n"), 0644))

	require.NoError(t, MaterializeHelper(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, HelperScript, got)
}

func TestMaterializeHelper_UnwritableDir(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err := MaterializeHelper(filepath.Join(blocker, "extract_scalars.py"))

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}
