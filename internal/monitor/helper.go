package monitor

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/tbwatch/internal/errors"
)

// HelperScript is the scalar extraction helper pushed to the remote host.
//
//go:embed helper/extract_scalars.py
var HelperScript []byte

// MaterializeHelper writes HelperScript to path so rsync can push it.
// An existing file with the same content is left alone, which keeps its
// mtime stable and the push a no-op.
func MaterializeHelper(path string) error {
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, HelperScript) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't create "+filepath.Dir(path),
			"Check DATA_DIR is writable.")
	}
	if err := os.WriteFile(path, HelperScript, 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write helper script to "+path,
			"Check DATA_DIR is writable.")
	}
	return nil
}
