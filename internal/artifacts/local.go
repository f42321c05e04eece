// Package artifacts manages the files pulled from the training host: sample
// images and the training output log.
package artifacts

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rileyhilliard/tbwatch/internal/errors"
)

// MsgOutputMissing is returned when the output log was never synced.
const MsgOutputMissing = "Output file not found. Please sync first."

// ErrOutputMissing is returned by ReadOutput before the first sync.
var ErrOutputMissing = errors.New(errors.ErrState, MsgOutputMissing, "POST /api/sync-output pulls it from the training host.")

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
}

// IsImage reports whether name has an image extension, ignoring case.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Local is the on-disk side of the synced artifacts.
type Local struct {
	imagesDir  string
	outputFile string
}

// NewLocal creates a Local rooted at imagesDir with the output log at
// outputFile. Nothing is created until the first sync.
func NewLocal(imagesDir, outputFile string) *Local {
	return &Local{imagesDir: imagesDir, outputFile: outputFile}
}

// ImagesDir returns the directory images are synced into.
func (l *Local) ImagesDir() string {
	return l.imagesDir
}

// OutputFile returns the local path of the synced output log.
func (l *Local) OutputFile() string {
	return l.outputFile
}

// ListImages returns every image under the images directory as a
// slash-separated path relative to it, in lexical walk order. A missing
// directory yields an empty list.
func (l *Local) ListImages() ([]string, error) {
	images := []string{}
	err := filepath.WalkDir(l.imagesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == l.imagesDir && stderrors.Is(err, fs.ErrNotExist) {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !IsImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(l.imagesDir, path)
		if err != nil {
			return err
		}
		images = append(images, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrState,
			"Couldn't list images in "+l.imagesDir,
			"Check DATA_DIR permissions.")
	}
	return images, nil
}

// ImagePath resolves a slash-separated name from a URL to a file inside
// the images directory. Absolute names and names that climb out of the
// directory are rejected.
func (l *Local) ImagePath(name string) (string, error) {
	local := filepath.FromSlash(name)
	if name == "" || !filepath.IsLocal(local) {
		return "", errors.New(errors.ErrState, "Invalid image path: "+name, "")
	}
	return filepath.Join(l.imagesDir, local), nil
}

// ReadOutput returns the synced output log. Invalid UTF-8 bytes are
// replaced with U+FFFD, one per byte.
func (l *Local) ReadOutput() (string, error) {
	data, err := os.ReadFile(l.outputFile)
	if stderrors.Is(err, fs.ErrNotExist) {
		return "", ErrOutputMissing
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrState,
			"Couldn't read "+l.outputFile,
			"Check DATA_DIR permissions.")
	}
	return decodeLossy(data), nil
}

func decodeLossy(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	var sb strings.Builder
	sb.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
		} else {
			sb.Write(data[:size])
		}
		data = data[size:]
	}
	return sb.String()
}
