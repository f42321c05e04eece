package artifacts

import (
	"context"
	"strings"
	gosync "sync"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/sync"
)

// ImagesResult is the outcome of an image sync.
type ImagesResult struct {
	sync.Result

	// Images lists the local images after a successful sync.
	Images []string
	// Err is set when the sync worked but listing the result failed.
	Err error
}

// Puller pulls the remote image directory and output log into Local.
// Pulls are serialized so a manual sync and a scheduled one never write
// the same files at once.
type Puller struct {
	mu        gosync.Mutex
	syncer    sync.Syncer
	local     *Local
	imagesSrc string
	outputSrc string
	log       logger.Logger
}

// NewPuller creates a Puller copying imagesSrc (a remote directory) and
// outputSrc (a remote file) into local.
func NewPuller(syncer sync.Syncer, local *Local, imagesSrc, outputSrc string) *Puller {
	return &Puller{
		syncer:    syncer,
		local:     local,
		imagesSrc: imagesSrc,
		outputSrc: outputSrc,
		log:       logger.New("[artifacts]"),
	}
}

// SetLogger replaces the puller's logger.
func (p *Puller) SetLogger(l logger.Logger) {
	p.log = l
}

// Local returns the local side of the artifacts.
func (p *Puller) Local() *Local {
	return p.local
}

// SyncImages mirrors the contents of the remote image directory into the
// local one and lists what is there afterwards.
func (p *Puller) SyncImages(ctx context.Context) ImagesResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	src := strings.TrimRight(p.imagesSrc, "/") + "/"
	res := ImagesResult{Result: p.syncer.Sync(ctx, src, p.local.ImagesDir(), sync.RemoteToLocal)}
	if !res.OK() {
		p.log.Warn("image sync failed (exit %d): %s", res.ExitCode, sync.Message(res.Result))
		return res
	}

	res.Images, res.Err = p.local.ListImages()
	if res.Err != nil {
		p.log.Warn("image sync finished but listing failed: %s", errors.Summarize(res.Err))
		return res
	}
	p.log.Info("synced %d images", len(res.Images))
	return res
}

// SyncOutput copies the remote output log to the local output file.
func (p *Puller) SyncOutput(ctx context.Context) sync.Result {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := p.syncer.Sync(ctx, p.outputSrc, p.local.OutputFile(), sync.RemoteToLocal)
	if !res.OK() {
		p.log.Warn("output sync failed (exit %d): %s", res.ExitCode, sync.Message(res))
		return res
	}
	p.log.Debug("synced output log from %s", p.outputSrc)
	return res
}

// SyncAll pulls the images and then the output log.
func (p *Puller) SyncAll(ctx context.Context) (ImagesResult, sync.Result) {
	return p.SyncImages(ctx), p.SyncOutput(ctx)
}
