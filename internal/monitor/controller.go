package monitor

import (
	"context"
	"fmt"
	"path"
	"strings"
	gosync "sync"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/remote"
	"github.com/rileyhilliard/tbwatch/internal/sync"
	"github.com/rileyhilliard/tbwatch/internal/util"
)

// Default loop cadences.
const (
	DefaultGPUInterval    = 10 * time.Second
	DefaultScalarInterval = 30 * time.Second
)

// Messages returned in StartResult.Message.
const (
	MsgAlreadyActive      = "Monitoring already active"
	MsgStoppedDuringStart = "monitoring stopped during startup"
	MsgShuttingDown       = "tbwatch is shutting down"
)

// Options configures a Controller.
type Options struct {
	GPUInterval    time.Duration
	ScalarInterval time.Duration

	// HelperLocal is where the embedded helper is written before the push.
	HelperLocal string
	// HelperRemote is the push destination and the path the scalar
	// command runs.
	HelperRemote string
}

// Controller owns the monitoring lifecycle: Stopped, Starting, Running.
//
// Start pushes the helper, primes the store with one synchronous sample,
// then launches one loop per collector. Each session runs under its own
// context, so a quick stop and start never revives an old loop. Stop
// cancels that context and returns without waiting; a loop that is mid
// command may store one more result.
type Controller struct {
	store     *Store
	collector *Collector
	runner    remote.Runner
	syncer    sync.Syncer
	opts      Options
	metrics   *Metrics
	log       logger.Logger

	// mu orders session commits and loop launches against Close.
	mu        gosync.Mutex
	closed    bool
	wg        gosync.WaitGroup
	base      context.Context
	cancelAll context.CancelFunc
}

// NewController creates a stopped controller. runner and syncer push the
// helper; collector does the sampling.
func NewController(collector *Collector, runner remote.Runner, syncer sync.Syncer, opts Options) *Controller {
	if opts.GPUInterval <= 0 {
		opts.GPUInterval = DefaultGPUInterval
	}
	if opts.ScalarInterval <= 0 {
		opts.ScalarInterval = DefaultScalarInterval
	}
	base, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:     collector.Store(),
		collector: collector,
		runner:    runner,
		syncer:    syncer,
		opts:      opts,
		metrics:   collector.metrics,
		log:       logger.New("[monitor]"),
		base:      base,
		cancelAll: cancel,
	}
}

// SetLogger replaces the controller's logger.
func (c *Controller) SetLogger(l logger.Logger) {
	c.log = l
}

// Collector returns the collector the loops run.
func (c *Controller) Collector() *Collector {
	return c.collector
}

// Session reports the current state and experiment path.
func (c *Controller) Session() SessionInfo {
	return c.store.Session()
}

// Start begins a monitoring session for experimentPath, which may be
// empty to sample the GPU only. It blocks until the helper is pushed and
// the first samples are stored. If ctx ends before then, the start is
// abandoned. Once Running, the session no longer depends on ctx.
func (c *Controller) Start(ctx context.Context, experimentPath string) StartResult {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return StartResult{Status: StatusError, Message: MsgShuttingDown}
	}

	sessCtx, cancel := context.WithCancel(c.base)
	id, ok := c.store.beginStart(experimentPath, cancel)
	if !ok {
		cancel()
		return StartResult{Status: StatusAlreadyRunning, Output: MsgAlreadyActive}
	}
	detach := context.AfterFunc(ctx, cancel)

	var out []string
	fail := func(msg string) StartResult {
		detach()
		c.store.abortStart(id)
		cancel()
		c.log.Warn("start failed: %s", msg)
		return StartResult{Status: StatusError, Message: msg, Output: strings.Join(out, "\n")}
	}

	if err := MaterializeHelper(c.opts.HelperLocal); err != nil {
		out = append(out, "Error: "+errors.Summarize(err))
		return fail(errors.Summarize(err))
	}

	mkdir := c.runner.Run(sessCtx, "mkdir -p "+util.QuoteIfNeeded(path.Dir(c.opts.HelperRemote)))
	out = append(out, mkdir.Transcript())

	push := c.syncer.Sync(sessCtx, c.opts.HelperLocal, c.opts.HelperRemote, sync.LocalToRemote)
	out = append(out, push.Transcript())
	if !push.OK() {
		return fail("Failed to sync helper script: " + sync.Message(push))
	}

	if gpu := c.collector.SampleGPU(sessCtx); gpu.Sample != nil {
		out = append(out, "Initial GPU metrics fetched successfully")
	} else {
		out = append(out, "Warning: Could not fetch initial GPU metrics: "+orUnknown(gpu.Error))
	}

	if experimentPath != "" {
		if res := c.collector.FetchScalars(sessCtx, experimentPath); res.Failure == FailureNone {
			out = append(out, "Initial tensorboard data fetched for: "+experimentPath)
		} else {
			out = append(out, "Warning: Could not fetch initial tensorboard data: "+res.Problem())
		}
	}

	if !detach() || sessCtx.Err() != nil {
		return fail(MsgStoppedDuringStart)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.store.commitStart(id) {
		c.store.abortStart(id)
		cancel()
		c.log.Info("session %d stopped before it started", id)
		return StartResult{Status: StatusError, Message: MsgStoppedDuringStart, Output: strings.Join(out, "\n")}
	}

	c.launch(sessCtx, collectorGPU, c.opts.GPUInterval, func(ctx context.Context) {
		c.collector.SampleGPU(ctx)
	})
	out = append(out, fmt.Sprintf("Started nvidia-smi monitoring loop (%s interval)", c.opts.GPUInterval))

	if experimentPath != "" {
		c.launch(sessCtx, collectorScalars, c.opts.ScalarInterval, func(ctx context.Context) {
			c.collector.FetchScalars(ctx, experimentPath)
		})
		out = append(out, fmt.Sprintf("Started tensorboard monitoring loop (%s interval) for: %s", c.opts.ScalarInterval, experimentPath))
	}

	c.metrics.Sessions.Inc()
	c.metrics.Running.Set(1)
	c.log.Info("monitoring started (session %d, experiment %q)", id, experimentPath)
	return StartResult{Status: StatusStarted, Output: strings.Join(out, "\n")}
}

// Stop ends the active session, if any, and reports whether there was one.
// Loops notice at their next wait.
func (c *Controller) Stop() bool {
	if !c.store.stop() {
		return false
	}
	c.metrics.Running.Set(0)
	c.log.Info("monitoring stopped")
	return true
}

// Close stops monitoring for good and waits for the loops to exit. An
// in-flight remote command is cancelled with its context, so the wait is
// short. Start fails after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.Stop()
	c.cancelAll()
	c.mu.Unlock()

	c.wg.Wait()
}

// launch must be called with mu held.
func (c *Controller) launch(ctx context.Context, name string, interval time.Duration, collect func(context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx, name, interval, collect)
	}()
}

// loop runs collect every interval until ctx ends. The synchronous prime
// in Start counts as the first run, so the loop waits before collecting.
// Runs never overlap and failures never end the loop.
func (c *Controller) loop(ctx context.Context, name string, interval time.Duration, collect func(context.Context)) {
	c.log.Debug("%s loop running every %s", name, interval)
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug("%s loop exiting", name)
			return
		case <-timer.C:
		}
		collect(ctx)
		timer.Reset(interval)
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown error"
	}
	return s
}
