package monitor

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/monitor/parsers"
	"github.com/rileyhilliard/tbwatch/internal/remote"
	"github.com/rileyhilliard/tbwatch/internal/util"
)

// CollectorConfig holds the remote paths the collectors need.
type CollectorConfig struct {
	// LogsRoot is scanned for TensorBoard event files.
	LogsRoot string
	// VenvPath is activated before running the helper.
	VenvPath string
	// HelperPath is the helper's location on the remote host.
	HelperPath string
}

// Collector runs one remote command per call, parses the output and, on
// success, stores the result. Failures leave the store untouched and come
// back as data in the returned result.
type Collector struct {
	runner  remote.Runner
	store   *Store
	cfg     CollectorConfig
	metrics *Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewCollector creates a collector writing into store. metrics may be nil.
func NewCollector(runner remote.Runner, store *Store, cfg CollectorConfig, metrics *Metrics) *Collector {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Collector{
		runner:  runner,
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		log:     logger.New("[monitor]"),
		now:     time.Now,
	}
}

// SetLogger replaces the collector's logger.
func (c *Collector) SetLogger(l logger.Logger) {
	c.log = l
}

// Store returns the store the collector writes into.
func (c *Collector) Store() *Store {
	return c.store
}

// SampleGPU queries nvidia-smi once and appends the reading. A failed
// command or an unparseable line appends nothing.
func (c *Collector) SampleGPU(ctx context.Context) GPUResult {
	start := time.Now()
	res := GPUResult{Result: c.runner.Run(ctx, parsers.GPUQuery)}

	if res.Failure = classify(res.Result); res.Failure != FailureNone {
		res.Error = firstLine(res.Stderr)
		c.log.Warn("nvidia-smi failed (%s, exit %d): %s", res.Failure, res.ExitCode, res.Error)
		c.metrics.observe(collectorGPU, start, res.Failure)
		return res
	}

	reading, err := parsers.ParseGPU(res.Stdout)
	if err != nil {
		res.Failure = FailureParse
		res.Error = errors.Summarize(err)
		c.log.Warn("dropping GPU sample: %s", res.Error)
		c.metrics.observe(collectorGPU, start, res.Failure)
		return res
	}

	sample := sampleFromReading(c.now(), reading)
	c.store.AppendGPU(sample)
	res.Sample = &sample
	c.metrics.GPUSamples.Set(float64(c.store.GPUCount()))
	c.metrics.observe(collectorGPU, start, FailureNone)
	c.log.Debug("GPU %.0fC %.1fW %.0f/%.0f MB", sample.TemperatureC, sample.PowerW, sample.MemoryUsedMB, sample.MemoryTotalMB)
	return res
}

// ScalarCommand is the remote command that extracts scalars for path.
func (c *Collector) ScalarCommand(path string) string {
	return fmt.Sprintf("source %s && python %s %s",
		util.QuoteIfNeeded(strings.TrimRight(c.cfg.VenvPath, "/")+"/bin/activate"),
		util.QuoteIfNeeded(c.cfg.HelperPath),
		util.ShellQuote(path))
}

// FetchScalars runs the helper for path and replaces the stored metrics
// for it. Any failure, including a helper-reported error, leaves the
// previous metrics in place.
func (c *Collector) FetchScalars(ctx context.Context, path string) ScalarResult {
	start := time.Now()
	res := ScalarResult{Result: c.runner.Run(ctx, c.ScalarCommand(path)), Path: path}

	fail := func(kind FailureKind, msg string) ScalarResult {
		res.Failure = kind
		res.Error = msg
		c.log.Warn("scalars for %s failed (%s): %s", path, kind, res.Problem())
		c.metrics.observe(collectorScalars, start, kind)
		return res
	}

	// The helper exits non-zero after printing {"error": ...}; prefer its
	// message over a bare exit code.
	if !res.TransportFailure && strings.TrimSpace(res.Stdout) != "" {
		series, err := parsers.ParseScalars(res.Stdout)
		var reported *parsers.ReportedError
		switch {
		case stderrors.As(err, &reported):
			return fail(FailureReported, reported.Message)
		case !res.OK():
			return fail(FailureExit, "")
		case err != nil:
			return fail(FailureParse, errors.Summarize(err))
		}

		metrics := ExperimentMetrics(series)
		c.store.SetMetrics(path, metrics)
		res.Tags = len(metrics)
		c.metrics.observe(collectorScalars, start, FailureNone)
		c.log.Debug("stored %d scalar tags for %s", res.Tags, NormalizePath(path))
		return res
	}

	if kind := classify(res.Result); kind != FailureNone {
		return fail(kind, "")
	}
	return fail(FailureExit, "helper printed nothing")
}

// ExperimentsCommand is the remote command that lists experiment directories.
// find runs outside the pipe so its exit status is the command's status.
func (c *Collector) ExperimentsCommand() string {
	return fmt.Sprintf(`dirs=$(find %s -type f -name 'events.out.tfevents.*' -exec dirname {} \;) || exit $?; printf '%%s\n' "$dirs" | sort -u`,
		util.QuoteIfNeeded(c.cfg.LogsRoot))
}

// ListExperiments scans the logs root for directories holding event files
// and replaces the stored list. A failed scan keeps the previous list.
func (c *Collector) ListExperiments(ctx context.Context) ExperimentsResult {
	start := time.Now()
	res := ExperimentsResult{Result: c.runner.Run(ctx, c.ExperimentsCommand())}
	res.Experiments = splitLines(res.Stdout)

	if res.Failure = classify(res.Result); res.Failure != FailureNone {
		c.log.Warn("listing experiments failed (%s, exit %d): %s", res.Failure, res.ExitCode, firstLine(res.Stderr))
		c.metrics.observe(collectorExperiments, start, res.Failure)
		return res
	}

	c.store.SetExperiments(res.Experiments)
	c.metrics.observe(collectorExperiments, start, FailureNone)
	c.log.Debug("found %s", util.Count(len(res.Experiments), "experiment", "experiments"))
	return res
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
