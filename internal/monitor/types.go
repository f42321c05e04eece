package monitor

import (
	"strings"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/monitor/parsers"
	"github.com/rileyhilliard/tbwatch/internal/remote"
)

// TimestampLayout is how sample timestamps are rendered in JSON.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// SessionState is the monitoring controller's lifecycle state.
type SessionState int

const (
	Stopped SessionState = iota
	Starting
	Running
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	default:
		return "stopped"
	}
}

// MarshalText renders the state as its name in JSON.
func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FailureKind classifies why a collection produced no data.
type FailureKind string

const (
	FailureNone FailureKind = ""
	// FailureTransport means the command never ran: dial, session or timeout.
	FailureTransport FailureKind = "transport"
	// FailureExit means the command ran and exited non-zero.
	FailureExit FailureKind = "exit"
	// FailureParse means the output didn't have the expected shape.
	FailureParse FailureKind = "parse"
	// FailureReported means the helper returned {"error": ...}.
	FailureReported FailureKind = "reported"
)

// classify returns the failure kind implied by the command result alone.
func classify(res remote.Result) FailureKind {
	switch {
	case res.TransportFailure:
		return FailureTransport
	case !res.OK():
		return FailureExit
	default:
		return FailureNone
	}
}

// GPUSample is one parsed nvidia-smi reading.
type GPUSample struct {
	Timestamp     time.Time
	TemperatureC  float64
	PowerW        float64
	MemoryUsedMB  float64
	MemoryTotalMB float64
}

func sampleFromReading(at time.Time, r parsers.GPUReading) GPUSample {
	return GPUSample{
		Timestamp:     at,
		TemperatureC:  r.TemperatureC,
		PowerW:        r.PowerW,
		MemoryUsedMB:  r.MemoryUsedMB,
		MemoryTotalMB: r.MemoryTotalMB,
	}
}

// ScalarSeries is one scalar tag's steps, values and wall times.
type ScalarSeries = parsers.Series

// ExperimentMetrics maps scalar tag name to its series for one experiment.
type ExperimentMetrics map[string]ScalarSeries

// Clone returns a deep copy.
func (m ExperimentMetrics) Clone() ExperimentMetrics {
	out := make(ExperimentMetrics, len(m))
	for tag, s := range m {
		out[tag] = parsers.CopySeries(s)
	}
	return out
}

// NormalizePath strips leading slashes so "/runs/a" and "runs/a" name the
// same experiment.
func NormalizePath(path string) string {
	return strings.TrimLeft(path, "/")
}

// GPUResult is the outcome of one GPU sample.
type GPUResult struct {
	remote.Result

	// Sample is nil unless a reading was appended.
	Sample  *GPUSample
	Failure FailureKind
	Error   string
}

// ScalarResult is the outcome of one scalar fetch.
type ScalarResult struct {
	remote.Result

	Path    string
	Tags    int
	Failure FailureKind

	// Error holds the helper's reported message or the parse error.
	Error string
}

// Problem returns the most useful description of a failed fetch.
func (r ScalarResult) Problem() string {
	switch {
	case r.Error != "":
		return r.Error
	case strings.TrimSpace(r.Stderr) != "":
		return strings.TrimSpace(r.Stderr)
	default:
		return "Unknown error"
	}
}

// ExperimentsResult is the outcome of one experiment directory scan.
type ExperimentsResult struct {
	remote.Result

	Experiments []string
	Failure     FailureKind
}

// StartStatus is the outcome of a Start call.
type StartStatus string

const (
	StatusStarted        StartStatus = "started"
	StatusAlreadyRunning StartStatus = "already_running"
	StatusError          StartStatus = "error"
)

// StartResult reports what Start did. Output holds the transcript of every
// command run plus one line per startup step.
type StartResult struct {
	Status  StartStatus
	Output  string
	Message string
}

// SessionInfo is a read-only view of the controller state.
type SessionInfo struct {
	State          SessionState `json:"state"`
	ExperimentPath string       `json:"experiment_path"`
}
