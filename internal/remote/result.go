// Package remote runs commands on the training host and reports what happened
// as data. Nothing in this package returns an error to its callers: transport
// problems come back as a Result with exit code 1 and the failure in Stderr.
package remote

import "strings"

// Result is the outcome of one remote command. Values are never mutated
// after construction.
type Result struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"returncode"`

	// TransportFailure is set when the command never ran to completion:
	// dial, session, spawn or timeout problems. ExitCode is then 1.
	TransportFailure bool `json:"-"`
}

// OK reports whether the command exited zero.
func (r Result) OK() bool {
	return r.ExitCode == 0
}

// Transcript renders the result the way a terminal would have shown it:
// "$ command" followed by stdout and stderr.
func (r Result) Transcript() string {
	var sb strings.Builder
	sb.WriteString("$ ")
	sb.WriteString(r.Command)
	sb.WriteString("\n")
	sb.WriteString(r.Stdout)
	sb.WriteString(r.Stderr)
	return sb.String()
}

// Failed builds the Result for a command that never ran.
func Failed(command string, err error) Result {
	return Result{Command: command, Stderr: errorText(err), ExitCode: 1, TransportFailure: true}
}
