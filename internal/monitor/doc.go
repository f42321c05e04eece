// Package monitor collects GPU and TensorBoard scalar data from the training
// host and keeps the latest of it in memory for the dashboard.
//
// # Key Components
//
//	Store       - Single-mutex container for the GPU window, experiment
//	              metrics, experiment list and session state
//	GPUWindow   - Ring buffer of the last 100 GPU samples
//	Collector   - One remote command per call: sample, parse, store
//	Controller  - Start/Stop lifecycle and the background loops
//	Metrics     - Prometheus instruments for collections and sessions
//
// # Session Lifecycle
//
//	Stopped --Start--> Starting --(helper pushed, data primed)--> Running
//	Starting/Running --Stop--> Stopped
//
// Start while Starting or Running returns already_running and changes
// nothing. A failed helper push returns to Stopped. State is never
// persisted, so the process always begins Stopped.
//
// # Failure Handling
//
// Collectors never return errors. A transport failure, a non-zero exit, an
// unparseable output or a helper-reported {"error": ...} leaves the store
// as it was and comes back in the result's Failure and Error fields.
package monitor
