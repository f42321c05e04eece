package server

import (
	"encoding/json"
	"net/http"

	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/remote"
)

// Response statuses.
const (
	statusSuccess = "success"
	statusError   = "error"
	statusStopped = "stopped"
)

// errorResponse is the envelope for anything that went wrong.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// commandErrorResponse is errorResponse plus the transcript of the command
// that failed.
type commandErrorResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Output     string `json:"output"`
	Returncode int    `json:"returncode"`
}

type experimentsResponse struct {
	Experiments []string `json:"experiments"`
	remote.Result
}

type gpuResponse struct {
	monitor.GPUSnapshot
	Command    string `json:"command"`
	RawOutput  string `json:"raw_output"`
	Stderr     string `json:"stderr"`
	Returncode int    `json:"returncode"`
	Error      string `json:"error,omitempty"`
}

type startRequest struct {
	ExperimentPath string `json:"experiment_path"`
}

type startResponse struct {
	Status  monitor.StartStatus `json:"status"`
	Output  string              `json:"output"`
	Message string              `json:"message,omitempty"`
}

type stopResponse struct {
	Status string `json:"status"`
}

type syncImagesResponse struct {
	Status     string   `json:"status"`
	Images     []string `json:"images"`
	Output     string   `json:"output"`
	Returncode int      `json:"returncode"`
}

type syncOutputResponse struct {
	Status     string `json:"status"`
	Output     string `json:"output"`
	Returncode int    `json:"returncode"`
}

type imagesResponse struct {
	Images []string `json:"images"`
}

type outputResponse struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

type statusResponse struct {
	monitor.SessionInfo
	GPUSamples  int      `json:"gpu_samples"`
	Experiments []string `json:"experiments"`
	Metrics     []string `json:"metrics"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("writing response: %v", err)
	}
}

// writeError sends the error envelope. Faults are reported in the body, so
// the HTTP status stays 200.
func (s *Server) writeError(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusOK, errorResponse{Status: statusError, Message: msg})
}
