package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/sync"
)

func (s *Server) experiments(w http.ResponseWriter, r *http.Request) {
	res := s.collector.ListExperiments(r.Context())
	s.writeJSON(w, http.StatusOK, experimentsResponse{Experiments: res.Experiments, Result: res.Result})
}

func (s *Server) tensorboard(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]
	metrics, ok := s.collector.Store().Metrics(path)
	if !ok {
		s.log.Debug("no metrics for %s", monitor.NormalizePath(path))
		metrics = monitor.ExperimentMetrics{}
	}
	s.writeJSON(w, http.StatusOK, metrics)
}

func (s *Server) nvidiaSMI(w http.ResponseWriter, r *http.Request) {
	res := s.collector.SampleGPU(r.Context())
	s.writeJSON(w, http.StatusOK, gpuResponse{
		GPUSnapshot: s.collector.Store().GPUSnapshot(),
		Command:     res.Command,
		RawOutput:   res.Stdout,
		Stderr:      res.Stderr,
		Returncode:  res.ExitCode,
		Error:       res.Error,
	})
}

func (s *Server) startMonitoring(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !stderrors.Is(err, io.EOF) {
		s.writeError(w, "Invalid request body: "+err.Error())
		return
	}

	res := s.ctrl.Start(r.Context(), req.ExperimentPath)
	s.writeJSON(w, http.StatusOK, startResponse{Status: res.Status, Output: res.Output, Message: res.Message})
}

func (s *Server) stopMonitoring(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	s.writeJSON(w, http.StatusOK, stopResponse{Status: statusStopped})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	store := s.collector.Store()
	s.writeJSON(w, http.StatusOK, statusResponse{
		SessionInfo: s.ctrl.Session(),
		GPUSamples:  store.GPUCount(),
		Experiments: store.Experiments(),
		Metrics:     store.MetricPaths(),
	})
}

func (s *Server) syncImages(w http.ResponseWriter, r *http.Request) {
	res := s.puller.SyncImages(r.Context())
	if !res.OK() {
		s.writeJSON(w, http.StatusOK, commandErrorResponse{
			Status:     statusError,
			Message:    sync.Message(res.Result),
			Output:     res.Transcript(),
			Returncode: res.ExitCode,
		})
		return
	}
	if res.Err != nil {
		s.writeJSON(w, http.StatusOK, commandErrorResponse{
			Status:     statusError,
			Message:    errors.Summarize(res.Err),
			Output:     res.Transcript(),
			Returncode: res.ExitCode,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, syncImagesResponse{
		Status:     statusSuccess,
		Images:     res.Images,
		Output:     res.Transcript(),
		Returncode: res.ExitCode,
	})
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.puller.Local().ListImages()
	if err != nil {
		s.writeError(w, errors.Summarize(err))
		return
	}
	s.writeJSON(w, http.StatusOK, imagesResponse{Images: images})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	path, err := s.puller.Local().ImagePath(mux.Vars(r)["filename"])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) syncOutput(w http.ResponseWriter, r *http.Request) {
	res := s.puller.SyncOutput(r.Context())
	if !res.OK() {
		s.writeJSON(w, http.StatusOK, commandErrorResponse{
			Status:     statusError,
			Message:    sync.Message(res),
			Output:     res.Transcript(),
			Returncode: res.ExitCode,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, syncOutputResponse{
		Status:     statusSuccess,
		Output:     res.Transcript(),
		Returncode: res.ExitCode,
	})
}

func (s *Server) output(w http.ResponseWriter, r *http.Request) {
	content, err := s.puller.Local().ReadOutput()
	if stderrors.Is(err, artifacts.ErrOutputMissing) {
		s.writeError(w, artifacts.MsgOutputMissing)
		return
	}
	if err != nil {
		s.writeError(w, errors.Summarize(err))
		return
	}
	s.writeJSON(w, http.StatusOK, outputResponse{Status: statusSuccess, Content: content})
}
