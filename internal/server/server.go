// Package server exposes the monitor and the synced artifacts over HTTP.
package server

import (
	"context"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
)

//go:embed web/*
var webFS embed.FS

// ShutdownTimeout bounds how long Serve waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// Deps are the components the handlers call into.
type Deps struct {
	Controller *monitor.Controller
	Puller     *artifacts.Puller

	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// Server is the dashboard's HTTP surface.
type Server struct {
	ctrl      *monitor.Controller
	collector *monitor.Collector
	puller    *artifacts.Puller
	gatherer  prometheus.Gatherer
	log       logger.Logger
}

// New creates a Server over deps.
func New(deps Deps) *Server {
	return &Server{
		ctrl:      deps.Controller,
		collector: deps.Controller.Collector(),
		puller:    deps.Puller,
		gatherer:  deps.Gatherer,
		log:       logger.New("[http]"),
	}
}

// SetLogger replaces the server's logger.
func (s *Server) SetLogger(l logger.Logger) {
	s.log = l
}

// Handler returns the full router with recovery and request logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	// Experiment paths are absolute, so /api/tensorboard//data/runs must
	// reach the handler instead of being redirected.
	r.SkipClean(true)
	s.Routes(r)
	r.Use(s.recoverMiddleware, s.logMiddleware)
	r.NotFoundHandler = s.unmatched(r)
	r.MethodNotAllowedHandler = r.NotFoundHandler
	return r
}

// unmatched answers 405 with an Allow header when the path belongs to a
// route registered for other methods, and 404 otherwise. The router alone
// loses the method mismatch once a later route fails on its path.
func (s *Server) unmatched(r *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		allowed := allowedMethods(r, req.URL.Path)
		if len(allowed) == 0 {
			http.NotFound(w, req)
			return
		}
		w.Header().Set("Allow", strings.Join(allowed, ", "))
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
			Status:  statusError,
			Message: fmt.Sprintf("Method %s not allowed on %s", req.Method, req.URL.Path),
		})
	})
}

func allowedMethods(r *mux.Router, path string) []string {
	var allowed []string
	_ = r.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		methods, err := route.GetMethods()
		if err != nil {
			return nil
		}
		pattern, err := route.GetPathRegexp()
		if err != nil {
			return nil
		}
		if ok, _ := regexp.MatchString(pattern, path); ok {
			allowed = append(allowed, methods...)
		}
		return nil
	})
	return allowed
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r *mux.Router) {
	r.Methods("GET").Path("/").HandlerFunc(s.index)

	api := r.PathPrefix("/api").Subrouter()
	api.Methods("GET").Path("/experiments").HandlerFunc(s.experiments)
	api.Methods("GET").Path("/tensorboard/{path:.*}").HandlerFunc(s.tensorboard)
	api.Methods("GET").Path("/nvidia-smi").HandlerFunc(s.nvidiaSMI)
	api.Methods("POST").Path("/start-monitoring").HandlerFunc(s.startMonitoring)
	api.Methods("POST").Path("/stop-monitoring").HandlerFunc(s.stopMonitoring)
	api.Methods("GET").Path("/status").HandlerFunc(s.status)
	api.Methods("POST").Path("/sync-images").HandlerFunc(s.syncImages)
	api.Methods("GET").Path("/images").HandlerFunc(s.listImages)
	api.Methods("POST").Path("/sync-output").HandlerFunc(s.syncOutput)
	api.Methods("GET").Path("/output").HandlerFunc(s.output)

	r.Methods("GET").Path("/images/{filename:.*}").HandlerFunc(s.image)

	if s.gatherer != nil {
		r.Methods("GET").Path("/metrics").Handler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Serve listens on addr until ctx ends, then shuts down gracefully.
// ready, if non-nil, receives the bound address once listening.
func (s *Server) Serve(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't listen on "+addr,
			"Is something else using the port? Set LISTEN_ADDR or pass --listen.")
	}
	if ready != nil {
		ready(ln.Addr())
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page, err := fs.ReadFile(webFS, "web/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}
