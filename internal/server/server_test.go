package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	remotetesting "github.com/rileyhilliard/tbwatch/internal/remote/testing"
	synctesting "github.com/rileyhilliard/tbwatch/internal/sync/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gpuLine     = "65, 250.5, 10240, 81920\n"
	scalarsJSON = `{"loss": {"steps": [0, 10], "values": [1.5, 0.75], "wall_times": [1700000000.0, 1700000060.5]}}`
)

type fixture struct {
	runner *remotetesting.FakeRunner
	syncer *synctesting.FakeSyncer
	ctrl   *monitor.Controller
	store  *monitor.Store
	puller *artifacts.Puller
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	runner := remotetesting.NewFakeRunner().
		On("nvidia-smi", remotetesting.Response{Stdout: gpuLine}).
		On("extract_scalars", remotetesting.Response{Stdout: scalarsJSON}).
		On("find", remotetesting.Response{Stdout: "/data/runs/exp1\n/data/runs/exp2\n"})
	syncer := synctesting.NewFakeSyncer()
	dir := t.TempDir()

	metrics := monitor.NewMetrics()
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))

	store := monitor.NewStore()
	collector := monitor.NewCollector(runner, store, monitor.CollectorConfig{
		LogsRoot:   "/data/runs",
		VenvPath:   "/opt/venv",
		HelperPath: ".tbwatch/extract_scalars.py",
	}, metrics)
	collector.SetLogger(logger.Noop())
	ctrl := monitor.NewController(collector, runner, syncer, monitor.Options{
		GPUInterval:    time.Hour,
		ScalarInterval: time.Hour,
		HelperLocal:    filepath.Join(dir, "helper", "extract_scalars.py"),
		HelperRemote:   ".tbwatch/extract_scalars.py",
	})
	ctrl.SetLogger(logger.Noop())
	t.Cleanup(ctrl.Close)

	puller := artifacts.NewPuller(syncer,
		artifacts.NewLocal(filepath.Join(dir, "images"), filepath.Join(dir, "output.txt")),
		"/data/samples", "/data/train.log")
	puller.SetLogger(logger.Noop())

	s := New(Deps{Controller: ctrl, Puller: puller, Gatherer: reg})
	s.SetLogger(logger.Noop())
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &fixture{runner: runner, syncer: syncer, ctrl: ctrl, store: store, puller: puller, srv: srv}
}

func (f *fixture) get(t *testing.T, path string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	return decode(t, resp, out)
}

func (f *fixture) post(t *testing.T, path, body string, out interface{}) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return decode(t, resp, out)
}

func decode(t *testing.T, resp *http.Response, out interface{}) *http.Response {
	t.Helper()
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestIndex(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), "<title>tbwatch</title>")
}

func TestExperiments(t *testing.T) {
	f := newFixture(t)

	var body map[string]interface{}
	f.get(t, "/api/experiments", &body)

	assert.Equal(t, []interface{}{"/data/runs/exp1", "/data/runs/exp2"}, body["experiments"])
	assert.Contains(t, body["command"], "find /data/runs")
	assert.Equal(t, "/data/runs/exp1\n/data/runs/exp2\n", body["stdout"])
	assert.Equal(t, "", body["stderr"])
	assert.Equal(t, 0.0, body["returncode"])
}

func TestExperiments_RemoteFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.On("find", remotetesting.Response{Stderr: "find: '/data/runs': No such file or directory\n", ExitCode: 1})

	var body map[string]interface{}
	resp := f.get(t, "/api/experiments", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []interface{}{}, body["experiments"])
	assert.Equal(t, 1.0, body["returncode"])
	assert.Contains(t, body["stderr"], "No such file")
}

func TestTensorboard(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Collector().FetchScalars(context.Background(), "/data/runs/exp1")

	for _, path := range []string{"/api/tensorboard/data/runs/exp1", "/api/tensorboard//data/runs/exp1"} {
		var body map[string]monitor.ScalarSeries
		resp := f.get(t, path, &body)

		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Contains(t, body, "loss", path)
		assert.Equal(t, []int64{0, 10}, body["loss"].Steps)
		assert.Equal(t, []float64{1.5, 0.75}, body["loss"].Values)
	}
}

func TestTensorboard_EncodedPath(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Collector().FetchScalars(context.Background(), "/data/runs/exp #1?")

	var body map[string]monitor.ScalarSeries
	resp := f.get(t, "/api/tensorboard/data/runs/exp%20%231%3F", &body)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body, "loss")
	assert.Equal(t, []int64{0, 10}, body["loss"].Steps)
}

func TestTensorboard_EmptySeriesAreArrays(t *testing.T) {
	f := newFixture(t)
	f.runner.On("extract_scalars", remotetesting.Response{
		Stdout: `{"loss": {"steps": [], "values": [], "wall_times": []}, "lr": {}}`,
	})
	f.ctrl.Collector().FetchScalars(context.Background(), "/data/runs/exp1")

	resp, err := http.Get(f.srv.URL + "/api/tensorboard/data/runs/exp1")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.JSONEq(t, `{
		"loss": {"steps": [], "values": [], "wall_times": []},
		"lr": {"steps": [], "values": [], "wall_times": []}
	}`, string(body))
}

func TestTensorboard_Unknown(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/api/tensorboard/data/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.JSONEq(t, `{}`, string(body))
}

func TestNvidiaSMI(t *testing.T) {
	f := newFixture(t)

	var body map[string]interface{}
	f.get(t, "/api/nvidia-smi", &body)
	f.get(t, "/api/nvidia-smi", &body)

	assert.Len(t, body["timestamps"], 2)
	assert.Equal(t, []interface{}{65.0, 65.0}, body["temperature"])
	assert.Equal(t, []interface{}{250.5, 250.5}, body["power"])
	assert.Equal(t, []interface{}{10240.0, 10240.0}, body["memory_used"])
	assert.Equal(t, []interface{}{81920.0, 81920.0}, body["memory_total"])
	assert.Contains(t, body["command"], "nvidia-smi --query-gpu")
	assert.Equal(t, gpuLine, body["raw_output"])
	assert.Equal(t, 0.0, body["returncode"])
	assert.NotContains(t, body, "error")
}

func TestNvidiaSMI_MalformedLine(t *testing.T) {
	f := newFixture(t)
	f.runner.On("nvidia-smi", remotetesting.Response{Stdout: "65, 250\n"})

	var body map[string]interface{}
	f.get(t, "/api/nvidia-smi", &body)

	assert.Equal(t, []interface{}{}, body["timestamps"])
	assert.Equal(t, "65, 250\n", body["raw_output"])
	assert.Contains(t, body["error"], "2 fields")
}

func TestStartStopMonitoring(t *testing.T) {
	f := newFixture(t)

	var start map[string]string
	f.post(t, "/api/start-monitoring", `{"experiment_path": "/data/runs/exp1"}`, &start)
	assert.Equal(t, "started", start["status"])
	assert.Contains(t, start["output"], "Initial GPU metrics fetched successfully")
	assert.NotContains(t, start, "message")

	var gpu map[string]interface{}
	f.get(t, "/api/status", &gpu)
	assert.Equal(t, "running", gpu["state"])
	assert.Equal(t, "/data/runs/exp1", gpu["experiment_path"])
	assert.Equal(t, 1.0, gpu["gpu_samples"])
	assert.Equal(t, []interface{}{"data/runs/exp1"}, gpu["metrics"])

	var again map[string]string
	f.post(t, "/api/start-monitoring", `{}`, &again)
	assert.Equal(t, map[string]string{"status": "already_running", "output": "Monitoring already active"}, again)

	var stop map[string]string
	f.post(t, "/api/stop-monitoring", "", &stop)
	assert.Equal(t, map[string]string{"status": "stopped"}, stop)

	var restart map[string]string
	f.post(t, "/api/start-monitoring", "", &restart)
	assert.Equal(t, "started", restart["status"])
	assert.Equal(t, 2, f.store.GPUCount())
}

func TestStartMonitoring_BadBody(t *testing.T) {
	f := newFixture(t)

	var body map[string]string
	f.post(t, "/api/start-monitoring", `{"experiment_path":`, &body)

	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Invalid request body")
	assert.Equal(t, monitor.Stopped, f.store.State())
}

func TestStartMonitoring_PushFailure(t *testing.T) {
	f := newFixture(t)
	f.syncer.SetFail(12, "rsync: connection unexpectedly closed\n")

	var body map[string]string
	f.post(t, "/api/start-monitoring", `{}`, &body)

	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Failed to sync helper script")
	assert.Contains(t, body["output"], "connection unexpectedly closed")
}

func TestSyncImagesAndList(t *testing.T) {
	f := newFixture(t)
	f.syncer.WithFiles(map[string]string{"a/step_1.png": "png", "b.txt": "txt"})

	var sync map[string]interface{}
	f.post(t, "/api/sync-images", "", &sync)
	assert.Equal(t, "success", sync["status"])
	assert.Equal(t, []interface{}{"a/step_1.png"}, sync["images"])
	assert.Contains(t, sync["output"], "$ rsync -av /data/samples/ ")
	assert.Equal(t, 0.0, sync["returncode"])

	var list map[string][]string
	f.get(t, "/api/images", &list)
	assert.Equal(t, []string{"a/step_1.png"}, list["images"])

	resp, err := http.Get(f.srv.URL + "/images/a/step_1.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	content, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png", string(content))
}

func TestSyncImages_Failure(t *testing.T) {
	f := newFixture(t)
	f.syncer.SetFail(23, "rsync: link_stat \"/data/samples/\" failed: No such file or directory (2)\n")

	var body map[string]interface{}
	f.post(t, "/api/sync-images", "", &body)

	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "No such file or directory")
	assert.Equal(t, 23.0, body["returncode"])
	assert.NotContains(t, body, "images")
}

func TestImages_EmptyBeforeSync(t *testing.T) {
	f := newFixture(t)

	var list map[string][]string
	f.get(t, "/api/images", &list)

	assert.NotNil(t, list["images"])
	assert.Empty(t, list["images"])
}

func TestImage_NotFound(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/images/missing.png", "/images/../output.txt", "/images/%2e%2e/output.txt"} {
		resp, err := http.Get(f.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestOutput_BeforeSync(t *testing.T) {
	f := newFixture(t)

	var body map[string]string
	resp := f.get(t, "/api/output", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "error", "message": "Output file not found. Please sync first."}, body)
}

func TestSyncOutputThenRead(t *testing.T) {
	f := newFixture(t)
	f.syncer.WithFile("epoch 3 loss=0.25\n")

	var sync map[string]interface{}
	f.post(t, "/api/sync-output", "", &sync)
	assert.Equal(t, "success", sync["status"])
	assert.Contains(t, sync["output"], "/data/train.log")

	var out map[string]string
	f.get(t, "/api/output", &out)
	assert.Equal(t, map[string]string{"status": "success", "content": "epoch 3 loss=0.25\n"}, out)
}

func TestSyncOutput_Failure(t *testing.T) {
	f := newFixture(t)
	f.syncer.SetFail(255, "ssh: connect to host gpu-box port 22: Connection refused\n")

	var body map[string]interface{}
	f.post(t, "/api/sync-output", "", &body)

	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "ssh: connect to host gpu-box port 22: Connection refused", body["message"])
	assert.Equal(t, 255.0, body["returncode"])
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)
	f.get(t, "/api/nvidia-smi", nil)

	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(body), `tbwatch_collections_total{collector="gpu"} 1`)
	assert.Contains(t, string(body), "tbwatch_gpu_window_samples 1")
}

func TestMethodMismatch(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/api/start-monitoring")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "POST", resp.Header.Get("Allow"))
	assert.Equal(t, monitor.Stopped, f.store.State())

	var body map[string]string
	resp = f.post(t, "/api/output", "", &body)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET", resp.Header.Get("Allow"))
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "Method POST not allowed")
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/api/nope", "/favicon.ico", "/api"} {
		resp, err := http.Get(f.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{log: logger.Noop()}
	r := mux.NewRouter()
	r.HandleFunc("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	r.Use(s.recoverMiddleware)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "error", "message": "internal error: kaboom"}`, rec.Body.String())
}

func TestServe_ShutsDownWithContext(t *testing.T) {
	f := newFixture(t)
	s := New(Deps{Controller: f.ctrl, Puller: f.puller})
	s.SetLogger(logger.Noop())

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/api/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	resp, err = http.Get("http://" + addr.String() + "/metrics")
	if err == nil {
		resp.Body.Close()
	}
	assert.Error(t, err, "listener is closed")
}

func TestServe_ListenError(t *testing.T) {
	f := newFixture(t)
	s := New(Deps{Controller: f.ctrl, Puller: f.puller})

	err := s.Serve(context.Background(), "256.0.0.1:bad", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Couldn't listen")
}
