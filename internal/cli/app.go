package cli

import (
	"github.com/rileyhilliard/tbwatch/internal/artifacts"
	"github.com/rileyhilliard/tbwatch/internal/config"
	"github.com/rileyhilliard/tbwatch/internal/monitor"
	"github.com/rileyhilliard/tbwatch/internal/remote"
	"github.com/rileyhilliard/tbwatch/internal/sync"
	"github.com/rileyhilliard/tbwatch/pkg/sshutil"
)

// app is every long-lived component, wired from one Config.
type app struct {
	cfg        *config.Config
	target     sshutil.Target
	executor   *remote.Executor
	rsync      *sync.Rsync
	metrics    *monitor.Metrics
	collector  *monitor.Collector
	controller *monitor.Controller
	puller     *artifacts.Puller
}

func sshTarget(cfg *config.Config) sshutil.Target {
	return sshutil.Target{
		Host:          cfg.SSH.Host,
		Port:          cfg.SSH.Port,
		User:          cfg.SSH.Username,
		KeyPath:       cfg.SSH.KeyPath,
		StrictHostKey: cfg.SSH.StrictHostKey,
	}
}

func newApp(cfg *config.Config) *app {
	target := sshTarget(cfg)
	executor := remote.NewExecutor(target, cfg.Monitor.CommandTimeout)
	rsync := sync.NewRsync(sync.Options{
		Host:          cfg.SSH.Host,
		Port:          cfg.SSH.Port,
		User:          cfg.SSH.Username,
		KeyPath:       cfg.SSH.KeyPath,
		StrictHostKey: cfg.SSH.StrictHostKey,
		Timeout:       cfg.Monitor.CommandTimeout,
	})

	metrics := monitor.NewMetrics()
	collector := monitor.NewCollector(executor, monitor.NewStore(), monitor.CollectorConfig{
		LogsRoot:   cfg.Remote.LogsPath,
		VenvPath:   cfg.Remote.VenvPath,
		HelperPath: cfg.Remote.HelperPath,
	}, metrics)
	controller := monitor.NewController(collector, executor, rsync, monitor.Options{
		GPUInterval:    cfg.Monitor.GPUInterval,
		ScalarInterval: cfg.Monitor.ScalarInterval,
		HelperLocal:    cfg.HelperFile(),
		HelperRemote:   cfg.Remote.HelperPath,
	})
	puller := artifacts.NewPuller(rsync,
		artifacts.NewLocal(cfg.ImagesDir(), cfg.OutputFile()),
		cfg.Remote.ImagesPath, cfg.Remote.OutputPath)

	return &app{
		cfg:        cfg,
		target:     target,
		executor:   executor,
		rsync:      rsync,
		metrics:    metrics,
		collector:  collector,
		controller: controller,
		puller:     puller,
	}
}

// Close stops monitoring and drops the SSH connection.
func (a *app) Close() {
	a.controller.Close()
	_ = a.executor.Close()
	sshutil.CloseAgent()
}
