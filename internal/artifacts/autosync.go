package artifacts

import (
	"context"
	"fmt"
	"time"

	"github.com/rileyhilliard/tbwatch/internal/errors"
	"github.com/rileyhilliard/tbwatch/internal/logger"
	"github.com/robfig/cron/v3"
)

// AutoSync pulls images and the output log on a cron schedule.
type AutoSync struct {
	cron    *cron.Cron
	entryID cron.EntryID
	spec    string
	log     logger.Logger
}

// NewAutoSync schedules puller on spec, a standard cron expression or a
// descriptor such as "@every 5m". Each run is bounded by timeout and a run
// is skipped while the previous one is still going. Call Start to begin.
func NewAutoSync(puller *Puller, spec string, timeout time.Duration) (*AutoSync, error) {
	log := logger.New("[autosync]")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})), cron.WithLogger(cronLogger{log}))

	entryID, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		images, output := puller.SyncAll(ctx)
		if !images.OK() || images.Err != nil || !output.OK() {
			log.Warn("scheduled sync incomplete: images exit %d, output exit %d", images.ExitCode, output.ExitCode)
		}
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Invalid AUTO_SYNC_SCHEDULE %q", spec),
			"Use a cron expression like '*/5 * * * *' or '@every 5m'.")
	}

	return &AutoSync{cron: c, entryID: entryID, spec: spec, log: log}, nil
}

// Start begins running the schedule in the background.
func (a *AutoSync) Start() {
	a.cron.Start()
	a.log.Info("syncing images and output on %q, next run %s", a.spec, a.Next().Format(time.Kitchen))
}

// Next returns when the next run is due. It is zero before Start.
func (a *AutoSync) Next() time.Time {
	return a.cron.Entry(a.entryID).Next
}

// Stop ends the schedule and waits for a running sync to finish.
func (a *AutoSync) Stop() {
	<-a.cron.Stop().Done()
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("%s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("%s: %v %v", msg, err, keysAndValues)
}
