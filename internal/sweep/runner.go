// Package sweep runs the due-step promoter on a cron schedule.
package sweep

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/outreach-cadence/internal/outreach"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper promotes due steps. *outreach.Promoter implements it.
type Sweeper interface {
	PromoteDueSteps(ctx context.Context) (outreach.PromoteResult, error)
}

// Runner invokes the sweeper on a schedule. A tick that starts while the previous sweep is
// still running is skipped; a failed sweep is logged and retried on the next tick.
type Runner struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	logger   *zap.Logger

	mu  sync.Mutex
	ctx context.Context
}

var parser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NewRunner validates schedule (standard cron, optional seconds, or descriptors such as
// "@every 2m") and creates a runner.
func NewRunner(schedule string, sweeper Sweeper, logger *zap.Logger) (*Runner, error) {
	logger = logger.Named("sweep")
	cl := cronLogger{logger: logger.Sugar()}

	r := &Runner{
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
		ctx:      context.Background(),
	}
	r.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := r.cron.AddFunc(schedule, r.tick); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return r, nil
}

// Run starts the schedule and blocks until ctx is cancelled and any running sweep finishes.
func (r *Runner) Run(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()

	r.logger.Info("sweep runner started", zap.String("schedule", r.schedule))
	r.cron.Start()

	<-ctx.Done()

	<-r.cron.Stop().Done()
	r.logger.Info("sweep runner stopped")
	return nil
}

// RunOnce performs a single sweep.
func (r *Runner) RunOnce(ctx context.Context) (outreach.PromoteResult, error) {
	return r.sweeper.PromoteDueSteps(ctx)
}

func (r *Runner) tick() {
	r.mu.Lock()
	ctx := r.ctx
	r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}

	result, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("sweep failed", zap.Error(err))
		return
	}
	r.logger.Debug("sweep completed",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
	)
}

// cronLogger routes cron's internal logging through zap.
type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
