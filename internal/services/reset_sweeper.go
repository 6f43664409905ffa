package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const DefaultResetSweepSchedule = "@every 15m"

type ExpiredResetRepository interface {
	ClearExpiredResets(ctx context.Context, now time.Time) (int64, error)
}

// ResetSweeper clears reset grants that can no longer be consumed. Expiry is still
// checked when a token is used, so the sweep only reclaims dead rows.
type ResetSweeper struct {
	users    ExpiredResetRepository
	logger   logrus.FieldLogger
	schedule string
	now      func() time.Time
	reported func(int64)
}

// SweeperOption adjusts a ResetSweeper.
type SweeperOption func(*ResetSweeper)

// WithClearedReporter receives the count of every successful sweep.
func WithClearedReporter(report func(cleared int64)) SweeperOption {
	return func(sweeper *ResetSweeper) {
		if report != nil {
			sweeper.reported = report
		}
	}
}

func NewResetSweeper(users ExpiredResetRepository, logger logrus.FieldLogger, schedule string, options ...SweeperOption) *ResetSweeper {
	if schedule == "" {
		schedule = DefaultResetSweepSchedule
	}
	sweeper := &ResetSweeper{
		users:    users,
		logger:   logger,
		schedule: schedule,
		now:      time.Now,
		reported: func(int64) {},
	}
	for _, option := range options {
		option(sweeper)
	}
	return sweeper
}

func (sweeper *ResetSweeper) Sweep(ctx context.Context) (int64, error) {
	cleared, err := sweeper.users.ClearExpiredResets(ctx, sweeper.now().UTC())
	if err != nil {
		return 0, storageError(err)
	}
	sweeper.reported(cleared)
	return cleared, nil
}

// Run schedules the sweep and blocks until ctx is done, then waits for a running sweep.
func (sweeper *ResetSweeper) Run(ctx context.Context) error {
	cronLogger := cron.PrintfLogger(sweeper.logger)
	scheduler := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	if _, err := scheduler.AddFunc(sweeper.schedule, func() {
		cleared, err := sweeper.Sweep(ctx)
		if err != nil {
			sweeper.logger.WithError(err).Error("sweep expired password resets")
			return
		}
		if cleared > 0 {
			sweeper.logger.WithField("cleared", cleared).Info("cleared expired password resets")
		}
	}); err != nil {
		return fmt.Errorf("schedule reset sweeper %q: %w", sweeper.schedule, err)
	}

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()
	return nil
}
