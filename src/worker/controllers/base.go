package controllers

import (
	"context"
	"sync"
	"time"

	"ledger/src/models"
	"ledger/src/scheduler"
	"ledger/src/services"
	"ledger/src/utils"

	"github.com/sirupsen/logrus"
)

type Controller struct {
	SnapshotService services.SnapshotServiceI
	logger          *logrus.Logger
	SchedulerMutex  sync.Mutex
	Scheduler       *scheduler.ScheduledTask
}

func NewController(snapshotService services.SnapshotServiceI, logger *logrus.Logger) *Controller {
	return &Controller{SnapshotService: snapshotService, logger: logger}
}

func (c *Controller) HandleEvent(ctx context.Context, event models.TriggerEvent) error {
	return c.SnapshotService.HandleEvent(ctx, event)
}

// ExtendSnapshots brings every portfolio's snapshot series up to today.
func (c *Controller) ExtendSnapshots(ctx context.Context) error {
	start := time.Now()
	err := c.SnapshotService.ExtendAll(ctx)
	entry := utils.LoggerFromContext(ctx).WithField("elapsed", time.Since(start).String())
	if err != nil {
		entry.WithError(err).Error("snapshot extension finished with errors")
		return err
	}
	entry.Info("snapshot extension finished")
	return nil
}

// LoadExtendSchedule (re)installs the cron task that extends snapshots.
func (c *Controller) LoadExtendSchedule(cronSpec string) error {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()

	if c.Scheduler != nil {
		c.Scheduler.Cancel()
		c.Scheduler = nil
	}
	task, err := scheduler.NewScheduledTask(cronSpec, func(ctx context.Context) {
		_ = c.ExtendSnapshots(utils.WithLogger(ctx, c.logger))
	})
	if err != nil {
		return err
	}
	c.Scheduler = task
	return nil
}

// NextExtension returns the next scheduled run of the extension task.
func (c *Controller) NextExtension() (time.Time, bool) {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	if c.Scheduler == nil {
		return time.Time{}, false
	}
	next := c.Scheduler.Entry().Next
	return next, !next.IsZero()
}

// StopSchedule cancels the cron task, if any.
func (c *Controller) StopSchedule() {
	c.SchedulerMutex.Lock()
	defer c.SchedulerMutex.Unlock()
	if c.Scheduler != nil {
		c.Scheduler.Cancel()
		c.Scheduler = nil
	}
}
