package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
)

// ScheduledTask runs a function on a cron spec. A run that is still going
// when the next tick fires causes that tick to be skipped.
type ScheduledTask struct {
	cronID cron.EntryID
	cron   *cron.Cron
	cancel context.CancelFunc
}

func NewScheduledTask(cronSpec string, taskFunc func(ctx context.Context)) (*ScheduledTask, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	ctx, cancel := context.WithCancel(context.Background())
	task := &ScheduledTask{
		cron:   c,
		cancel: cancel,
	}

	id, err := c.AddFunc(cronSpec, func() {
		select {
		case <-ctx.Done():
			return
		default:
			taskFunc(ctx)
		}
	})
	if err != nil {
		cancel()
		return nil, err
	}

	task.cronID = id
	c.Start()
	return task, nil
}

// Entry exposes the cron entry, including its next run time.
func (s *ScheduledTask) Entry() cron.Entry {
	return s.cron.Entry(s.cronID)
}

// Cancel stops future runs and cancels the context of a run in progress.
func (s *ScheduledTask) Cancel() {
	s.cron.Remove(s.cronID)
	s.cancel()
	s.cron.Stop()
}
