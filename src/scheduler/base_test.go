package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"ledger/src/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledTask(t *testing.T) {
	t.Run("should run on schedule until cancelled", func(t *testing.T) {
		var runs atomic.Int32
		task, err := scheduler.NewScheduledTask("@every 1s", func(ctx context.Context) {
			runs.Add(1)
		})
		require.NoError(t, err)

		assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
		task.Cancel()
		after := runs.Load()
		time.Sleep(1500 * time.Millisecond)
		assert.Equal(t, after, runs.Load())
	})

	t.Run("should expose the next run", func(t *testing.T) {
		task, err := scheduler.NewScheduledTask("0 3 * * *", func(ctx context.Context) {})
		require.NoError(t, err)
		defer task.Cancel()
		next := task.Entry().Next
		assert.Equal(t, 3, next.Hour())
		assert.True(t, next.After(time.Now()))
	})

	t.Run("should reject an invalid spec", func(t *testing.T) {
		_, err := scheduler.NewScheduledTask("every tuesday", func(ctx context.Context) {})
		require.Error(t, err)
	})
}
