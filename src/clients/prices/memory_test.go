package prices_test

import (
	"context"
	"testing"
	"time"

	"ledger/src/clients/prices"
	"ledger/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// exercisePriceStore runs the behaviour every price store must share.
func exercisePriceStore(t *testing.T, store prices.Store) {
	ctx := context.Background()
	require.NoError(t, store.SetPrice(ctx, "AAPL", date(2024, 1, 2), decimal.RequireFromString("100.5")))
	require.NoError(t, store.SetPrice(ctx, "AAPL", date(2024, 1, 5), decimal.RequireFromString("110")))

	t.Run("should return an observed price as is", func(t *testing.T) {
		quote, err := store.GetPriceAtDate(ctx, "AAPL", date(2024, 1, 2))
		require.NoError(t, err)
		assert.Equal(t, "100.5", quote.Price.String())
		assert.False(t, quote.IsInterpolated)
	})

	t.Run("should carry the last price forward and flag it", func(t *testing.T) {
		quote, err := store.GetPriceAtDate(ctx, "AAPL", date(2024, 1, 4))
		require.NoError(t, err)
		assert.Equal(t, "100.5", quote.Price.String())
		assert.True(t, quote.IsInterpolated)
		assert.Equal(t, date(2024, 1, 4), quote.Date)

		quote, err = store.GetPriceAtDate(ctx, "AAPL", date(2024, 3, 1))
		require.NoError(t, err)
		assert.Equal(t, "110", quote.Price.String())
	})

	t.Run("should fail before the first observation", func(t *testing.T) {
		_, err := store.GetPriceAtDate(ctx, "AAPL", date(2024, 1, 1))
		require.ErrorIs(t, err, models.ErrPriceUnavailable)
		_, err = store.GetPriceAtDate(ctx, "UNKNOWN", date(2024, 1, 1))
		require.ErrorIs(t, err, models.ErrPriceUnavailable)
	})

	t.Run("should replace the observation of a day", func(t *testing.T) {
		require.NoError(t, store.SetPrice(ctx, "AAPL", date(2024, 1, 5).Add(5*time.Hour), decimal.RequireFromString("111")))
		quote, err := store.GetPriceAtDate(ctx, "AAPL", date(2024, 1, 5))
		require.NoError(t, err)
		assert.Equal(t, "111", quote.Price.String())
		assert.False(t, quote.IsInterpolated)
	})
}

func TestMemoryPriceStore(t *testing.T) {
	exercisePriceStore(t, prices.NewMemoryPriceStore())
}
