package prices_test

import (
	"context"
	"testing"

	"ledger/src/clients/prices"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPriceStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := prices.NewRedisPriceStore(client, "prices", 2)
	exercisePriceStore(t, store)

	t.Run("should keep one member per day", func(t *testing.T) {
		members, err := client.ZRange(context.Background(), "prices:AAPL", 0, -1).Result()
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-01-02|100.5", "2024-01-05|111"}, members)
	})

	t.Run("should surface a broken connection after retrying", func(t *testing.T) {
		mr.SetError("ERR injected failure")
		defer mr.SetError("")
		_, err := store.GetPriceAtDate(context.Background(), "AAPL", date(2024, 1, 2))
		require.Error(t, err)
	})
}
