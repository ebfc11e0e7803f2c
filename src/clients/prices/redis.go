package prices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
)

const retryBaseDelay = 50 * time.Millisecond

// RedisPriceStore keeps one sorted set per asset. Members are "date|price"
// scored by the day number since the Unix epoch, so the latest observation on
// or before a day is a single reverse range query.
type RedisPriceStore struct {
	client     *redis.Client
	keyPrefix  string
	maxRetries uint64
}

func NewRedisPriceStore(client *redis.Client, keyPrefix string, maxRetries uint64) *RedisPriceStore {
	return &RedisPriceStore{
		client:     client,
		keyPrefix:  keyPrefix,
		maxRetries: maxRetries,
	}
}

func (s *RedisPriceStore) key(assetID string) string {
	return s.keyPrefix + ":" + assetID
}

func dayScore(day time.Time) float64 {
	return float64(utils.Day(day).Unix() / 86400)
}

func (s *RedisPriceStore) backoff() retry.Backoff {
	return retry.WithMaxRetries(s.maxRetries, retry.NewExponential(retryBaseDelay))
}

// SetPrice records the price observed on a day, replacing the previous
// observation for that day.
func (s *RedisPriceStore) SetPrice(ctx context.Context, assetID string, date time.Time, price decimal.Decimal) error {
	if date.IsZero() {
		return fmt.Errorf("%w: empty price date", utils.ErrInvalidDate)
	}
	day := utils.Day(date)
	score := dayScore(day)
	member := day.Format(utils.ShortDashDateLayout) + "|" + price.String()
	key := s.key(assetID)

	return retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			bound := strconv.FormatFloat(score, 'f', 0, 64)
			pipe.ZRemRangeByScore(ctx, key, bound, bound)
			pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
			return nil
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *RedisPriceStore) GetPriceAtDate(ctx context.Context, assetID string, date time.Time) (models.PriceQuote, error) {
	day := utils.Day(date)
	var members []string
	err := retry.Do(ctx, s.backoff(), func(ctx context.Context) error {
		var err error
		members, err = s.client.ZRevRangeByScore(ctx, s.key(assetID), &redis.ZRangeBy{
			Min:   "-inf",
			Max:   strconv.FormatFloat(dayScore(day), 'f', 0, 64),
			Count: 1,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("reading price of %s: %w", assetID, err)
	}
	if len(members) == 0 {
		return models.PriceQuote{}, fmt.Errorf("%w: %s on %s", models.ErrPriceUnavailable, assetID, day.Format(utils.ShortDashDateLayout))
	}

	observed, price, err := parseMember(members[0])
	if err != nil {
		return models.PriceQuote{}, fmt.Errorf("price of %s: %w", assetID, err)
	}
	return models.PriceQuote{
		AssetID:        assetID,
		Date:           day,
		Price:          price,
		IsInterpolated: !observed.Equal(day),
	}, nil
}

func parseMember(member string) (time.Time, decimal.Decimal, error) {
	date, value, ok := strings.Cut(member, "|")
	if !ok {
		return time.Time{}, decimal.Zero, fmt.Errorf("malformed price entry %q", member)
	}
	day, err := utils.ParseDay(date)
	if err != nil {
		return time.Time{}, decimal.Zero, err
	}
	price, err := decimal.NewFromString(value)
	if err != nil {
		return time.Time{}, decimal.Zero, fmt.Errorf("malformed price entry %q: %w", member, err)
	}
	return day, price, nil
}
