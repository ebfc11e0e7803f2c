package services

import (
	"context"
	"time"

	"ledger/src/models"
	"ledger/src/utils"
)

// PriceLookup returns a best-effort price for an asset on a date. A price
// carried forward from an earlier observation is flagged as interpolated;
// models.ErrPriceUnavailable means there is nothing to carry forward.
type PriceLookup interface {
	GetPriceAtDate(ctx context.Context, assetID string, date time.Time) (models.PriceQuote, error)
}

type priceKey struct {
	assetID string
	day     time.Time
}

// PriceCache memoizes quotes for the duration of one or more computations.
// It is built by the caller and handed to each computation, so no price state
// is shared between computations unless the caller chooses to share it.
type PriceCache struct {
	lookup PriceLookup
	quotes *utils.Cache[priceKey, models.PriceQuote]
}

// NewPriceCache wraps lookup. A zero ttl keeps quotes until Close.
func NewPriceCache(lookup PriceLookup, ttl time.Duration) *PriceCache {
	return &PriceCache{
		lookup: lookup,
		quotes: utils.NewCache[priceKey, models.PriceQuote](ttl),
	}
}

func (c *PriceCache) GetPriceAtDate(ctx context.Context, assetID string, date time.Time) (models.PriceQuote, error) {
	key := priceKey{assetID: assetID, day: utils.Day(date)}
	if quote, ok := c.quotes.Get(key); ok {
		return quote, nil
	}
	quote, err := c.lookup.GetPriceAtDate(ctx, assetID, key.day)
	if err != nil {
		return models.PriceQuote{}, err
	}
	c.quotes.Set(key, quote)
	return quote, nil
}

// Len is the number of cached quotes.
func (c *PriceCache) Len() int {
	return c.quotes.Len()
}

// Close drops every cached quote.
func (c *PriceCache) Close() {
	c.quotes.Clear()
}
