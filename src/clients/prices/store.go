// Package prices holds the price-history collaborators behind
// services.PriceLookup.
package prices

import (
	"context"
	"time"

	"ledger/src/services"

	"github.com/shopspring/decimal"
)

// Store is a price lookup that also accepts observations.
type Store interface {
	services.PriceLookup
	SetPrice(ctx context.Context, assetID string, date time.Time, price decimal.Decimal) error
}

var (
	_ Store = (*MemoryPriceStore)(nil)
	_ Store = (*RedisPriceStore)(nil)
)
