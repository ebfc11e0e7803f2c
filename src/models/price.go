package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is the answer of the price-lookup collaborator. IsInterpolated is
// set when no observation exists for Date and the price was carried forward.
type PriceQuote struct {
	AssetID        string          `json:"assetId"`
	Date           time.Time       `json:"date"`
	Price          decimal.Decimal `json:"price"`
	IsInterpolated bool            `json:"isInterpolated"`
}

// ErrPriceUnavailable is returned by a price lookup that has no observation
// at all for an asset on or before the requested date.
var ErrPriceUnavailable = errors.New("price unavailable")
