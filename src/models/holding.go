package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LotType string

const (
	StandardLot LotType = "standard"
	ESPPLot     LotType = "espp"
	RSULot      LotType = "rsu"
)

// TaxLot is one acquisition whose remaining quantity is tracked on its own.
// TotalCost and BargainIncome are amounts for the whole lot and never change
// after the purchase; splits only rescale quantities. PurchasePrice and
// BargainElement are per-share figures derived from them for display.
type TaxLot struct {
	ID            string          `json:"id"`
	Quantity      decimal.Decimal `json:"quantity"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	SoldQuantity  decimal.Decimal `json:"soldQuantity"`
	LotType       LotType         `json:"lotType"`
	GrantDate     *time.Time      `json:"grantDate,omitempty"`
	// BargainIncome is the compensation income of the whole lot already taxed
	// at ordinary rates.
	BargainIncome  *decimal.Decimal `json:"bargainIncome,omitempty"`
	BargainElement *decimal.Decimal `json:"bargainElement,omitempty"`
}

func (l TaxLot) RemainingQuantity() decimal.Decimal {
	return l.Quantity.Sub(l.SoldQuantity)
}

// CostBasis is the cost of the shares still open: TotalCost × remaining /
// quantity. Lots without a TotalCost fall back to the per-share price.
func (l TaxLot) CostBasis() decimal.Decimal {
	remaining := l.RemainingQuantity()
	if l.TotalCost.IsZero() || !l.Quantity.IsPositive() {
		return l.PurchasePrice.Mul(remaining)
	}
	return proRata(l.TotalCost, remaining, l.Quantity)
}

// OpenBargainIncome is the bargain income attributable to the open shares,
// or nil when the lot has none.
func (l TaxLot) OpenBargainIncome() *decimal.Decimal {
	remaining := l.RemainingQuantity()
	var income decimal.Decimal
	switch {
	case l.BargainIncome != nil && l.Quantity.IsPositive():
		income = proRata(*l.BargainIncome, remaining, l.Quantity)
	case l.BargainElement != nil:
		income = l.BargainElement.Mul(remaining)
	default:
		return nil
	}
	return &income
}

func proRata(total, part, whole decimal.Decimal) decimal.Decimal {
	if part.Equal(whole) {
		return total
	}
	return total.Mul(part).Div(whole)
}

// Holding is the derived position of one asset in one portfolio.
type Holding struct {
	ID                    string           `json:"id" db:"id"`
	PortfolioID           string           `json:"portfolioId" db:"portfolio_id"`
	AssetID               string           `json:"assetId" db:"asset_id"`
	Quantity              decimal.Decimal  `json:"quantity" db:"quantity"`
	CostBasis             decimal.Decimal  `json:"costBasis" db:"cost_basis"`
	AverageCost           decimal.Decimal  `json:"averageCost" db:"average_cost"`
	CurrentValue          decimal.Decimal  `json:"currentValue" db:"current_value"`
	UnrealizedGain        decimal.Decimal  `json:"unrealizedGain" db:"unrealized_gain"`
	UnrealizedGainPercent decimal.Decimal  `json:"unrealizedGainPercent" db:"unrealized_gain_percent"`
	TaxLots               []TaxLot         `json:"taxLots" db:"tax_lots"`
	LastUpdated           time.Time        `json:"lastUpdated" db:"last_updated"`
	OwnershipPercent      *decimal.Decimal `json:"ownershipPercent,omitempty" db:"ownership_percent"`
}
