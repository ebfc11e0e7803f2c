package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceSnapshot is the valuation of a portfolio at the end of one day.
// TimeWeightedReturn and CumulativeReturn are ratios (0.05 is 5%),
// DayChangePercent is a percentage.
type PerformanceSnapshot struct {
	ID                    string          `json:"id" db:"id"`
	PortfolioID           string          `json:"portfolioId" db:"portfolio_id"`
	Date                  time.Time       `json:"date" db:"date"`
	TotalValue            decimal.Decimal `json:"totalValue" db:"total_value"`
	TotalCost             decimal.Decimal `json:"totalCost" db:"total_cost"`
	DayChange             decimal.Decimal `json:"dayChange" db:"day_change"`
	DayChangePercent      decimal.Decimal `json:"dayChangePercent" db:"day_change_percent"`
	CumulativeReturn      decimal.Decimal `json:"cumulativeReturn" db:"cumulative_return"`
	TimeWeightedReturn    decimal.Decimal `json:"timeWeightedReturn" db:"time_weighted_return"`
	HoldingCount          int             `json:"holdingCount" db:"holding_count"`
	HasInterpolatedPrices bool            `json:"hasInterpolatedPrices" db:"has_interpolated_prices"`
	CreatedAt             time.Time       `json:"createdAt" db:"created_at"`
}

// CashFlowEvent is an external contribution (positive) or withdrawal
// (negative). It is derived from the ledger and never persisted.
type CashFlowEvent struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}
