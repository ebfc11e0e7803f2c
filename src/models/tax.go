package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type HoldingPeriod string

const (
	ShortTerm HoldingPeriod = "short"
	LongTerm  HoldingPeriod = "long"
)

// TaxSettings is supplied by the caller; rates are fractions (0.24 is 24%).
type TaxSettings struct {
	ShortTermRate decimal.Decimal `json:"shortTermRate"`
	LongTermRate  decimal.Decimal `json:"longTermRate"`
	LastUpdated   time.Time       `json:"lastUpdated"`
}

type LotAnalysis struct {
	LotID             string           `json:"lotId"`
	Symbol            string           `json:"symbol"`
	LotType           LotType          `json:"lotType"`
	PurchaseDate      time.Time        `json:"purchaseDate"`
	RemainingQuantity decimal.Decimal  `json:"remainingQuantity"`
	CostBasis         decimal.Decimal  `json:"costBasis"`
	AdjustedCostBasis *decimal.Decimal `json:"adjustedCostBasis,omitempty"`
	CurrentValue      decimal.Decimal  `json:"currentValue"`
	UnrealizedGain    decimal.Decimal  `json:"unrealizedGain"`
	// TaxableGain is measured against the adjusted basis when there is one.
	TaxableGain           decimal.Decimal `json:"taxableGain"`
	HoldingPeriod         HoldingPeriod   `json:"holdingPeriod"`
	DaysHeld              int             `json:"daysHeld"`
	LongTermThresholdDate time.Time       `json:"longTermThresholdDate"`
}

// GainBuckets keeps gains and losses apart per holding period. Losses are
// stored as positive magnitudes.
type GainBuckets struct {
	ShortTermGains  decimal.Decimal `json:"shortTermGains"`
	ShortTermLosses decimal.Decimal `json:"shortTermLosses"`
	LongTermGains   decimal.Decimal `json:"longTermGains"`
	LongTermLosses  decimal.Decimal `json:"longTermLosses"`
}

func (b GainBuckets) Add(o GainBuckets) GainBuckets {
	return GainBuckets{
		ShortTermGains:  b.ShortTermGains.Add(o.ShortTermGains),
		ShortTermLosses: b.ShortTermLosses.Add(o.ShortTermLosses),
		LongTermGains:   b.LongTermGains.Add(o.LongTermGains),
		LongTermLosses:  b.LongTermLosses.Add(o.LongTermLosses),
	}
}

type HoldingTaxEstimate struct {
	AssetID        string          `json:"assetId"`
	Symbol         string          `json:"symbol"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	Lots           []LotAnalysis   `json:"lots"`
	UnrealizedGain decimal.Decimal `json:"unrealizedGain"`
	GainBuckets
	EstimatedShortTermTax decimal.Decimal `json:"estimatedShortTermTax"`
	EstimatedLongTermTax  decimal.Decimal `json:"estimatedLongTermTax"`
	EstimatedTax          decimal.Decimal `json:"estimatedTax"`
}

type PortfolioTaxEstimate struct {
	ReferenceDate  time.Time            `json:"referenceDate"`
	Holdings       []HoldingTaxEstimate `json:"holdings"`
	UnrealizedGain decimal.Decimal      `json:"unrealizedGain"`
	GainBuckets
	EstimatedShortTermTax decimal.Decimal `json:"estimatedShortTermTax"`
	EstimatedLongTermTax  decimal.Decimal `json:"estimatedLongTermTax"`
	EstimatedTax          decimal.Decimal `json:"estimatedTax"`
	// SkippedAssets lists holdings left out because no current price was available.
	SkippedAssets []string `json:"skippedAssets,omitempty"`
}
