package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

type TransactionType string

const (
	Buy          TransactionType = "buy"
	Sell         TransactionType = "sell"
	Dividend     TransactionType = "dividend"
	Interest     TransactionType = "interest"
	TransferIn   TransactionType = "transfer_in"
	TransferOut  TransactionType = "transfer_out"
	Split        TransactionType = "split"
	Spinoff      TransactionType = "spinoff"
	Merger       TransactionType = "merger"
	Fee          TransactionType = "fee"
	Tax          TransactionType = "tax"
	Reinvestment TransactionType = "reinvestment"
)

// Valid reports whether t is one of the known ledger entry types.
func (t TransactionType) Valid() bool {
	switch t {
	case Buy, Sell, Dividend, Interest, TransferIn, TransferOut, Split, Spinoff, Merger, Fee, Tax, Reinvestment:
		return true
	}
	return false
}

// Acquires reports whether the type adds shares bought at a cost.
func (t TransactionType) Acquires() bool {
	return t == Buy || t == TransferIn || t == Reinvestment
}

// Disposes reports whether the type removes shares.
func (t TransactionType) Disposes() bool {
	return t == Sell || t == TransferOut
}

// TaxMetadata carries equity-compensation details for ESPP and RSU acquisitions.
type TaxMetadata struct {
	GrantDate            *time.Time       `json:"grantDate,omitempty"`
	VestingDate          *time.Time       `json:"vestingDate,omitempty"`
	DiscountPercent      *decimal.Decimal `json:"discountPercent,omitempty"`
	SharesWithheld       *decimal.Decimal `json:"sharesWithheld,omitempty"`
	OrdinaryIncomeAmount *decimal.Decimal `json:"ordinaryIncomeAmount,omitempty"`
}

// Transaction is an immutable ledger entry. Corrections are recorded as new
// transactions, never by editing an existing one.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	PortfolioID  string          `json:"portfolioId" db:"portfolio_id"`
	AssetID      string          `json:"assetId" db:"asset_id"`
	Type         TransactionType `json:"type" db:"type"`
	Date         time.Time       `json:"date" db:"date"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit" db:"price_per_unit"`
	TotalAmount  decimal.Decimal `json:"totalAmount" db:"total_amount"`
	Fees         decimal.Decimal `json:"fees" db:"fees"`
	Currency     string          `json:"currency" db:"currency"`
	Notes        *string         `json:"notes,omitempty" db:"notes"`
	TaxMetadata  *TaxMetadata    `json:"taxMetadata,omitempty" db:"tax_metadata"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// Validate checks the fields every component relies on.
func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w %s: unknown type %q", ErrInvalidTransaction, t.ID, t.Type)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w %s: missing date", ErrInvalidTransaction, t.ID)
	}
	if t.Quantity.IsNegative() || t.PricePerUnit.IsNegative() || t.Fees.IsNegative() {
		return fmt.Errorf("%w %s: negative quantity, price or fees", ErrInvalidTransaction, t.ID)
	}
	if t.Type == Split && !t.Quantity.IsPositive() {
		return fmt.Errorf("%w %s: split ratio must be positive", ErrInvalidTransaction, t.ID)
	}
	return nil
}
