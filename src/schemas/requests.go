package schemas

import (
	"fmt"
	"time"

	"ledger/src/models"
	"ledger/src/utils"

	"github.com/shopspring/decimal"
)

// Dates travel as yyyy-mm-dd strings.

type TaxMetadataRequest struct {
	GrantDate            string           `json:"grantDate,omitempty"`
	VestingDate          string           `json:"vestingDate,omitempty"`
	DiscountPercent      *decimal.Decimal `json:"discountPercent,omitempty"`
	SharesWithheld       *decimal.Decimal `json:"sharesWithheld,omitempty"`
	OrdinaryIncomeAmount *decimal.Decimal `json:"ordinaryIncomeAmount,omitempty"`
}

type TransactionRequest struct {
	ID           string                 `json:"id"`
	AssetID      string                 `json:"assetId"`
	Type         models.TransactionType `json:"type"`
	Date         string                 `json:"date"`
	Quantity     decimal.Decimal        `json:"quantity"`
	PricePerUnit decimal.Decimal        `json:"pricePerUnit"`
	TotalAmount  decimal.Decimal        `json:"totalAmount"`
	Fees         decimal.Decimal        `json:"fees"`
	Currency     string                 `json:"currency"`
	Notes        *string                `json:"notes,omitempty"`
	TaxMetadata  *TaxMetadataRequest    `json:"taxMetadata,omitempty"`
}

// ToModel builds the ledger entry for portfolioID. A missing id is derived
// from the entry's content.
func (r TransactionRequest) ToModel(portfolioID string) (*models.Transaction, error) {
	date, err := utils.ParseDay(r.Date)
	if err != nil {
		return nil, err
	}
	tx := &models.Transaction{
		ID:           r.ID,
		PortfolioID:  portfolioID,
		AssetID:      r.AssetID,
		Type:         r.Type,
		Date:         date,
		Quantity:     r.Quantity,
		PricePerUnit: r.PricePerUnit,
		TotalAmount:  r.TotalAmount,
		Fees:         r.Fees,
		Currency:     r.Currency,
		Notes:        r.Notes,
	}
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if r.TaxMetadata != nil {
		meta, err := r.TaxMetadata.toModel()
		if err != nil {
			return nil, err
		}
		tx.TaxMetadata = meta
	}
	if tx.ID == "" {
		tx.ID = utils.GenerateUUID(portfolioID, r.AssetID, string(r.Type), r.Date, r.Quantity.String(), r.TotalAmount.String(), time.Now().UTC().Format(time.RFC3339Nano))
	}
	return tx, nil
}

func (r TaxMetadataRequest) toModel() (*models.TaxMetadata, error) {
	meta := &models.TaxMetadata{
		DiscountPercent:      r.DiscountPercent,
		SharesWithheld:       r.SharesWithheld,
		OrdinaryIncomeAmount: r.OrdinaryIncomeAmount,
	}
	var err error
	if meta.GrantDate, err = optionalDay(r.GrantDate); err != nil {
		return nil, err
	}
	if meta.VestingDate, err = optionalDay(r.VestingDate); err != nil {
		return nil, err
	}
	return meta, nil
}

func optionalDay(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	day, err := utils.ParseDay(value)
	if err != nil {
		return nil, err
	}
	return &day, nil
}

type ComputeSnapshotsRequest struct {
	FromDate string `json:"fromDate"`
	ToDate   string `json:"toDate"`
}

type ComputeSnapshotsResponse struct {
	PortfolioID string `json:"portfolioId"`
	Computed    int    `json:"computed"`
}

type TaxEstimateRequest struct {
	ShortTermRate decimal.Decimal `json:"shortTermRate"`
	LongTermRate  decimal.Decimal `json:"longTermRate"`
	ReferenceDate string          `json:"referenceDate"`
}

func (r TaxEstimateRequest) Settings() models.TaxSettings {
	return models.TaxSettings{
		ShortTermRate: r.ShortTermRate,
		LongTermRate:  r.LongTermRate,
		LastUpdated:   time.Now().UTC(),
	}
}

type TriggerEventRequest struct {
	Type        models.TriggerType `json:"type"`
	PortfolioID string             `json:"portfolioId"`
	AssetID     string             `json:"assetId"`
	Date        string             `json:"date"`
	OldDate     string             `json:"oldDate"`
	NewDate     string             `json:"newDate"`
}

func (r TriggerEventRequest) ToModel() (models.TriggerEvent, error) {
	event := models.TriggerEvent{Type: r.Type, PortfolioID: r.PortfolioID, AssetID: r.AssetID}
	for _, field := range []struct {
		value  string
		target *time.Time
	}{
		{r.Date, &event.Date},
		{r.OldDate, &event.OldDate},
		{r.NewDate, &event.NewDate},
	} {
		if field.value == "" {
			continue
		}
		day, err := utils.ParseDay(field.value)
		if err != nil {
			return models.TriggerEvent{}, fmt.Errorf("event %s: %w", r.Type, err)
		}
		*field.target = day
	}
	return event, nil
}

type PriceRequest struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}
