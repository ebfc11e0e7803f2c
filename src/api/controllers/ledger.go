package controllers

import (
	"context"

	"ledger/src/clients/prices"
	"ledger/src/models"
	"ledger/src/repositories"
	"ledger/src/schemas"
	"ledger/src/services"
	"ledger/src/utils"
)

// LedgerController records ledger entries and price observations, then
// raises the trigger event the snapshot series depends on.
type LedgerController struct {
	Transactions    repositories.TransactionRepository
	Prices          prices.Store
	SnapshotService services.SnapshotServiceI
}

func NewLedgerController(transactions repositories.TransactionRepository, priceStore prices.Store, snapshotService services.SnapshotServiceI) *LedgerController {
	return &LedgerController{
		Transactions:    transactions,
		Prices:          priceStore,
		SnapshotService: snapshotService,
	}
}

func (c *LedgerController) AddTransaction(ctx context.Context, portfolioID string, req schemas.TransactionRequest) (*models.Transaction, error) {
	if req.AssetID == "" {
		return nil, utils.BadRequest("assetId is required")
	}
	tx, err := req.ToModel(portfolioID)
	if err != nil {
		return nil, err
	}
	if err := c.Transactions.Create(ctx, tx); err != nil {
		return nil, err
	}
	err = c.SnapshotService.HandleEvent(ctx, models.TriggerEvent{
		Type:        models.TransactionAdded,
		PortfolioID: portfolioID,
		AssetID:     tx.AssetID,
		Date:        tx.Date,
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (c *LedgerController) GetTransactions(ctx context.Context, portfolioID string) ([]models.Transaction, error) {
	txs, err := c.Transactions.GetByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

func (c *LedgerController) SetPrice(ctx context.Context, assetID string, req schemas.PriceRequest) error {
	date, err := utils.ParseDay(req.Date)
	if err != nil {
		return err
	}
	if req.Price.IsNegative() {
		return utils.BadRequest("price must not be negative")
	}
	return c.Prices.SetPrice(ctx, assetID, date, req.Price)
}
