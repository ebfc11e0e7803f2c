package controllers

import (
	"context"
	"time"

	"ledger/src/app"
	"ledger/src/models"
	"ledger/src/schemas"
)

type IController interface {
	HoldingsControllerI
	SnapshotsControllerI
	TaxControllerI
	LedgerControllerI
}

type Controller struct {
	*HoldingsController
	*SnapshotsController
	*TaxController
	*LedgerController
}

func NewController(deps *app.Dependencies) *Controller {
	return &Controller{
		HoldingsController:  NewHoldingsController(deps.HoldingsService),
		SnapshotsController: NewSnapshotsController(deps.SnapshotService),
		TaxController:       NewTaxController(deps.TaxLotService),
		LedgerController:    NewLedgerController(deps.Transactions, deps.Prices, deps.SnapshotService),
	}
}

type HoldingsControllerI interface {
	GetHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error)
	RecalculateHoldings(ctx context.Context, portfolioID, assetID string) ([]models.Holding, error)
}

type SnapshotsControllerI interface {
	GetSnapshots(ctx context.Context, portfolioID string, startDate, endDate time.Time, aggregate bool) ([]models.PerformanceSnapshot, error)
	GetLatestSnapshot(ctx context.Context, portfolioID string) (*models.PerformanceSnapshot, error)
	ComputeSnapshots(ctx context.Context, portfolioID string, req schemas.ComputeSnapshotsRequest) (*schemas.ComputeSnapshotsResponse, error)
	RecomputeSnapshots(ctx context.Context, portfolioID string) (*schemas.ComputeSnapshotsResponse, error)
	DeleteSnapshots(ctx context.Context, portfolioID string) error
	HandleEvent(ctx context.Context, req schemas.TriggerEventRequest) error
}

type TaxControllerI interface {
	EstimateTax(ctx context.Context, portfolioID string, req schemas.TaxEstimateRequest) (*models.PortfolioTaxEstimate, error)
}

type LedgerControllerI interface {
	AddTransaction(ctx context.Context, portfolioID string, req schemas.TransactionRequest) (*models.Transaction, error)
	GetTransactions(ctx context.Context, portfolioID string) ([]models.Transaction, error)
	SetPrice(ctx context.Context, assetID string, req schemas.PriceRequest) error
}
