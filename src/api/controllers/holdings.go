package controllers

import (
	"context"

	"ledger/src/models"
	"ledger/src/services"
)

type HoldingsController struct {
	HoldingsService services.HoldingsServiceI
}

func NewHoldingsController(holdingsService services.HoldingsServiceI) *HoldingsController {
	return &HoldingsController{HoldingsService: holdingsService}
}

func (c *HoldingsController) GetHoldings(ctx context.Context, portfolioID string) ([]models.Holding, error) {
	holdings, err := c.HoldingsService.GetHoldings(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	if holdings == nil {
		holdings = []models.Holding{}
	}
	return holdings, nil
}

// RecalculateHoldings rebuilds and stores one asset's holding, or every
// holding of the portfolio when assetID is empty.
func (c *HoldingsController) RecalculateHoldings(ctx context.Context, portfolioID, assetID string) ([]models.Holding, error) {
	if assetID == "" {
		holdings, err := c.HoldingsService.RecalculatePortfolio(ctx, portfolioID)
		if err != nil {
			return nil, err
		}
		if holdings == nil {
			holdings = []models.Holding{}
		}
		return holdings, nil
	}
	holding, err := c.HoldingsService.RecalculateHolding(ctx, portfolioID, assetID)
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return []models.Holding{}, nil
	}
	return []models.Holding{*holding}, nil
}
